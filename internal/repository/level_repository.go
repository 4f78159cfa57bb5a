package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-progression-api/internal/models"
)

// LevelRepository persists level records.
type LevelRepository struct {
	db *sqlx.DB
}

// NewLevelRepository constructs the repository.
func NewLevelRepository(db *sqlx.DB) *LevelRepository {
	return &LevelRepository{db: db}
}

const levelRecordColumns = `user_id, current_level, level_name, metric, metric_snapshot, last_level_up_at, updated_at`

// Get returns the user's level record or sql.ErrNoRows.
func (r *LevelRepository) Get(ctx context.Context, userID string) (*models.LevelRecord, error) {
	query := `SELECT ` + levelRecordColumns + ` FROM level_records WHERE user_id = $1`
	var record models.LevelRecord
	if err := r.db.GetContext(ctx, &record, query, userID); err != nil {
		return nil, err
	}
	return &record, nil
}

// Upsert stores the record and returns what was persisted. The stored level never
// decreases; name and level-up stamp only move with it. The snapshot is always refreshed.
func (r *LevelRepository) Upsert(ctx context.Context, record *models.LevelRecord) (*models.LevelRecord, error) {
	query := `INSERT INTO level_records (` + levelRecordColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (user_id) DO UPDATE SET
		current_level = GREATEST(level_records.current_level, EXCLUDED.current_level),
		level_name = CASE WHEN EXCLUDED.current_level > level_records.current_level THEN EXCLUDED.level_name ELSE level_records.level_name END,
		last_level_up_at = CASE WHEN EXCLUDED.current_level > level_records.current_level THEN EXCLUDED.last_level_up_at ELSE level_records.last_level_up_at END,
		metric = EXCLUDED.metric,
		metric_snapshot = EXCLUDED.metric_snapshot,
		updated_at = EXCLUDED.updated_at
	RETURNING ` + levelRecordColumns
	var stored models.LevelRecord
	if err := r.db.GetContext(ctx, &stored, query, record.UserID, record.CurrentLevel, record.LevelName, record.Metric,
		record.MetricSnapshot, record.LastLevelUpAt, record.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert level record: %w", err)
	}
	return &stored, nil
}
