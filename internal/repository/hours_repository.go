package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-progression-api/internal/models"
)

// HoursRepository persists the hours ledger.
type HoursRepository struct {
	db *sqlx.DB
}

// NewHoursRepository constructs the repository.
func NewHoursRepository(db *sqlx.DB) *HoursRepository {
	return &HoursRepository{db: db}
}

// Insert writes a ledger entry unless one exists for the same natural key.
// It reports whether a row was written.
func (r *HoursRepository) Insert(ctx context.Context, entry *models.HoursLedgerEntry) (bool, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}
	const query = `INSERT INTO hours_ledger (id, user_id, activity_type, activity_id, hours, recorded_at)
	VALUES (:id, :user_id, :activity_type, :activity_id, :hours, :recorded_at)
	ON CONFLICT (user_id, activity_type, activity_id) DO NOTHING`
	result, err := r.db.NamedExecContext(ctx, query, entry)
	if err != nil {
		return false, fmt.Errorf("insert hours entry: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert hours entry rows: %w", err)
	}
	return affected > 0, nil
}

// Exists reports whether the natural key has already been credited.
func (r *HoursRepository) Exists(ctx context.Context, userID string, activityType models.HoursActivityType, activityID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM hours_ledger WHERE user_id = $1 AND activity_type = $2 AND activity_id = $3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, activityType, activityID); err != nil {
		return false, fmt.Errorf("check hours entry: %w", err)
	}
	return exists, nil
}

// SumHours totals a user's hours. Nil bounds are open; to is exclusive.
func (r *HoursRepository) SumHours(ctx context.Context, userID string, from, to *time.Time) (float64, error) {
	builder := strings.Builder{}
	args := []interface{}{userID}
	builder.WriteString(`SELECT COALESCE(SUM(hours), 0) FROM hours_ledger WHERE user_id = $1`)
	if from != nil {
		args = append(args, *from)
		builder.WriteString(fmt.Sprintf(" AND recorded_at >= $%d", len(args)))
	}
	if to != nil {
		args = append(args, *to)
		builder.WriteString(fmt.Sprintf(" AND recorded_at < $%d", len(args)))
	}
	var total float64
	if err := r.db.GetContext(ctx, &total, builder.String(), args...); err != nil {
		return 0, fmt.Errorf("sum hours: %w", err)
	}
	return total, nil
}

// ListRecent returns the user's latest entries.
func (r *HoursRepository) ListRecent(ctx context.Context, userID string, limit int) ([]models.HoursLedgerEntry, error) {
	const query = `SELECT id, user_id, activity_type, activity_id, hours, recorded_at FROM hours_ledger
	WHERE user_id = $1 ORDER BY recorded_at DESC, id ASC LIMIT $2`
	var entries []models.HoursLedgerEntry
	if err := r.db.SelectContext(ctx, &entries, query, userID, limit); err != nil {
		return nil, fmt.Errorf("list recent hours: %w", err)
	}
	return entries, nil
}
