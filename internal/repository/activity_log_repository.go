package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-progression-api/internal/models"
)

// ActivityLogRepository appends and reads engagement events.
type ActivityLogRepository struct {
	db *sqlx.DB
}

// NewActivityLogRepository constructs the repository.
func NewActivityLogRepository(db *sqlx.DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

// Append stores a new engagement event.
func (r *ActivityLogRepository) Append(ctx context.Context, entry *models.ActivityLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}
	const query = `INSERT INTO activity_log (id, user_id, kind, occurred_at) VALUES (:id, :user_id, :kind, :occurred_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("append activity log: %w", err)
	}
	return nil
}

// DistinctDates returns the calendar days (in the named timezone) the user was active,
// newest first. Each day is returned as midnight UTC of that date.
func (r *ActivityLogRepository) DistinctDates(ctx context.Context, userID, timezone string) ([]time.Time, error) {
	const query = `SELECT DISTINCT (occurred_at AT TIME ZONE $2)::date AS day FROM activity_log
	WHERE user_id = $1 ORDER BY day DESC`
	var days []time.Time
	if err := r.db.SelectContext(ctx, &days, query, userID, timezone); err != nil {
		return nil, fmt.Errorf("list activity dates: %w", err)
	}
	return days, nil
}
