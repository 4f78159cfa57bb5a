package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-progression-api/internal/models"
)

// ProgressMutator applies a change to locked rows. It reports whether anything changed;
// unchanged rows are not written back.
type ProgressMutator func(mission *models.MissionProgress, activity *models.ActivityProgress) (bool, error)

// ProgressRepository persists mission and activity progress.
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository constructs the repository.
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

const missionProgressColumns = `learner_id, mission_id, status, completed_activities, total_activities, progress_percentage, started_at, completed_at, rewarded_at, updated_at`

// Toggle locks the learner's mission row (creating it on first touch) and the activity row,
// runs mutate, and persists the result in one transaction.
func (r *ProgressRepository) Toggle(ctx context.Context, key models.ProgressKey, mutate ProgressMutator) (*models.MissionProgress, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin toggle progress: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	mission, err := lockMissionProgress(ctx, tx, key)
	if errors.Is(err, sql.ErrNoRows) {
		if err = createMissionProgress(ctx, tx, key); err != nil {
			return nil, err
		}
		mission, err = lockMissionProgress(ctx, tx, key)
	}
	if err != nil {
		return nil, fmt.Errorf("lock mission progress: %w", err)
	}

	activity, err := lockActivityProgress(ctx, tx, key)
	if err != nil {
		return nil, err
	}

	changed, err := mutate(mission, activity)
	if err != nil {
		return nil, err
	}

	if changed {
		const upsertActivity = `INSERT INTO activity_progress (learner_id, mission_id, activity_id, is_completed, completed_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (learner_id, mission_id, activity_id) DO UPDATE SET is_completed = EXCLUDED.is_completed, completed_at = EXCLUDED.completed_at`
		if _, err := tx.ExecContext(ctx, upsertActivity, key.LearnerID, key.MissionID, key.ActivityID, activity.IsCompleted, activity.CompletedAt); err != nil {
			return nil, fmt.Errorf("upsert activity progress: %w", err)
		}

		const updateMission = `UPDATE mission_progress SET status = $3, completed_activities = $4, progress_percentage = $5,
	started_at = $6, completed_at = $7, updated_at = $8, rewarded_at = COALESCE(rewarded_at, $9)
	WHERE learner_id = $1 AND mission_id = $2`
		if _, err := tx.ExecContext(ctx, updateMission, key.LearnerID, key.MissionID, mission.Status, mission.CompletedActivities,
			mission.ProgressPercentage, mission.StartedAt, mission.CompletedAt, mission.UpdatedAt, mission.RewardedAt); err != nil {
			return nil, fmt.Errorf("update mission progress: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit toggle progress: %w", err)
	}
	committed = true
	return mission, nil
}

func lockMissionProgress(ctx context.Context, tx *sqlx.Tx, key models.ProgressKey) (*models.MissionProgress, error) {
	query := `SELECT ` + missionProgressColumns + ` FROM mission_progress WHERE learner_id = $1 AND mission_id = $2 FOR UPDATE`
	var progress models.MissionProgress
	if err := tx.GetContext(ctx, &progress, query, key.LearnerID, key.MissionID); err != nil {
		return nil, err
	}
	return &progress, nil
}

func createMissionProgress(ctx context.Context, tx *sqlx.Tx, key models.ProgressKey) error {
	var total int
	if err := tx.GetContext(ctx, &total, `SELECT COUNT(*) FROM mission_activities WHERE mission_id = $1`, key.MissionID); err != nil {
		return fmt.Errorf("count mission activities: %w", err)
	}
	const insert = `INSERT INTO mission_progress (learner_id, mission_id, status, completed_activities, total_activities, progress_percentage, updated_at)
	VALUES ($1, $2, $3, 0, $4, 0, $5)
	ON CONFLICT (learner_id, mission_id) DO NOTHING`
	if _, err := tx.ExecContext(ctx, insert, key.LearnerID, key.MissionID, models.MissionStatusNotStarted, total, time.Now().UTC()); err != nil {
		return fmt.Errorf("create mission progress: %w", err)
	}
	return nil
}

func lockActivityProgress(ctx context.Context, tx *sqlx.Tx, key models.ProgressKey) (*models.ActivityProgress, error) {
	const query = `SELECT learner_id, mission_id, activity_id, is_completed, completed_at FROM activity_progress
	WHERE learner_id = $1 AND mission_id = $2 AND activity_id = $3 FOR UPDATE`
	var activity models.ActivityProgress
	err := tx.GetContext(ctx, &activity, query, key.LearnerID, key.MissionID, key.ActivityID)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.ActivityProgress{LearnerID: key.LearnerID, MissionID: key.MissionID, ActivityID: key.ActivityID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock activity progress: %w", err)
	}
	return &activity, nil
}

// GetMissionProgress returns the learner's mission row or sql.ErrNoRows.
func (r *ProgressRepository) GetMissionProgress(ctx context.Context, learnerID, missionID string) (*models.MissionProgress, error) {
	query := `SELECT ` + missionProgressColumns + ` FROM mission_progress WHERE learner_id = $1 AND mission_id = $2`
	var progress models.MissionProgress
	if err := r.db.GetContext(ctx, &progress, query, learnerID, missionID); err != nil {
		return nil, err
	}
	return &progress, nil
}

// ListMissionProgress returns the learner's missions, most recently touched first.
func (r *ProgressRepository) ListMissionProgress(ctx context.Context, filter models.MissionProgressFilter) ([]models.MissionProgress, error) {
	builder := strings.Builder{}
	args := []interface{}{filter.LearnerID}
	builder.WriteString(`SELECT ` + missionProgressColumns + ` FROM mission_progress WHERE learner_id = $1`)
	if filter.Status != nil {
		args = append(args, *filter.Status)
		builder.WriteString(fmt.Sprintf(" AND status = $%d", len(args)))
	}
	builder.WriteString(" ORDER BY updated_at DESC, mission_id ASC")

	limit := filter.Limit
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d", limit))

	var rows []models.MissionProgress
	if err := r.db.SelectContext(ctx, &rows, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list mission progress: %w", err)
	}
	return rows, nil
}
