package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-progression-api/internal/models"
)

// MissionRepository reads mission reference data.
type MissionRepository struct {
	db *sqlx.DB
}

// NewMissionRepository constructs the repository.
func NewMissionRepository(db *sqlx.DB) *MissionRepository {
	return &MissionRepository{db: db}
}

// GetByID returns the mission or sql.ErrNoRows.
func (r *MissionRepository) GetByID(ctx context.Context, id string) (*models.Mission, error) {
	const query = `SELECT id, title, audience, badge_id, hours_value, active, created_at FROM missions WHERE id = $1`
	var mission models.Mission
	if err := r.db.GetContext(ctx, &mission, query, id); err != nil {
		return nil, err
	}
	return &mission, nil
}

// GetActivity returns the activity when it belongs to the mission, otherwise sql.ErrNoRows.
func (r *MissionRepository) GetActivity(ctx context.Context, missionID, activityID string) (*models.MissionActivity, error) {
	const query = `SELECT id, mission_id, title, position FROM mission_activities WHERE id = $1 AND mission_id = $2`
	var activity models.MissionActivity
	if err := r.db.GetContext(ctx, &activity, query, activityID, missionID); err != nil {
		return nil, err
	}
	return &activity, nil
}

// ListActivities returns the mission's activities in authoring order.
func (r *MissionRepository) ListActivities(ctx context.Context, missionID string) ([]models.MissionActivity, error) {
	const query = `SELECT id, mission_id, title, position FROM mission_activities WHERE mission_id = $1 ORDER BY position ASC, id ASC`
	var activities []models.MissionActivity
	if err := r.db.SelectContext(ctx, &activities, query, missionID); err != nil {
		return nil, fmt.Errorf("list mission activities: %w", err)
	}
	return activities, nil
}
