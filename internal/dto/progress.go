package dto

import "github.com/noah-isme/sma-progression-api/internal/models"

// RecordActivityRequest toggles completion of one mission activity.
type RecordActivityRequest struct {
	LearnerID  string `json:"-" validate:"required"`
	MissionID  string `json:"-" validate:"required"`
	ActivityID string `json:"-" validate:"required"`
	Completed  bool   `json:"completed"`
}

// MissionProgressSnapshot is the state after a toggle plus any rewards it triggered.
type MissionProgressSnapshot struct {
	Progress       models.MissionProgress    `json:"progress"`
	MissionChanged bool                      `json:"missionChanged"`
	JustCompleted  bool                      `json:"justCompleted"`
	Events         []models.ProgressionEvent `json:"events,omitempty"`
}
