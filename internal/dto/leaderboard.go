package dto

import "github.com/noah-isme/sma-progression-api/internal/models"

// LeaderboardResponse is a ranked page of a leaderboard.
type LeaderboardResponse struct {
	Metric  models.LeaderboardMetric  `json:"metric"`
	Range   models.TimeRange          `json:"range"`
	Limit   int                       `json:"limit"`
	Entries []models.LeaderboardEntry `json:"entries"`
}

// RecordEngagementRequest logs a non-progress engagement event.
type RecordEngagementRequest struct {
	Kind string `json:"kind" validate:"required"`
}

// LevelResponse wraps a level record with whether the last call levelled up.
type LevelResponse struct {
	Record    models.LevelRecord `json:"record"`
	LeveledUp bool               `json:"leveledUp"`
}
