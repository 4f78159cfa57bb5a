package models

import "time"

// ProgressionEventKind names a committed state change that hooks react to.
type ProgressionEventKind string

const (
	EventMissionCompleted ProgressionEventKind = "MISSION_COMPLETED"
	EventBadgeAwarded     ProgressionEventKind = "BADGE_AWARDED"
	EventHoursRecorded    ProgressionEventKind = "HOURS_RECORDED"
	EventLevelUp          ProgressionEventKind = "LEVEL_UP"
)

// ProgressionEvent carries the facts of a committed change. Fields unused by a kind are zero.
type ProgressionEvent struct {
	Kind       ProgressionEventKind `json:"kind"`
	UserID     string               `json:"userId"`
	MissionID  string               `json:"missionId,omitempty"`
	BadgeID    string               `json:"badgeId,omitempty"`
	Source     BadgeSource          `json:"source,omitempty"`
	Hours      float64              `json:"hours,omitempty"`
	HoursType  HoursActivityType    `json:"hoursType,omitempty"`
	ActivityID string               `json:"activityId,omitempty"`
	Level      int                  `json:"level,omitempty"`
	LevelName  string               `json:"levelName,omitempty"`
	OccurredAt time.Time            `json:"occurredAt"`
}
