package models

import "time"

// EngagementKind labels an activity log entry.
type EngagementKind string

const (
	EngagementActivityCompleted EngagementKind = "ACTIVITY_COMPLETED"
	EngagementLogin             EngagementKind = "LOGIN"
	EngagementPageVisit         EngagementKind = "PAGE_VISIT"
	EngagementHoursRecorded     EngagementKind = "HOURS_RECORDED"
)

// Valid reports whether the kind is known.
func (k EngagementKind) Valid() bool {
	switch k {
	case EngagementActivityCompleted, EngagementLogin, EngagementPageVisit, EngagementHoursRecorded:
		return true
	}
	return false
}

// ActivityLogEntry is an append-only engagement event used for streaks.
type ActivityLogEntry struct {
	ID         string         `db:"id" json:"id"`
	UserID     string         `db:"user_id" json:"userId"`
	Kind       EngagementKind `db:"kind" json:"kind"`
	OccurredAt time.Time      `db:"occurred_at" json:"occurredAt"`
}

// StreakSummary is the streak read model.
type StreakSummary struct {
	UserID         string     `json:"userId"`
	CurrentStreak  int        `json:"currentStreak"`
	LastActiveDate *time.Time `json:"lastActiveDate,omitempty"`
}
