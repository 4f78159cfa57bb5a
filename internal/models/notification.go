package models

import (
	"encoding/json"
	"time"
)

// NotificationKind identifies the in-app notification template.
type NotificationKind string

const (
	NotificationBadgeEarned      NotificationKind = "BADGE_EARNED"
	NotificationLevelUp          NotificationKind = "LEVEL_UP"
	NotificationMissionCompleted NotificationKind = "MISSION_COMPLETED"
)

// Notification is an in-app inbox row.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"userId"`
	Kind      NotificationKind `db:"kind" json:"kind"`
	Payload   json.RawMessage  `db:"payload" json:"payload"`
	CreatedAt time.Time        `db:"created_at" json:"createdAt"`
	ReadAt    *time.Time       `db:"read_at" json:"readAt,omitempty"`
}
