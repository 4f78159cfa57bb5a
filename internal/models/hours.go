package models

import "time"

// HoursActivityType is the closed set of activities that earn hours.
type HoursActivityType string

const (
	HoursActivityMission          HoursActivityType = "MISSION"
	HoursActivityCPDModule        HoursActivityType = "CPD_MODULE"
	HoursActivityBadge            HoursActivityType = "BADGE"
	HoursActivityWorkshop         HoursActivityType = "WORKSHOP"
	HoursActivityExternalTraining HoursActivityType = "EXTERNAL_TRAINING"
)

// Valid reports whether the type is known.
func (t HoursActivityType) Valid() bool {
	switch t {
	case HoursActivityMission, HoursActivityCPDModule, HoursActivityBadge, HoursActivityWorkshop, HoursActivityExternalTraining:
		return true
	}
	return false
}

// SelfReported reports whether a user may log this type directly. Mission, CPD module and
// badge hours are credited only by the reward path when the underlying achievement lands.
func (t HoursActivityType) SelfReported() bool {
	switch t {
	case HoursActivityWorkshop, HoursActivityExternalTraining:
		return true
	}
	return false
}

// HoursLedgerEntry is one credited activity. Unique per (user, type, activity).
type HoursLedgerEntry struct {
	ID           string            `db:"id" json:"id"`
	UserID       string            `db:"user_id" json:"userId"`
	ActivityType HoursActivityType `db:"activity_type" json:"activityType"`
	ActivityID   string            `db:"activity_id" json:"activityId"`
	Hours        float64           `db:"hours" json:"hours"`
	RecordedAt   time.Time         `db:"recorded_at" json:"recordedAt"`
}

// CPDSummary reports a teacher's progress against the annual hours target.
type CPDSummary struct {
	UserID     string  `json:"userId"`
	Year       int     `json:"year"`
	Target     float64 `json:"target"`
	Earned     float64 `json:"earned"`
	Remaining  float64 `json:"remaining"`
	Percentage float64 `json:"percentage"`
}
