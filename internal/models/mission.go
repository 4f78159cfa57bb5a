package models

import "time"

// MissionAudience identifies who a mission is authored for. Teacher missions are CPD modules.
type MissionAudience string

const (
	MissionAudienceStudent MissionAudience = "STUDENT"
	MissionAudienceTeacher MissionAudience = "TEACHER"
)

// MissionStatus captures the learner-facing state of a mission.
type MissionStatus string

const (
	MissionStatusNotStarted MissionStatus = "NOT_STARTED"
	MissionStatusInProgress MissionStatus = "IN_PROGRESS"
	MissionStatusCompleted  MissionStatus = "COMPLETED"
)

// Valid reports whether the status is one of the known values.
func (s MissionStatus) Valid() bool {
	switch s {
	case MissionStatusNotStarted, MissionStatusInProgress, MissionStatusCompleted:
		return true
	}
	return false
}

// Mission is reference data describing a unit of work composed of activities.
type Mission struct {
	ID         string          `db:"id" json:"id"`
	Title      string          `db:"title" json:"title"`
	Audience   MissionAudience `db:"audience" json:"audience"`
	BadgeID    *string         `db:"badge_id" json:"badgeId,omitempty"`
	HoursValue *float64        `db:"hours_value" json:"hoursValue,omitempty"`
	Active     bool            `db:"active" json:"active"`
	CreatedAt  time.Time       `db:"created_at" json:"createdAt"`
}

// MissionActivity is the smallest trackable unit within a mission.
type MissionActivity struct {
	ID        string `db:"id" json:"id"`
	MissionID string `db:"mission_id" json:"missionId"`
	Title     string `db:"title" json:"title"`
	Position  int    `db:"position" json:"position"`
}

// MissionProgress is a learner's aggregate state for one mission.
type MissionProgress struct {
	LearnerID           string        `db:"learner_id" json:"learnerId"`
	MissionID           string        `db:"mission_id" json:"missionId"`
	Status              MissionStatus `db:"status" json:"status"`
	CompletedActivities int           `db:"completed_activities" json:"completedActivities"`
	TotalActivities     int           `db:"total_activities" json:"totalActivities"`
	ProgressPercentage  float64       `db:"progress_percentage" json:"progressPercentage"`
	StartedAt           *time.Time    `db:"started_at" json:"startedAt,omitempty"`
	CompletedAt         *time.Time    `db:"completed_at" json:"completedAt,omitempty"`
	RewardedAt          *time.Time    `db:"rewarded_at" json:"-"`
	UpdatedAt           time.Time     `db:"updated_at" json:"updatedAt"`
}

// ActivityProgress records completion of a single activity by a learner.
type ActivityProgress struct {
	LearnerID   string     `db:"learner_id" json:"learnerId"`
	MissionID   string     `db:"mission_id" json:"missionId"`
	ActivityID  string     `db:"activity_id" json:"activityId"`
	IsCompleted bool       `db:"is_completed" json:"isCompleted"`
	CompletedAt *time.Time `db:"completed_at" json:"completedAt,omitempty"`
}

// ProgressKey addresses one activity within a learner's mission.
type ProgressKey struct {
	LearnerID  string
	MissionID  string
	ActivityID string
}

// MissionProgressFilter scopes progress listings for a learner.
type MissionProgressFilter struct {
	LearnerID string
	Status    *MissionStatus
	Limit     int
}
