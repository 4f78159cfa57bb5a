package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// BadgeTargetRole limits which users may earn a badge.
type BadgeTargetRole string

const (
	BadgeTargetStudent BadgeTargetRole = "STUDENT"
	BadgeTargetTeacher BadgeTargetRole = "TEACHER"
	BadgeTargetBoth    BadgeTargetRole = "BOTH"
)

// Allows reports whether a user with the given role may hold the badge.
func (t BadgeTargetRole) Allows(role UserRole) bool {
	switch t {
	case BadgeTargetBoth:
		return true
	case BadgeTargetStudent:
		return role == RoleStudent
	case BadgeTargetTeacher:
		return role == RoleTeacher
	}
	return false
}

// BadgeSource distinguishes automatic awards from reviewed submissions.
type BadgeSource string

const (
	BadgeSourceAuto   BadgeSource = "AUTO"
	BadgeSourceManual BadgeSource = "MANUAL"
)

// ApprovalStatus is the review state of a badge award.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// Valid reports whether the status is known.
func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	}
	return false
}

// Badge is a read-only award definition.
type Badge struct {
	ID            string          `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	Category      string          `db:"category" json:"category"`
	TargetRole    BadgeTargetRole `db:"target_role" json:"targetRole"`
	CPDHoursValue *float64        `db:"cpd_hours_value" json:"cpdHoursValue,omitempty"`
	IsActive      bool            `db:"is_active" json:"isActive"`
}

// BadgeAward is a granted or submitted badge. Only APPROVED rows count.
type BadgeAward struct {
	ID             string         `db:"id" json:"id"`
	UserID         string         `db:"user_id" json:"userId"`
	BadgeID        string         `db:"badge_id" json:"badgeId"`
	Source         BadgeSource    `db:"source" json:"source"`
	ApprovalStatus ApprovalStatus `db:"approval_status" json:"approvalStatus"`
	SourceRef      *string        `db:"source_ref" json:"sourceRef,omitempty"`
	EvidenceLink   *string        `db:"evidence_link" json:"evidenceLink,omitempty"`
	EvidenceFiles  EvidenceFiles  `db:"evidence_files" json:"evidenceFiles"`
	Notes          *string        `db:"notes" json:"notes,omitempty"`
	ReviewerID     *string        `db:"reviewer_id" json:"reviewerId,omitempty"`
	ReviewerNotes  *string        `db:"reviewer_notes" json:"reviewerNotes,omitempty"`
	EarnedAt       *time.Time     `db:"earned_at" json:"earnedAt,omitempty"`
	SubmittedAt    time.Time      `db:"submitted_at" json:"submittedAt"`
	ReviewedAt     *time.Time     `db:"reviewed_at" json:"reviewedAt,omitempty"`
}

// BadgeSubmissionFilter scopes the reviewer queue.
type BadgeSubmissionFilter struct {
	Status  *ApprovalStatus
	UserID  string
	BadgeID string
	Limit   int
	Offset  int
}

// EvidenceFiles is a JSON list of uploaded evidence references.
type EvidenceFiles []string

// Value marshals the list for persistence.
func (f EvidenceFiles) Value() (driver.Value, error) {
	if f == nil {
		f = EvidenceFiles{}
	}
	data, err := json.Marshal([]string(f))
	if err != nil {
		return nil, fmt.Errorf("marshal evidence files: %w", err)
	}
	return data, nil
}

// Scan reads the stored list. Malformed payloads degrade to an empty list.
func (f *EvidenceFiles) Scan(value interface{}) error {
	*f = EvidenceFiles{}
	var data []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return nil
	}
	if len(data) == 0 {
		return nil
	}
	var files []string
	if err := json.Unmarshal(data, &files); err != nil {
		return nil
	}
	*f = files
	return nil
}
