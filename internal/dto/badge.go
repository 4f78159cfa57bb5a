package dto

// AwardBadgeRequest grants a badge outside the mission flow.
type AwardBadgeRequest struct {
	LearnerID string `json:"learnerId" validate:"required"`
	SourceRef string `json:"sourceRef" validate:"max=255"`
}

// AwardBadgeResponse reports whether a new award was created.
type AwardBadgeResponse struct {
	Awarded bool `json:"awarded"`
}

// SubmitBadgeRequest carries a teacher's evidence for a badge.
type SubmitBadgeRequest struct {
	BadgeID       string   `json:"badgeId" validate:"required"`
	EvidenceLink  string   `json:"evidenceLink" validate:"omitempty,url"`
	EvidenceFiles []string `json:"evidenceFiles" validate:"max=10"`
	Notes         string   `json:"notes" validate:"max=2000"`
}

// SubmitBadgeResponse returns the pending submission id.
type SubmitBadgeResponse struct {
	SubmissionID string `json:"submissionId"`
}

// ReviewBadgeRequest is a reviewer's decision on a pending submission.
type ReviewBadgeRequest struct {
	Approve       bool   `json:"approve"`
	ReviewerNotes string `json:"reviewerNotes" validate:"max=2000"`
}

// BadgeSubmissionQuery mirrors the reviewer queue filters.
type BadgeSubmissionQuery struct {
	Status  string
	UserID  string
	BadgeID string
	Limit   int
	Offset  int
}
