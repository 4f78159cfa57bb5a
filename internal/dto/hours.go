package dto

// RecordHoursRequest credits hours for a discrete activity.
type RecordHoursRequest struct {
	ActivityType string  `json:"activityType" validate:"required"`
	ActivityID   string  `json:"activityId" validate:"required,max=128"`
	Hours        float64 `json:"hours"`
}

// RecordHoursResponse reports the hours newly credited; 0 means nothing changed.
type RecordHoursResponse struct {
	Credited float64 `json:"credited"`
}

// HoursTotalResponse is the ledger sum for an optional window.
type HoursTotalResponse struct {
	UserID string  `json:"userId"`
	Total  float64 `json:"total"`
	From   *string `json:"from,omitempty"`
	To     *string `json:"to,omitempty"`
}
