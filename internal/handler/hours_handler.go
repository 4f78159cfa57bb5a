package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-progression-api/internal/dto"
	"github.com/noah-isme/sma-progression-api/internal/models"
	"github.com/noah-isme/sma-progression-api/internal/service"
	appErrors "github.com/noah-isme/sma-progression-api/pkg/errors"
	"github.com/noah-isme/sma-progression-api/pkg/response"
)

type hoursService interface {
	RecordHours(ctx context.Context, learnerID string, activityType models.HoursActivityType, activityID string, hours float64) (float64, error)
	GetTotal(ctx context.Context, learnerID string, from, to *time.Time) (float64, error)
	CPDSummary(ctx context.Context, userID string, year int) (*models.CPDSummary, error)
	RecentEntries(ctx context.Context, userID string, limit int) ([]models.HoursLedgerEntry, error)
}

// HoursHandler exposes the caller's hours ledger.
type HoursHandler struct {
	service hoursService
}

// NewHoursHandler builds a new handler.
func NewHoursHandler(service hoursService) *HoursHandler {
	return &HoursHandler{service: service}
}

// Record godoc
// @Summary Credit hours for an activity
// @Tags Hours
// @Accept json
// @Produce json
// @Param payload body dto.RecordHoursRequest true "Hours payload"
// @Success 200 {object} response.Envelope
// @Router /hours [post]
func (h *HoursHandler) Record(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.RecordHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	if req.ActivityID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "activityId is required"))
		return
	}
	activityType, err := service.ParseSelfReportedHoursType(req.ActivityType)
	if err != nil {
		response.Error(c, err)
		return
	}
	credited, err := h.service.RecordHours(c.Request.Context(), claims.UserID, activityType, req.ActivityID, req.Hours)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, dto.RecordHoursResponse{Credited: credited})
}

// Total godoc
// @Summary Total the caller's hours
// @Tags Hours
// @Produce json
// @Param from query string false "Inclusive start (RFC3339 or YYYY-MM-DD)"
// @Param to query string false "Exclusive end (RFC3339 or YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /hours/total [get]
func (h *HoursHandler) Total(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	from, err := queryTime(c, "from")
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := queryTime(c, "to")
	if err != nil {
		response.Error(c, err)
		return
	}
	total, err := h.service.GetTotal(c.Request.Context(), claims.UserID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, dto.HoursTotalResponse{
		UserID: claims.UserID,
		Total:  total,
		From:   formatOptionalTime(from),
		To:     formatOptionalTime(to),
	})
}

// Recent godoc
// @Summary List the caller's latest ledger entries
// @Tags Hours
// @Produce json
// @Param limit query int false "Entries to return (max 20)"
// @Success 200 {object} response.Envelope
// @Router /hours/recent [get]
func (h *HoursHandler) Recent(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		response.Error(c, err)
		return
	}
	entries, err := h.service.RecentEntries(c.Request.Context(), claims.UserID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	if entries == nil {
		entries = []models.HoursLedgerEntry{}
	}
	respondOK(c, entries)
}

// CPD godoc
// @Summary Annual CPD progress for the caller
// @Tags Hours
// @Produce json
// @Param year query int false "Calendar year, defaults to the current one"
// @Success 200 {object} response.Envelope
// @Router /hours/cpd [get]
func (h *HoursHandler) CPD(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	year, err := queryInt(c, "year")
	if err != nil {
		response.Error(c, err)
		return
	}
	summary, err := h.service.CPDSummary(c.Request.Context(), claims.UserID, year)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, summary)
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := t.UTC().Format(time.RFC3339)
	return &formatted
}
