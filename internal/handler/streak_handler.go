package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-progression-api/internal/dto"
	"github.com/noah-isme/sma-progression-api/internal/models"
	"github.com/noah-isme/sma-progression-api/internal/service"
	appErrors "github.com/noah-isme/sma-progression-api/pkg/errors"
	"github.com/noah-isme/sma-progression-api/pkg/response"
)

type streakService interface {
	Summary(ctx context.Context, userID string) (*models.StreakSummary, error)
	RecordEngagement(ctx context.Context, userID string, kind models.EngagementKind) error
}

// StreakHandler exposes engagement streaks.
type StreakHandler struct {
	service streakService
}

// NewStreakHandler builds a new handler.
func NewStreakHandler(service streakService) *StreakHandler {
	return &StreakHandler{service: service}
}

// Me godoc
// @Summary Get the caller's current streak
// @Tags Streaks
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /streaks/me [get]
func (h *StreakHandler) Me(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	summary, err := h.service.Summary(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, summary)
}

// RecordEngagement godoc
// @Summary Log an engagement event for the caller
// @Tags Streaks
// @Accept json
// @Param payload body dto.RecordEngagementRequest true "Engagement kind"
// @Success 204
// @Router /streaks/engagement [post]
func (h *StreakHandler) RecordEngagement(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.RecordEngagementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	kind, err := service.ParseEngagementKind(req.Kind)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.RecordEngagement(c.Request.Context(), claims.UserID, kind); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
