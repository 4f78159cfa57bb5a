package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-progression-api/internal/dto"
	"github.com/noah-isme/sma-progression-api/internal/models"
	"github.com/noah-isme/sma-progression-api/pkg/response"
)

type levelService interface {
	Get(ctx context.Context, learnerID string) (*models.LevelRecord, error)
	Recalculate(ctx context.Context, learnerID string) (*models.LevelRecord, bool, error)
}

// LevelHandler exposes the caller's level.
type LevelHandler struct {
	service levelService
}

// NewLevelHandler builds a new handler.
func NewLevelHandler(service levelService) *LevelHandler {
	return &LevelHandler{service: service}
}

// Me godoc
// @Summary Get the caller's level
// @Tags Levels
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /levels/me [get]
func (h *LevelHandler) Me(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	record, err := h.service.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, dto.LevelResponse{Record: *record})
}

// Recalculate godoc
// @Summary Recompute the caller's level from the configured metric
// @Tags Levels
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /levels/me/recalculate [post]
func (h *LevelHandler) Recalculate(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	record, leveledUp, err := h.service.Recalculate(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, dto.LevelResponse{Record: *record, LeveledUp: leveledUp})
}
