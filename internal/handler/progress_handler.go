package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-progression-api/internal/dto"
	"github.com/noah-isme/sma-progression-api/internal/models"
	appErrors "github.com/noah-isme/sma-progression-api/pkg/errors"
	"github.com/noah-isme/sma-progression-api/pkg/response"
)

type progressService interface {
	RecordActivityCompletion(ctx context.Context, req dto.RecordActivityRequest) (*dto.MissionProgressSnapshot, error)
	GetMissionProgress(ctx context.Context, learnerID, missionID string) (*models.MissionProgress, error)
	ListMissionProgress(ctx context.Context, learnerID, status string, limit int) ([]models.MissionProgress, error)
}

// ProgressHandler exposes mission progress endpoints for the signed-in learner.
type ProgressHandler struct {
	service progressService
}

// NewProgressHandler builds a new handler.
func NewProgressHandler(service progressService) *ProgressHandler {
	return &ProgressHandler{service: service}
}

// RecordCompletion godoc
// @Summary Mark a mission activity complete or incomplete
// @Tags Missions
// @Accept json
// @Produce json
// @Param missionId path string true "Mission ID"
// @Param activityId path string true "Activity ID"
// @Param payload body dto.RecordActivityRequest true "Completion flag"
// @Success 200 {object} response.Envelope
// @Router /missions/{missionId}/activities/{activityId}/completion [post]
func (h *ProgressHandler) RecordCompletion(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.RecordActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	req.LearnerID = claims.UserID
	req.MissionID = c.Param("missionId")
	req.ActivityID = c.Param("activityId")

	snapshot, err := h.service.RecordActivityCompletion(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, snapshot)
}

// Get godoc
// @Summary Get the caller's progress on one mission
// @Tags Missions
// @Produce json
// @Param missionId path string true "Mission ID"
// @Success 200 {object} response.Envelope
// @Router /missions/{missionId}/progress [get]
func (h *ProgressHandler) Get(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	progress, err := h.service.GetMissionProgress(c.Request.Context(), claims.UserID, c.Param("missionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, progress)
}

// List godoc
// @Summary List the caller's mission progress
// @Tags Missions
// @Produce json
// @Param status query string false "NOT_STARTED, IN_PROGRESS or COMPLETED"
// @Param limit query int false "Page size (max 50)"
// @Success 200 {object} response.Envelope
// @Router /missions/progress [get]
func (h *ProgressHandler) List(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		response.Error(c, err)
		return
	}
	rows, err := h.service.ListMissionProgress(c.Request.Context(), claims.UserID, c.Query("status"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	if rows == nil {
		rows = []models.MissionProgress{}
	}
	respondOK(c, rows)
}
