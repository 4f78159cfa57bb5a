package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-progression-api/internal/dto"
	"github.com/noah-isme/sma-progression-api/internal/middleware"
	"github.com/noah-isme/sma-progression-api/internal/models"
	"github.com/noah-isme/sma-progression-api/internal/service"
	"github.com/noah-isme/sma-progression-api/pkg/response"
)

type leaderboardService interface {
	ClampLimit(limit int) int
	GetLeaderboard(ctx context.Context, metric models.LeaderboardMetric, timeRange models.TimeRange, limit int) ([]models.LeaderboardEntry, bool, error)
	GetUserPosition(ctx context.Context, userID string, metric models.LeaderboardMetric, timeRange models.TimeRange) (*models.UserPosition, error)
}

// LeaderboardHandler serves ranked leaderboards.
type LeaderboardHandler struct {
	service leaderboardService
}

// NewLeaderboardHandler builds a new handler.
func NewLeaderboardHandler(service leaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{service: service}
}

// Get godoc
// @Summary Ranked leaderboard page
// @Tags Leaderboard
// @Produce json
// @Param metric query string true "BADGES_EARNED, HOURS_LOGGED, MISSIONS_COMPLETED or CHALLENGES_WON"
// @Param range query string false "WEEKLY, MONTHLY, CURRENT_SEMESTER or ALL_TIME"
// @Param limit query int false "Rows to return (max 100)"
// @Success 200 {object} response.Envelope
// @Router /leaderboard [get]
func (h *LeaderboardHandler) Get(c *gin.Context) {
	metric, timeRange, err := service.ParseLeaderboardQuery(c.Query("metric"), c.Query("range"))
	if err != nil {
		response.Error(c, err)
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		response.Error(c, err)
		return
	}
	limit = h.service.ClampLimit(limit)

	entries, cacheHit, err := h.service.GetLeaderboard(c.Request.Context(), metric, timeRange, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	respondOK(c, dto.LeaderboardResponse{Metric: metric, Range: timeRange, Limit: limit, Entries: entries})
}

// Me godoc
// @Summary The caller's rank on a leaderboard
// @Tags Leaderboard
// @Produce json
// @Param metric query string true "Leaderboard metric"
// @Param range query string false "Time range"
// @Success 200 {object} response.Envelope
// @Router /leaderboard/me [get]
func (h *LeaderboardHandler) Me(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	metric, timeRange, err := service.ParseLeaderboardQuery(c.Query("metric"), c.Query("range"))
	if err != nil {
		response.Error(c, err)
		return
	}
	position, err := h.service.GetUserPosition(c.Request.Context(), claims.UserID, metric, timeRange)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, position)
}
