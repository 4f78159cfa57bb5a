package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-progression-api/internal/dto"
	"github.com/noah-isme/sma-progression-api/internal/models"
	appErrors "github.com/noah-isme/sma-progression-api/pkg/errors"
	"github.com/noah-isme/sma-progression-api/pkg/response"
)

type badgeService interface {
	AwardAuto(ctx context.Context, learnerID, badgeID, sourceRef string) (bool, error)
	SubmitForReview(ctx context.Context, teacherID string, req dto.SubmitBadgeRequest) (string, error)
	Review(ctx context.Context, submissionID string, req dto.ReviewBadgeRequest, reviewerID string) error
	ListAwards(ctx context.Context, userID string) ([]models.BadgeAward, error)
	ListSubmissions(ctx context.Context, query dto.BadgeSubmissionQuery) ([]models.BadgeAward, error)
}

// BadgeHandler handles badge awards and the evidence review queue.
type BadgeHandler struct {
	service badgeService
}

// NewBadgeHandler builds a new handler.
func NewBadgeHandler(service badgeService) *BadgeHandler {
	return &BadgeHandler{service: service}
}

// Award godoc
// @Summary Grant a badge to a learner
// @Tags Badges
// @Accept json
// @Produce json
// @Param badgeId path string true "Badge ID"
// @Param payload body dto.AwardBadgeRequest true "Award payload"
// @Success 200 {object} response.Envelope
// @Router /badges/{badgeId}/award [post]
func (h *BadgeHandler) Award(c *gin.Context) {
	var req dto.AwardBadgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	if req.LearnerID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "learnerId is required"))
		return
	}
	awarded, err := h.service.AwardAuto(c.Request.Context(), req.LearnerID, c.Param("badgeId"), req.SourceRef)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, dto.AwardBadgeResponse{Awarded: awarded})
}

// ListMine godoc
// @Summary List the caller's approved badges
// @Tags Badges
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /badges/awards [get]
func (h *BadgeHandler) ListMine(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	awards, err := h.service.ListAwards(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if awards == nil {
		awards = []models.BadgeAward{}
	}
	respondOK(c, awards)
}

// Submit godoc
// @Summary Submit evidence for a teacher badge
// @Tags Badges
// @Accept json
// @Produce json
// @Param payload body dto.SubmitBadgeRequest true "Evidence"
// @Success 201 {object} response.Envelope
// @Router /badges/submissions [post]
func (h *BadgeHandler) Submit(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.SubmitBadgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	id, err := h.service.SubmitForReview(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.SubmitBadgeResponse{SubmissionID: id})
}

// ListSubmissions godoc
// @Summary List badge submissions for review
// @Tags Badges
// @Produce json
// @Param status query string false "PENDING, APPROVED or REJECTED"
// @Param userId query string false "Submitter"
// @Param badgeId query string false "Badge"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /badges/submissions [get]
func (h *BadgeHandler) ListSubmissions(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		response.Error(c, err)
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		response.Error(c, err)
		return
	}
	query := dto.BadgeSubmissionQuery{
		Status:  c.Query("status"),
		UserID:  c.Query("userId"),
		BadgeID: c.Query("badgeId"),
		Limit:   limit,
		Offset:  offset,
	}
	rows, err := h.service.ListSubmissions(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	if rows == nil {
		rows = []models.BadgeAward{}
	}
	respondOK(c, rows)
}

// Review godoc
// @Summary Approve or reject a badge submission
// @Tags Badges
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body dto.ReviewBadgeRequest true "Decision"
// @Success 204
// @Router /badges/submissions/{id}/review [post]
func (h *BadgeHandler) Review(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.ReviewBadgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	if err := h.service.Review(c.Request.Context(), c.Param("id"), req, claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
