package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-progression-api/internal/dto"
	"github.com/noah-isme/sma-progression-api/internal/models"
	"github.com/noah-isme/sma-progression-api/internal/repository"
	appErrors "github.com/noah-isme/sma-progression-api/pkg/errors"
)

type badgeStore interface {
	GetBadge(ctx context.Context, id string) (*models.Badge, error)
	HasApprovedAward(ctx context.Context, userID, badgeID string) (bool, error)
	InsertApprovedAward(ctx context.Context, award *models.BadgeAward) (bool, error)
	CreateSubmission(ctx context.Context, award *models.BadgeAward) error
	GetAward(ctx context.Context, id string) (*models.BadgeAward, error)
	Review(ctx context.Context, params repository.ReviewAwardParams) error
	ListApprovedAwards(ctx context.Context, userID string) ([]models.BadgeAward, error)
	ListSubmissions(ctx context.Context, filter models.BadgeSubmissionFilter) ([]models.BadgeAward, error)
	CountApproved(ctx context.Context, userID string) (int, error)
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// BadgeService grants badges automatically and runs the teacher evidence review workflow.
type BadgeService struct {
	repo      badgeStore
	users     userReader
	publisher progressionPublisher
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewBadgeService constructs the badge service.
func NewBadgeService(repo badgeStore, users userReader, publisher progressionPublisher, validate *validator.Validate, logger *zap.Logger) *BadgeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &BadgeService{
		repo:      repo,
		users:     users,
		publisher: publisher,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// AwardAuto grants an approved badge and runs the post-commit hooks. It returns false when
// the learner already holds the badge or the badge cannot be awarded to them. A hook failure
// is returned alongside true since the award is committed.
func (s *BadgeService) AwardAuto(ctx context.Context, learnerID, badgeID, sourceRef string) (bool, error) {
	event, err := s.Grant(ctx, learnerID, badgeID, sourceRef)
	if err != nil || event == nil {
		return false, err
	}
	if _, err := s.publisher.Publish(ctx, *event); err != nil {
		return true, appErrors.Internal(err, "badge awarded but follow-up processing failed")
	}
	return true, nil
}

// Grant writes an AUTO award without publishing. It returns the BADGE_AWARDED event, or nil
// when nothing was awarded.
func (s *BadgeService) Grant(ctx context.Context, learnerID, badgeID, sourceRef string) (*models.ProgressionEvent, error) {
	if strings.TrimSpace(learnerID) == "" || strings.TrimSpace(badgeID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "learner and badge are required")
	}

	held, err := s.repo.HasApprovedAward(ctx, learnerID, badgeID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check badge awards")
	}
	if held {
		return nil, nil
	}

	badge, err := s.repo.GetBadge(ctx, badgeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("auto award skipped: badge not found", zap.String("badge_id", badgeID))
			return nil, nil
		}
		return nil, appErrors.Internal(err, "failed to load badge")
	}
	if !badge.IsActive {
		return nil, nil
	}

	user, err := s.users.FindByID(ctx, learnerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Internal(err, "failed to load learner")
	}
	if !badge.TargetRole.Allows(user.Role) {
		return nil, nil
	}

	now := s.now().UTC()
	award := &models.BadgeAward{
		UserID:      learnerID,
		BadgeID:     badgeID,
		Source:      models.BadgeSourceAuto,
		SourceRef:   optionalString(sourceRef),
		EarnedAt:    &now,
		SubmittedAt: now,
	}
	inserted, err := s.repo.InsertApprovedAward(ctx, award)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to award badge")
	}
	if !inserted {
		return nil, nil
	}

	s.logger.Info("badge awarded", zap.String("user_id", learnerID), zap.String("badge_id", badgeID), zap.String("source_ref", sourceRef))
	return badgeAwardedEvent(learnerID, badge, models.BadgeSourceAuto, now), nil
}

// SubmitForReview records a teacher's evidence for a badge as a pending submission.
func (s *BadgeService) SubmitForReview(ctx context.Context, teacherID string, req dto.SubmitBadgeRequest) (string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	badge, err := s.repo.GetBadge(ctx, req.BadgeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "badge not found")
		}
		return "", appErrors.Internal(err, "failed to load badge")
	}
	if !badge.IsActive {
		return "", appErrors.Clone(appErrors.ErrPreconditionFailed, "badge is not active")
	}
	if !badge.TargetRole.Allows(models.RoleTeacher) {
		return "", appErrors.Clone(appErrors.ErrPreconditionFailed, "badge is not available to teachers")
	}

	held, err := s.repo.HasApprovedAward(ctx, teacherID, req.BadgeID)
	if err != nil {
		return "", appErrors.Internal(err, "failed to check badge awards")
	}
	if held {
		return "", appErrors.Clone(appErrors.ErrConflict, "badge already approved")
	}

	award := &models.BadgeAward{
		UserID:        teacherID,
		BadgeID:       req.BadgeID,
		EvidenceLink:  optionalString(req.EvidenceLink),
		EvidenceFiles: models.EvidenceFiles(req.EvidenceFiles),
		Notes:         optionalString(req.Notes),
		SubmittedAt:   s.now().UTC(),
	}
	if err := s.repo.CreateSubmission(ctx, award); err != nil {
		return "", appErrors.Internal(err, "failed to submit badge evidence")
	}
	return award.ID, nil
}

// Review approves or rejects a pending submission. Approval runs the post-commit hooks so
// the badge's CPD hours are credited.
func (s *BadgeService) Review(ctx context.Context, submissionID string, req dto.ReviewBadgeRequest, reviewerID string) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	submission, err := s.repo.GetAward(ctx, submissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return appErrors.Internal(err, "failed to load submission")
	}
	if submission.Source != models.BadgeSourceManual {
		return appErrors.Clone(appErrors.ErrNotFound, "submission not found")
	}
	if submission.ApprovalStatus != models.ApprovalPending {
		return appErrors.Clone(appErrors.ErrConflict, "submission already reviewed")
	}
	if submission.UserID == reviewerID {
		return appErrors.Clone(appErrors.ErrForbidden, "cannot review own submission")
	}

	status := models.ApprovalRejected
	if req.Approve {
		status = models.ApprovalApproved
	}
	now := s.now().UTC()
	err = s.repo.Review(ctx, repository.ReviewAwardParams{
		ID:            submissionID,
		Status:        status,
		ReviewerID:    reviewerID,
		ReviewerNotes: optionalString(req.ReviewerNotes),
		ReviewedAt:    now,
	})
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrConflict, "submission already reviewed")
	case errors.Is(err, repository.ErrAwardAlreadyApproved):
		return appErrors.Clone(appErrors.ErrConflict, "badge already approved")
	case err != nil:
		return appErrors.Internal(err, "failed to review submission")
	}

	s.logger.Info("badge submission reviewed",
		zap.String("submission_id", submissionID),
		zap.String("status", string(status)),
		zap.String("reviewer_id", reviewerID))

	if status != models.ApprovalApproved {
		return nil
	}

	badge, err := s.repo.GetBadge(ctx, submission.BadgeID)
	if err != nil {
		return appErrors.Internal(err, "submission approved but badge lookup failed")
	}
	if _, err := s.publisher.Publish(ctx, *badgeAwardedEvent(submission.UserID, badge, models.BadgeSourceManual, now)); err != nil {
		return appErrors.Internal(err, "submission approved but follow-up processing failed")
	}
	return nil
}

// ListAwards returns the user's approved badges.
func (s *BadgeService) ListAwards(ctx context.Context, userID string) ([]models.BadgeAward, error) {
	awards, err := s.repo.ListApprovedAwards(ctx, userID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list badge awards")
	}
	return awards, nil
}

// ListSubmissions returns the reviewer queue.
func (s *BadgeService) ListSubmissions(ctx context.Context, query dto.BadgeSubmissionQuery) ([]models.BadgeAward, error) {
	filter := models.BadgeSubmissionFilter{
		UserID:  query.UserID,
		BadgeID: query.BadgeID,
		Limit:   query.Limit,
		Offset:  query.Offset,
	}
	if raw := strings.TrimSpace(query.Status); raw != "" {
		status := models.ApprovalStatus(strings.ToUpper(raw))
		if !status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown approval status")
		}
		filter.Status = &status
	}
	submissions, err := s.repo.ListSubmissions(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list submissions")
	}
	return submissions, nil
}

// CountApproved returns the number of badges the user holds.
func (s *BadgeService) CountApproved(ctx context.Context, userID string) (int, error) {
	count, err := s.repo.CountApproved(ctx, userID)
	if err != nil {
		return 0, appErrors.Internal(err, "failed to count badges")
	}
	return count, nil
}

func badgeAwardedEvent(userID string, badge *models.Badge, source models.BadgeSource, at time.Time) *models.ProgressionEvent {
	event := &models.ProgressionEvent{
		Kind:       models.EventBadgeAwarded,
		UserID:     userID,
		BadgeID:    badge.ID,
		Source:     source,
		OccurredAt: at,
	}
	if badge.CPDHoursValue != nil && *badge.CPDHoursValue > 0 {
		event.Hours = *badge.CPDHoursValue
		event.HoursType = models.HoursActivityBadge
		event.ActivityID = badge.ID
	}
	return event
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
