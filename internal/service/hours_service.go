package service

import (
	"context"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-progression-api/internal/models"
	"github.com/noah-isme/sma-progression-api/pkg/database"
	appErrors "github.com/noah-isme/sma-progression-api/pkg/errors"
)

const (
	defaultRecentHours = 10
	maxRecentHours     = 20
	maxLedgerHours     = 999999.99
)

type hoursStore interface {
	Insert(ctx context.Context, entry *models.HoursLedgerEntry) (bool, error)
	Exists(ctx context.Context, userID string, activityType models.HoursActivityType, activityID string) (bool, error)
	SumHours(ctx context.Context, userID string, from, to *time.Time) (float64, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]models.HoursLedgerEntry, error)
}

// HoursService maintains the idempotent hours ledger.
type HoursService struct {
	repo      hoursStore
	publisher progressionPublisher
	logger    *zap.Logger
	cpdTarget float64
	now       func() time.Time
}

// NewHoursService constructs the ledger service. cpdTarget is the annual CPD hours goal.
func NewHoursService(repo hoursStore, publisher progressionPublisher, cpdTarget float64, logger *zap.Logger) *HoursService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &HoursService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		cpdTarget: cpdTarget,
		now:       time.Now,
	}
}

// ParseHoursActivityType converts user input into a known activity type.
func ParseHoursActivityType(raw string) (models.HoursActivityType, error) {
	activityType := models.HoursActivityType(strings.ToUpper(strings.TrimSpace(raw)))
	if !activityType.Valid() {
		return "", appErrors.Clone(appErrors.ErrValidation, "unknown activity type")
	}
	return activityType, nil
}

// ParseSelfReportedHoursType parses an activity type a user may log for themselves.
func ParseSelfReportedHoursType(raw string) (models.HoursActivityType, error) {
	activityType, err := ParseHoursActivityType(raw)
	if err != nil {
		return "", err
	}
	if !activityType.SelfReported() {
		return "", appErrors.Clone(appErrors.ErrValidation, "activity type is credited automatically")
	}
	return activityType, nil
}

// RecordHours credits hours for a discrete activity and runs the post-commit hooks.
// It returns the hours newly credited: 0 for non-positive hours or an already credited activity.
// A hook failure is returned alongside the credited hours since the ledger write is committed.
func (s *HoursService) RecordHours(ctx context.Context, learnerID string, activityType models.HoursActivityType, activityID string, hours float64) (float64, error) {
	event, err := s.Credit(ctx, learnerID, activityType, activityID, hours)
	if err != nil || event == nil {
		return 0, err
	}
	if _, err := s.publisher.Publish(ctx, *event); err != nil {
		return event.Hours, appErrors.Internal(err, "hours recorded but follow-up processing failed")
	}
	return event.Hours, nil
}

// Credit writes the ledger entry without publishing. It returns the HOURS_RECORDED event,
// or nil when nothing was credited.
func (s *HoursService) Credit(ctx context.Context, learnerID string, activityType models.HoursActivityType, activityID string, hours float64) (*models.ProgressionEvent, error) {
	if strings.TrimSpace(learnerID) == "" || strings.TrimSpace(activityID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "learner and activity are required")
	}
	if !activityType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown activity type")
	}
	if math.IsNaN(hours) || math.IsInf(hours, 0) {
		return nil, nil
	}
	// Ledger column is NUMERIC(8,2).
	hours = roundTo2(hours)
	if hours <= 0 {
		return nil, nil
	}
	if hours > maxLedgerHours {
		return nil, appErrors.Clone(appErrors.ErrValidation, "hours exceed the ledger maximum")
	}

	exists, err := s.repo.Exists(ctx, learnerID, activityType, activityID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check hours ledger")
	}
	if exists {
		return nil, nil
	}

	now := s.now().UTC()
	entry := &models.HoursLedgerEntry{
		UserID:       learnerID,
		ActivityType: activityType,
		ActivityID:   activityID,
		Hours:        hours,
		RecordedAt:   now,
	}
	inserted, err := s.repo.Insert(ctx, entry)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to record hours")
	}
	if !inserted {
		return nil, nil
	}

	s.logger.Info("hours credited",
		zap.String("user_id", learnerID),
		zap.String("activity_type", string(activityType)),
		zap.String("activity_id", activityID),
		zap.Float64("hours", hours))

	return &models.ProgressionEvent{
		Kind:       models.EventHoursRecorded,
		UserID:     learnerID,
		Hours:      hours,
		HoursType:  activityType,
		ActivityID: activityID,
		OccurredAt: now,
	}, nil
}

// GetTotal sums the learner's hours. Nil bounds are open; to is exclusive.
func (s *HoursService) GetTotal(ctx context.Context, learnerID string, from, to *time.Time) (float64, error) {
	if from != nil && to != nil && from.After(*to) {
		return 0, appErrors.Clone(appErrors.ErrValidation, "from must not be after to")
	}
	total, err := s.repo.SumHours(ctx, learnerID, from, to)
	if err != nil {
		return 0, appErrors.Internal(err, "failed to total hours")
	}
	return total, nil
}

// CPDSummary reports progress against the annual target for a calendar year (UTC).
// A zero year means the current year.
func (s *HoursService) CPDSummary(ctx context.Context, userID string, year int) (*models.CPDSummary, error) {
	if year == 0 {
		year = s.now().UTC().Year()
	}
	if year < 2000 || year > 9999 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid year")
	}
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)
	earned, err := s.GetTotal(ctx, userID, &from, &to)
	if err != nil {
		return nil, err
	}

	summary := &models.CPDSummary{UserID: userID, Year: year, Target: s.cpdTarget, Earned: earned}
	summary.Remaining = math.Max(s.cpdTarget-earned, 0)
	if s.cpdTarget > 0 {
		summary.Percentage = roundTo2(math.Min(earned/s.cpdTarget*100, 100))
	} else {
		summary.Percentage = 100
	}
	return summary, nil
}

// RecentEntries lists the user's latest ledger entries (at most 20).
func (s *HoursService) RecentEntries(ctx context.Context, userID string, limit int) ([]models.HoursLedgerEntry, error) {
	if limit <= 0 {
		limit = defaultRecentHours
	}
	if limit > maxRecentHours {
		limit = maxRecentHours
	}
	entries, err := s.repo.ListRecent(ctx, userID, limit)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list hours")
	}
	return entries, nil
}

func roundTo2(value float64) float64 {
	return math.Round(value*100) / 100
}
