package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-progression-api/internal/models"
	appErrors "github.com/noah-isme/sma-progression-api/pkg/errors"
)

type activityLogStore interface {
	Append(ctx context.Context, entry *models.ActivityLogEntry) error
	DistinctDates(ctx context.Context, userID, timezone string) ([]time.Time, error)
}

// StreakService computes consecutive-day engagement streaks from the activity log.
type StreakService struct {
	repo     activityLogStore
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewStreakService constructs the streak calculator. Days are bucketed in location (UTC when nil).
func NewStreakService(repo activityLogStore, location *time.Location, logger *zap.Logger) *StreakService {
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreakService{repo: repo, location: location, logger: logger, now: time.Now}
}

// ParseEngagementKind converts user input into a known engagement kind.
func ParseEngagementKind(raw string) (models.EngagementKind, error) {
	kind := models.EngagementKind(strings.ToUpper(strings.TrimSpace(raw)))
	if !kind.Valid() {
		return "", appErrors.Clone(appErrors.ErrValidation, "unknown engagement kind")
	}
	return kind, nil
}

// RecordEngagement appends an activity log entry for the user.
func (s *StreakService) RecordEngagement(ctx context.Context, userID string, kind models.EngagementKind) error {
	if strings.TrimSpace(userID) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "user is required")
	}
	if !kind.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown engagement kind")
	}
	entry := &models.ActivityLogEntry{UserID: userID, Kind: kind, OccurredAt: s.now().UTC()}
	if err := s.repo.Append(ctx, entry); err != nil {
		return appErrors.Internal(err, "failed to record engagement")
	}
	return nil
}

// CalculateStreak returns the number of consecutive active days ending today or yesterday.
func (s *StreakService) CalculateStreak(ctx context.Context, userID string) (int, error) {
	summary, err := s.Summary(ctx, userID)
	if err != nil {
		return 0, err
	}
	return summary.CurrentStreak, nil
}

// Summary returns the current streak and the last active date.
func (s *StreakService) Summary(ctx context.Context, userID string) (*models.StreakSummary, error) {
	days, err := s.repo.DistinctDates(ctx, userID, s.location.String())
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load activity dates")
	}
	summary := &models.StreakSummary{UserID: userID}
	if len(days) > 0 {
		last := dateOf(days[0])
		summary.LastActiveDate = &last
	}
	summary.CurrentStreak = calculateStreak(days, dateOf(s.now().In(s.location)))
	return summary, nil
}

// calculateStreak counts consecutive days walking back from the newest date. days must be
// distinct and newest first. A streak whose newest day is before yesterday is broken.
func calculateStreak(days []time.Time, today time.Time) int {
	// entries stamped after today (clock skew) are ignored
	for len(days) > 0 && dateOf(days[0]).After(today) {
		days = days[1:]
	}
	if len(days) == 0 {
		return 0
	}
	expected := dateOf(days[0])
	if daysBetween(expected, today) > 1 {
		return 0
	}
	streak := 0
	for _, day := range days {
		d := dateOf(day)
		if !d.Equal(expected) {
			break
		}
		streak++
		expected = expected.AddDate(0, 0, -1)
	}
	return streak
}

// dateOf strips the clock, keeping the calendar date as seen in t's location.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
