package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-progression-api/internal/models"
)

type badgeGranter interface {
	Grant(ctx context.Context, learnerID, badgeID, sourceRef string) (*models.ProgressionEvent, error)
}

type hoursCreditor interface {
	Credit(ctx context.Context, learnerID string, activityType models.HoursActivityType, activityID string, hours float64) (*models.ProgressionEvent, error)
}

type levelRecalculator interface {
	Recalculate(ctx context.Context, learnerID string) (*models.LevelRecord, bool, error)
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// RewardHook grants a completed mission's badge and hours, and credits a badge's CPD hours.
type RewardHook struct {
	badges badgeGranter
	hours  hoursCreditor
}

// NewRewardHook constructs the reward hook.
func NewRewardHook(badges badgeGranter, hours hoursCreditor) *RewardHook {
	return &RewardHook{badges: badges, hours: hours}
}

// Name implements ProgressionHook.
func (h *RewardHook) Name() string { return "reward" }

// Handle implements ProgressionHook.
func (h *RewardHook) Handle(ctx context.Context, event models.ProgressionEvent) ([]models.ProgressionEvent, error) {
	switch event.Kind {
	case models.EventMissionCompleted:
		var followUps []models.ProgressionEvent
		if event.BadgeID != "" {
			awarded, err := h.badges.Grant(ctx, event.UserID, event.BadgeID, "mission:"+event.MissionID)
			if err != nil {
				return followUps, err
			}
			if awarded != nil {
				followUps = append(followUps, *awarded)
			}
		}
		if event.Hours > 0 {
			credited, err := h.hours.Credit(ctx, event.UserID, event.HoursType, event.MissionID, event.Hours)
			if err != nil {
				return followUps, err
			}
			if credited != nil {
				followUps = append(followUps, *credited)
			}
		}
		return followUps, nil
	case models.EventBadgeAwarded:
		if event.Hours <= 0 {
			return nil, nil
		}
		credited, err := h.hours.Credit(ctx, event.UserID, models.HoursActivityBadge, event.BadgeID, event.Hours)
		if err != nil || credited == nil {
			return nil, err
		}
		return []models.ProgressionEvent{*credited}, nil
	case models.EventHoursRecorded, models.EventLevelUp:
	}
	return nil, nil
}

// LevelingHook recalculates the level when the scheme's metric moves and emits LEVEL_UP.
type LevelingHook struct {
	levels levelRecalculator
	metric models.LevelMetric
	now    func() time.Time
}

// NewLevelingHook constructs the leveling hook for a scheme metric.
func NewLevelingHook(levels levelRecalculator, metric models.LevelMetric) *LevelingHook {
	return &LevelingHook{levels: levels, metric: metric, now: time.Now}
}

// Name implements ProgressionHook.
func (h *LevelingHook) Name() string { return "leveling" }

// Handle implements ProgressionHook.
func (h *LevelingHook) Handle(ctx context.Context, event models.ProgressionEvent) ([]models.ProgressionEvent, error) {
	switch event.Kind {
	case models.EventBadgeAwarded:
		if h.metric != models.LevelMetricBadges {
			return nil, nil
		}
	case models.EventHoursRecorded:
		if h.metric != models.LevelMetricHours {
			return nil, nil
		}
	case models.EventMissionCompleted:
		// A linked badge or hours credit recalculates through its own follow-up event.
		if (h.metric == models.LevelMetricBadges && event.BadgeID != "") ||
			(h.metric == models.LevelMetricHours && event.Hours > 0) {
			return nil, nil
		}
	case models.EventLevelUp:
		return nil, nil
	}

	record, leveledUp, err := h.levels.Recalculate(ctx, event.UserID)
	if err != nil || !leveledUp {
		return nil, err
	}
	return []models.ProgressionEvent{{
		Kind:       models.EventLevelUp,
		UserID:     event.UserID,
		Level:      record.CurrentLevel,
		LevelName:  record.LevelName,
		OccurredAt: h.now().UTC(),
	}}, nil
}

// LeaderboardCacheHook drops cached leaderboards when a scoring event lands.
type LeaderboardCacheHook struct {
	cache  cacheInvalidator
	logger *zap.Logger
}

// NewLeaderboardCacheHook constructs the cache invalidation hook.
func NewLeaderboardCacheHook(cache cacheInvalidator, logger *zap.Logger) *LeaderboardCacheHook {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaderboardCacheHook{cache: cache, logger: logger}
}

// Name implements ProgressionHook.
func (h *LeaderboardCacheHook) Name() string { return "leaderboard_cache" }

// Handle implements ProgressionHook. Only the metric the event scores is dropped; failures leave
// stale pages until the TTL expires, so they are logged and swallowed.
func (h *LeaderboardCacheHook) Handle(ctx context.Context, event models.ProgressionEvent) ([]models.ProgressionEvent, error) {
	for _, metric := range MetricsAffectedBy(event.Kind) {
		if err := h.cache.Invalidate(ctx, LeaderboardMetricPattern(metric)); err != nil {
			h.logger.Warn("leaderboard cache invalidation failed",
				zap.String("kind", string(event.Kind)),
				zap.String("metric", string(metric)),
				zap.Error(err))
		}
	}
	return nil, nil
}

// MetricsHook counts dispatched events.
type MetricsHook struct {
	metrics *MetricsService
}

// NewMetricsHook constructs the metrics hook.
func NewMetricsHook(metrics *MetricsService) *MetricsHook {
	return &MetricsHook{metrics: metrics}
}

// Name implements ProgressionHook.
func (h *MetricsHook) Name() string { return "metrics" }

// Handle implements ProgressionHook.
func (h *MetricsHook) Handle(_ context.Context, event models.ProgressionEvent) ([]models.ProgressionEvent, error) {
	h.metrics.RecordProgressionEvent(event)
	return nil, nil
}

// NotificationHook forwards milestones to the notifier.
type NotificationHook struct {
	notifier Notifier
}

// NewNotificationHook constructs the notification hook.
func NewNotificationHook(notifier Notifier) *NotificationHook {
	return &NotificationHook{notifier: notifier}
}

// Name implements ProgressionHook.
func (h *NotificationHook) Name() string { return "notification" }

// Handle implements ProgressionHook.
func (h *NotificationHook) Handle(ctx context.Context, event models.ProgressionEvent) ([]models.ProgressionEvent, error) {
	if h.notifier == nil {
		return nil, nil
	}
	switch event.Kind {
	case models.EventBadgeAwarded:
		h.notifier.NotifyBadgeEarned(ctx, event.UserID, event.BadgeID, event.Source)
	case models.EventLevelUp:
		h.notifier.NotifyLevelUp(ctx, event.UserID, event.Level, event.LevelName)
	case models.EventMissionCompleted:
		h.notifier.NotifyMissionCompleted(ctx, event.UserID, event.MissionID)
	case models.EventHoursRecorded:
	}
	return nil, nil
}
