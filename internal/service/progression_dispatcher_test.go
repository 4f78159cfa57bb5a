package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-progression-api/internal/models"
)

type funcHook struct {
	name   string
	handle func(ctx context.Context, event models.ProgressionEvent) ([]models.ProgressionEvent, error)
	seen   []models.ProgressionEventKind
}

func (h *funcHook) Name() string { return h.name }

func (h *funcHook) Handle(ctx context.Context, event models.ProgressionEvent) ([]models.ProgressionEvent, error) {
	h.seen = append(h.seen, event.Kind)
	if h.handle == nil {
		return nil, nil
	}
	return h.handle(ctx, event)
}

func TestProgressionDispatcherRunsFollowUpsInOrder(t *testing.T) {
	var order []string
	first := &funcHook{name: "first", handle: func(ctx context.Context, event models.ProgressionEvent) ([]models.ProgressionEvent, error) {
		order = append(order, "first:"+string(event.Kind))
		if event.Kind == models.EventMissionCompleted {
			return []models.ProgressionEvent{{Kind: models.EventBadgeAwarded, UserID: event.UserID}}, nil
		}
		return nil, nil
	}}
	second := &funcHook{name: "second", handle: func(ctx context.Context, event models.ProgressionEvent) ([]models.ProgressionEvent, error) {
		order = append(order, "second:"+string(event.Kind))
		if event.Kind == models.EventBadgeAwarded {
			return []models.ProgressionEvent{{Kind: models.EventLevelUp, UserID: event.UserID}}, nil
		}
		return nil, nil
	}}

	dispatcher := NewProgressionDispatcher(nil)
	dispatcher.Register(first, nil, second)

	processed, err := dispatcher.Publish(context.Background(), models.ProgressionEvent{Kind: models.EventMissionCompleted, UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, processed, 3)
	assert.Equal(t, models.EventLevelUp, processed[2].Kind)
	assert.Equal(t, []string{
		"first:MISSION_COMPLETED", "second:MISSION_COMPLETED",
		"first:BADGE_AWARDED", "second:BADGE_AWARDED",
		"first:LEVEL_UP", "second:LEVEL_UP",
	}, order)
}

func TestProgressionDispatcherContinuesAfterHookError(t *testing.T) {
	failing := &funcHook{name: "failing", handle: func(ctx context.Context, event models.ProgressionEvent) ([]models.ProgressionEvent, error) {
		if event.Kind != models.EventLevelUp {
			return nil, nil
		}
		return []models.ProgressionEvent{{Kind: models.EventHoursRecorded}}, errors.New("boom")
	}}
	after := &funcHook{name: "after"}

	dispatcher := NewProgressionDispatcher(nil)
	dispatcher.Register(failing, after)

	processed, err := dispatcher.Publish(context.Background(), models.ProgressionEvent{Kind: models.EventLevelUp})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failing hook")
	assert.Equal(t, []models.ProgressionEventKind{models.EventLevelUp, models.EventHoursRecorded}, after.seen)
	assert.Len(t, processed, 2)
}

func TestProgressionDispatcherStopsRunawayChains(t *testing.T) {
	loop := &funcHook{name: "loop", handle: func(ctx context.Context, event models.ProgressionEvent) ([]models.ProgressionEvent, error) {
		return []models.ProgressionEvent{event}, nil
	}}
	dispatcher := NewProgressionDispatcher(nil)
	dispatcher.Register(loop)

	processed, err := dispatcher.Publish(context.Background(), models.ProgressionEvent{Kind: models.EventHoursRecorded})
	require.Error(t, err)
	assert.Len(t, processed, defaultMaxProgressionEvents)
}

type cacheInvalidatorStub struct {
	patterns []string
	err      error
}

func (s *cacheInvalidatorStub) Invalidate(ctx context.Context, pattern string) error {
	s.patterns = append(s.patterns, pattern)
	return s.err
}

type notifierStub struct {
	badges   []string
	levels   []int
	missions []string
}

func (n *notifierStub) NotifyBadgeEarned(ctx context.Context, userID, badgeID string, source models.BadgeSource) {
	n.badges = append(n.badges, badgeID)
}

func (n *notifierStub) NotifyLevelUp(ctx context.Context, userID string, level int, levelName string) {
	n.levels = append(n.levels, level)
}

func (n *notifierStub) NotifyMissionCompleted(ctx context.Context, userID, missionID string) {
	n.missions = append(n.missions, missionID)
}

func TestLeaderboardCacheHookSwallowsErrors(t *testing.T) {
	cache := &cacheInvalidatorStub{err: errors.New("redis down")}
	hook := NewLeaderboardCacheHook(cache, nil)

	followUps, err := hook.Handle(context.Background(), models.ProgressionEvent{Kind: models.EventBadgeAwarded})
	require.NoError(t, err)
	assert.Empty(t, followUps)

	_, err = hook.Handle(context.Background(), models.ProgressionEvent{Kind: models.EventLevelUp})
	require.NoError(t, err)
	assert.Equal(t, []string{"leaderboard:BADGES_EARNED:*"}, cache.patterns)
}

func TestLeaderboardCacheHookTargetsScoredMetric(t *testing.T) {
	cache := &cacheInvalidatorStub{}
	hook := NewLeaderboardCacheHook(cache, nil)
	ctx := context.Background()

	for _, kind := range []models.ProgressionEventKind{models.EventHoursRecorded, models.EventMissionCompleted} {
		_, err := hook.Handle(ctx, models.ProgressionEvent{Kind: kind})
		require.NoError(t, err)
	}
	assert.Equal(t, []string{
		LeaderboardMetricPattern(models.MetricHoursLogged),
		LeaderboardMetricPattern(models.MetricMissionsCompleted),
	}, cache.patterns)
}

func TestNotificationHookRoutesByKind(t *testing.T) {
	notifier := &notifierStub{}
	hook := NewNotificationHook(notifier)
	ctx := context.Background()

	for _, event := range []models.ProgressionEvent{
		{Kind: models.EventBadgeAwarded, BadgeID: "explorer"},
		{Kind: models.EventLevelUp, Level: 2},
		{Kind: models.EventMissionCompleted, MissionID: "m1"},
		{Kind: models.EventHoursRecorded},
	} {
		_, err := hook.Handle(ctx, event)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"explorer"}, notifier.badges)
	assert.Equal(t, []int{2}, notifier.levels)
	assert.Equal(t, []string{"m1"}, notifier.missions)

	_, err := NewNotificationHook(nil).Handle(ctx, models.ProgressionEvent{Kind: models.EventLevelUp})
	require.NoError(t, err)
}

func TestLevelingHookFiltersByMetric(t *testing.T) {
	store := newMemoryLevelStore()
	levels := NewLevelingService(store, &badgeCountStub{count: 3}, &memoryHoursStore{}, DefaultLevelScheme(), nil)
	hook := NewLevelingHook(levels, models.LevelMetricBadges)
	hook.now = fixedClock
	ctx := context.Background()

	followUps, err := hook.Handle(ctx, models.ProgressionEvent{Kind: models.EventHoursRecorded, UserID: "student-1"})
	require.NoError(t, err)
	assert.Empty(t, followUps)
	assert.Empty(t, store.records)

	followUps, err = hook.Handle(ctx, models.ProgressionEvent{Kind: models.EventBadgeAwarded, UserID: "student-1"})
	require.NoError(t, err)
	require.Len(t, followUps, 1)
	assert.Equal(t, models.EventLevelUp, followUps[0].Kind)
	assert.Equal(t, 2, followUps[0].Level)
	assert.Equal(t, "Intermediate", followUps[0].LevelName)

	followUps, err = hook.Handle(ctx, models.ProgressionEvent{Kind: models.EventBadgeAwarded, UserID: "student-1"})
	require.NoError(t, err)
	assert.Empty(t, followUps)
}

func TestLevelingHookRecalculatesOnBadgelessMission(t *testing.T) {
	store := newMemoryLevelStore()
	levels := NewLevelingService(store, &badgeCountStub{}, &memoryHoursStore{}, DefaultLevelScheme(), nil)
	hook := NewLevelingHook(levels, models.LevelMetricBadges)
	hook.now = fixedClock
	ctx := context.Background()

	followUps, err := hook.Handle(ctx, models.ProgressionEvent{Kind: models.EventMissionCompleted, UserID: "student-1", MissionID: "m1", BadgeID: "b1"})
	require.NoError(t, err)
	assert.Empty(t, followUps)
	assert.Empty(t, store.records)

	followUps, err = hook.Handle(ctx, models.ProgressionEvent{Kind: models.EventMissionCompleted, UserID: "student-1", MissionID: "m2"})
	require.NoError(t, err)
	assert.Empty(t, followUps)
	require.Contains(t, store.records, "student-1")
	assert.Equal(t, 1, store.records["student-1"].CurrentLevel)
}

func TestMetricsHookCountsEvents(t *testing.T) {
	metrics := NewMetricsService()
	hook := NewMetricsHook(metrics)
	_, err := hook.Handle(context.Background(), models.ProgressionEvent{Kind: models.EventLevelUp})
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.levelUps))

	_, err = NewMetricsHook(nil).Handle(context.Background(), models.ProgressionEvent{Kind: models.EventLevelUp})
	require.NoError(t, err)
}
