package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-progression-api/internal/models"
	appErrors "github.com/noah-isme/sma-progression-api/pkg/errors"
)

// LeaderboardCachePattern matches every cached leaderboard page.
const LeaderboardCachePattern = "leaderboard:*"

// LeaderboardCacheKey is the cache key for one (metric, range) leaderboard.
func LeaderboardCacheKey(metric models.LeaderboardMetric, timeRange models.TimeRange) string {
	return fmt.Sprintf("leaderboard:%s:%s", metric, timeRange)
}

// LeaderboardMetricPattern matches every range cached for metric.
func LeaderboardMetricPattern(metric models.LeaderboardMetric) string {
	return fmt.Sprintf("leaderboard:%s:*", metric)
}

// MetricsAffectedBy lists the leaderboard metrics whose scores move when an event of kind lands.
func MetricsAffectedBy(kind models.ProgressionEventKind) []models.LeaderboardMetric {
	switch kind {
	case models.EventBadgeAwarded:
		return []models.LeaderboardMetric{models.MetricBadgesEarned}
	case models.EventHoursRecorded:
		return []models.LeaderboardMetric{models.MetricHoursLogged}
	case models.EventMissionCompleted:
		return []models.LeaderboardMetric{models.MetricMissionsCompleted}
	default:
		return nil
	}
}

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService fronts the leaderboard page cache. Reads record hit ratios;
// a broken cache degrades to recomputation and never fails the ranking path.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
	generation atomic.Uint64
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get attempts to retrieve a cached entry. It returns true when the cache was hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	duration := time.Since(start)
	if err != nil {
		s.metrics.RecordCacheOperation(false, duration)
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return false, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	s.metrics.RecordCacheOperation(true, duration)
	return true, nil
}

// Set stores the value in cache.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Generation changes on every Invalidate. A loader compares it before and after a recompute
// so it never stores a page computed from data an invalidation already superseded.
func (s *CacheService) Generation() uint64 {
	if s == nil {
		return 0
	}
	return s.generation.Load()
}

// Invalidate drops every cached page matching pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	s.generation.Add(1)
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}
