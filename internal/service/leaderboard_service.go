package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-progression-api/internal/models"
	"github.com/noah-isme/sma-progression-api/internal/repository"
	appErrors "github.com/noah-isme/sma-progression-api/pkg/errors"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

type leaderboardStore interface {
	TopScores(ctx context.Context, metric models.LeaderboardMetric, from *time.Time, limit int) ([]models.LeaderboardScore, error)
	Position(ctx context.Context, metric models.LeaderboardMetric, from *time.Time, userID string) (*repository.PositionRow, error)
}

type leaderboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
	Generation() uint64
}

// LeaderboardOptions tunes page sizes and caching.
type LeaderboardOptions struct {
	DefaultLimit int
	MaxLimit     int
	CacheTTL     time.Duration
}

// LeaderboardService ranks users by a metric over a time range.
type LeaderboardService struct {
	repo   leaderboardStore
	cache  leaderboardCache
	opts   LeaderboardOptions
	logger *zap.Logger
	now    func() time.Time
}

// NewLeaderboardService constructs the ranker. cache may be nil.
func NewLeaderboardService(repo leaderboardStore, cache leaderboardCache, opts LeaderboardOptions, logger *zap.Logger) *LeaderboardService {
	if opts.MaxLimit <= 0 || opts.MaxLimit > maxLeaderboardLimit {
		opts.MaxLimit = maxLeaderboardLimit
	}
	if opts.DefaultLimit <= 0 || opts.DefaultLimit > opts.MaxLimit {
		opts.DefaultLimit = defaultLeaderboardLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaderboardService{repo: repo, cache: cache, opts: opts, logger: logger, now: time.Now}
}

// ParseLeaderboardQuery validates the metric and range strings.
func ParseLeaderboardQuery(rawMetric, rawRange string) (models.LeaderboardMetric, models.TimeRange, error) {
	metric, err := models.ParseLeaderboardMetric(rawMetric)
	if err != nil {
		return "", "", appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if rawRange == "" {
		return metric, models.RangeAllTime, nil
	}
	timeRange, err := models.ParseTimeRange(rawRange)
	if err != nil {
		return "", "", appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	return metric, timeRange, nil
}

// ClampLimit applies the default and upper bound to a requested page size.
func (s *LeaderboardService) ClampLimit(limit int) int {
	if limit <= 0 {
		return s.opts.DefaultLimit
	}
	if limit > s.opts.MaxLimit {
		return s.opts.MaxLimit
	}
	return limit
}

// GetLeaderboard returns the top entries and whether they came from cache. One cached page of
// MaxLimit rows serves every smaller limit.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, metric models.LeaderboardMetric, timeRange models.TimeRange, limit int) ([]models.LeaderboardEntry, bool, error) {
	limit = s.ClampLimit(limit)
	key := LeaderboardCacheKey(metric, timeRange)

	var generation uint64
	if s.cache != nil {
		generation = s.cache.Generation()
		var cached []models.LeaderboardEntry
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Debug("leaderboard cache unavailable", zap.String("key", key), zap.Error(err))
		}
		if hit {
			return truncateEntries(cached, limit), true, nil
		}
	}

	entries, err := s.load(ctx, metric, timeRange)
	if err != nil {
		return nil, false, err
	}
	if s.cache != nil {
		s.store(ctx, key, entries, generation)
	}
	return truncateEntries(entries, limit), false, nil
}

// store caches a freshly loaded page unless an invalidation landed after generation was read.
// A write that races an invalidation is dropped again.
func (s *LeaderboardService) store(ctx context.Context, key string, entries []models.LeaderboardEntry, generation uint64) {
	if s.cache.Generation() != generation {
		s.logger.Debug("leaderboard invalidated during load, not caching", zap.String("key", key))
		return
	}
	if err := s.cache.Set(ctx, key, entries, s.opts.CacheTTL); err != nil {
		return
	}
	if s.cache.Generation() != generation {
		_ = s.cache.Invalidate(ctx, key)
	}
}

// Warm refreshes the cached page for every metric and range.
func (s *LeaderboardService) Warm(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	for _, metric := range models.LeaderboardMetrics {
		for _, timeRange := range models.TimeRanges {
			entries, err := s.load(ctx, metric, timeRange)
			if err != nil {
				return err
			}
			if err := s.cache.Set(ctx, LeaderboardCacheKey(metric, timeRange), entries, s.opts.CacheTTL); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetUserPosition ranks one user against everyone with a score. Users without records score 0.
func (s *LeaderboardService) GetUserPosition(ctx context.Context, userID string, metric models.LeaderboardMetric, timeRange models.TimeRange) (*models.UserPosition, error) {
	from := rangeStart(s.now().UTC(), timeRange)
	row, err := s.repo.Position(ctx, metric, from, userID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to compute leaderboard position")
	}
	return &models.UserPosition{
		UserID:       userID,
		Metric:       metric,
		Range:        timeRange,
		Score:        row.Score,
		Rank:         row.Above + 1,
		Participants: row.Participants,
	}, nil
}

func (s *LeaderboardService) load(ctx context.Context, metric models.LeaderboardMetric, timeRange models.TimeRange) ([]models.LeaderboardEntry, error) {
	from := rangeStart(s.now().UTC(), timeRange)
	scores, err := s.repo.TopScores(ctx, metric, from, s.opts.MaxLimit)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load leaderboard")
	}
	return rankScores(scores), nil
}

// rankScores assigns competition ranks to scores sorted descending: tied scores share a rank and
// the next rank skips the tied positions.
func rankScores(scores []models.LeaderboardScore) []models.LeaderboardEntry {
	entries := make([]models.LeaderboardEntry, len(scores))
	for i, score := range scores {
		rank := i + 1
		if i > 0 && score.Score == scores[i-1].Score {
			rank = entries[i-1].Rank
		}
		entries[i] = models.LeaderboardEntry{UserID: score.UserID, Score: score.Score, Rank: rank}
	}
	return entries
}

// rangeStart returns the inclusive lower bound for a range, nil for all time.
// Semesters start on January 1 and July 1.
func rangeStart(now time.Time, timeRange models.TimeRange) *time.Time {
	var start time.Time
	switch timeRange {
	case models.RangeWeekly:
		start = now.AddDate(0, 0, -7)
	case models.RangeMonthly:
		start = now.AddDate(0, -1, 0)
	case models.RangeCurrentSemester:
		month := time.January
		if now.Month() >= time.July {
			month = time.July
		}
		start = time.Date(now.Year(), month, 1, 0, 0, 0, 0, now.Location())
	case models.RangeAllTime:
		return nil
	default:
		return nil
	}
	return &start
}

func truncateEntries(entries []models.LeaderboardEntry, limit int) []models.LeaderboardEntry {
	if len(entries) > limit {
		return entries[:limit]
	}
	if entries == nil {
		return []models.LeaderboardEntry{}
	}
	return entries
}
