package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-progression-api/internal/models"
	appErrors "github.com/noah-isme/sma-progression-api/pkg/errors"
)

type levelStore interface {
	Get(ctx context.Context, userID string) (*models.LevelRecord, error)
	Upsert(ctx context.Context, record *models.LevelRecord) (*models.LevelRecord, error)
}

type approvedBadgeCounter interface {
	CountApproved(ctx context.Context, userID string) (int, error)
}

type hoursSummer interface {
	SumHours(ctx context.Context, userID string, from, to *time.Time) (float64, error)
}

// DefaultLevelScheme is four badge tiers cut at 3, 6 and 8.
func DefaultLevelScheme() models.LevelScheme {
	scheme, _ := NewLevelScheme(string(models.LevelMetricBadges), []float64{3, 6, 8}, []string{"Beginner", "Intermediate", "Advanced", "Expert"})
	return scheme
}

// NewLevelScheme builds a tier table from ascending cut points. Level 1 starts at zero and each
// cut opens the next level. Missing names default to "Level N".
func NewLevelScheme(metric string, cuts []float64, names []string) (models.LevelScheme, error) {
	m := models.LevelMetric(metric)
	if !m.Valid() {
		return models.LevelScheme{}, fmt.Errorf("unknown level metric %q", metric)
	}
	for i, cut := range cuts {
		if cut <= 0 {
			return models.LevelScheme{}, fmt.Errorf("level threshold %v must be positive", cut)
		}
		if i > 0 && cut <= cuts[i-1] {
			return models.LevelScheme{}, fmt.Errorf("level thresholds must be strictly ascending")
		}
	}

	tiers := make([]models.LevelTier, 0, len(cuts)+1)
	for level := 1; level <= len(cuts)+1; level++ {
		tier := models.LevelTier{Level: level, Name: fmt.Sprintf("Level %d", level)}
		if level > 1 {
			tier.MinValue = cuts[level-2]
		}
		if level-1 < len(names) && names[level-1] != "" {
			tier.Name = names[level-1]
		}
		tiers = append(tiers, tier)
	}
	return models.LevelScheme{Metric: m, Tiers: tiers}, nil
}

// LevelingService derives achievement levels from badge count or ledger hours.
type LevelingService struct {
	repo   levelStore
	badges approvedBadgeCounter
	hours  hoursSummer
	scheme models.LevelScheme
	logger *zap.Logger
	now    func() time.Time
}

// NewLevelingService constructs the leveling calculator.
func NewLevelingService(repo levelStore, badges approvedBadgeCounter, hours hoursSummer, scheme models.LevelScheme, logger *zap.Logger) *LevelingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(scheme.Tiers) == 0 {
		scheme = DefaultLevelScheme()
	}
	return &LevelingService{
		repo:   repo,
		badges: badges,
		hours:  hours,
		scheme: scheme,
		logger: logger,
		now:    time.Now,
	}
}

// Scheme returns the active tier table.
func (s *LevelingService) Scheme() models.LevelScheme {
	return s.scheme
}

// Recalculate refreshes the learner's metric snapshot and raises the level when the metric
// crosses a higher tier. The level never decreases. A missing record counts as level 1.
func (s *LevelingService) Recalculate(ctx context.Context, learnerID string) (*models.LevelRecord, bool, error) {
	value, err := s.metricValue(ctx, learnerID)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.repo.Get(ctx, learnerID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, false, appErrors.Internal(err, "failed to load level record")
	}

	now := s.now().UTC()
	tier := s.scheme.LevelFor(value)
	storedLevel := 1
	record := &models.LevelRecord{
		UserID:         learnerID,
		Metric:         s.scheme.Metric,
		MetricSnapshot: value,
		UpdatedAt:      now,
		CurrentLevel:   tier.Level,
		LevelName:      tier.Name,
	}
	if existing != nil {
		storedLevel = existing.CurrentLevel
		if tier.Level <= storedLevel {
			record.CurrentLevel = existing.CurrentLevel
			record.LevelName = existing.LevelName
			record.LastLevelUpAt = existing.LastLevelUpAt
		}
	}
	if tier.Level > storedLevel {
		record.LastLevelUpAt = &now
	}

	stored, err := s.repo.Upsert(ctx, record)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to save level record")
	}

	leveledUp := stored.CurrentLevel > storedLevel
	if leveledUp {
		s.logger.Info("level up",
			zap.String("user_id", learnerID),
			zap.Int("from", storedLevel),
			zap.Int("to", stored.CurrentLevel),
			zap.Float64("metric", value))
	}
	return stored, leveledUp, nil
}

// Get returns the stored level or a fresh level-1 record when none exists yet.
func (s *LevelingService) Get(ctx context.Context, learnerID string) (*models.LevelRecord, error) {
	record, err := s.repo.Get(ctx, learnerID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to load level record")
	}
	base := s.scheme.LevelFor(0)
	return &models.LevelRecord{
		UserID:       learnerID,
		CurrentLevel: base.Level,
		LevelName:    base.Name,
		Metric:       s.scheme.Metric,
	}, nil
}

func (s *LevelingService) metricValue(ctx context.Context, learnerID string) (float64, error) {
	switch s.scheme.Metric {
	case models.LevelMetricBadges:
		count, err := s.badges.CountApproved(ctx, learnerID)
		if err != nil {
			return 0, appErrors.Internal(err, "failed to count badges")
		}
		return float64(count), nil
	case models.LevelMetricHours:
		total, err := s.hours.SumHours(ctx, learnerID, nil, nil)
		if err != nil {
			return 0, appErrors.Internal(err, "failed to total hours")
		}
		return total, nil
	}
	return 0, appErrors.Clone(appErrors.ErrInternal, "unsupported level metric")
}
