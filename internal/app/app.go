// Package app wires repositories, services and the progression hook chain from configuration.
// The HTTP gateway and the operator CLI share it.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-progression-api/internal/models"
	"github.com/noah-isme/sma-progression-api/internal/repository"
	"github.com/noah-isme/sma-progression-api/internal/service"
	"github.com/noah-isme/sma-progression-api/pkg/cache"
	"github.com/noah-isme/sma-progression-api/pkg/config"
	"github.com/noah-isme/sma-progression-api/pkg/database"
	"github.com/noah-isme/sma-progression-api/pkg/jobs"
)

const notificationBuffer = 256

// Services holds the long-lived components of the progression engine.
type Services struct {
	DB    *sqlx.DB
	Cache *repository.CacheRepository
	Users *repository.UserRepository

	Metrics       *service.MetricsService
	CacheService  *service.CacheService
	Dispatcher    *service.ProgressionDispatcher
	Progress      *service.ProgressService
	Badges        *service.BadgeService
	Hours         *service.HoursService
	Leveling      *service.LevelingService
	Streaks       *service.StreakService
	Leaderboard   *service.LeaderboardService
	Notifications *jobs.Queue[models.Notification]

	logger *zap.Logger
}

// Build opens the database and cache and assembles every service. The caller owns Close.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Services, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, continuing without cache", zap.Error(err))
		redisClient = nil
	}

	svc, err := Assemble(cfg, db, redisClient, logger)
	if err != nil {
		_ = db.Close()
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, err
	}
	return svc, nil
}

// Assemble builds services over existing connections. redisClient may be nil.
func Assemble(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logger *zap.Logger) (*Services, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := validator.New()

	scheme, err := service.NewLevelScheme(cfg.Progression.LevelMetric, cfg.Progression.LevelThresholds, cfg.Progression.LevelNames)
	if err != nil {
		return nil, fmt.Errorf("level scheme: %w", err)
	}
	location, err := time.LoadLocation(cfg.Progression.StreakTimezone)
	if err != nil {
		return nil, fmt.Errorf("streak timezone: %w", err)
	}

	missionRepo := repository.NewMissionRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	badgeRepo := repository.NewBadgeRepository(db)
	hoursRepo := repository.NewHoursRepository(db)
	levelRepo := repository.NewLevelRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	leaderboardRepo := repository.NewLeaderboardRepository(db)
	userRepo := repository.NewUserRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logger)

	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Leaderboard.CacheTTL, logger, redisClient != nil)
	dispatcher := service.NewProgressionDispatcher(logger)

	streaks := service.NewStreakService(activityRepo, location, logger)
	badges := service.NewBadgeService(badgeRepo, userRepo, dispatcher, validate, logger)
	hours := service.NewHoursService(hoursRepo, dispatcher, cfg.Progression.CPDAnnualTargetHours, logger)
	leveling := service.NewLevelingService(levelRepo, badgeRepo, hoursRepo, scheme, logger)
	progress := service.NewProgressService(missionRepo, progressRepo, streaks, dispatcher, validate, logger)
	leaderboard := service.NewLeaderboardService(leaderboardRepo, cacheSvc, service.LeaderboardOptions{
		DefaultLimit: cfg.Leaderboard.DefaultLimit,
		MaxLimit:     cfg.Leaderboard.MaxLimit,
		CacheTTL:     cfg.Leaderboard.CacheTTL,
	}, logger)

	var (
		notifier service.Notifier
		queue    *jobs.Queue[models.Notification]
	)
	if cfg.Notifications.Enabled {
		worker := service.NewNotificationWorker(notificationRepo, logger)
		queue = jobs.NewQueue[models.Notification]("notifications", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Notifications.Workers,
			BufferSize: notificationBuffer,
			MaxRetries: cfg.Notifications.Retries,
			RetryDelay: time.Second,
			Logger:     logger,
		})
		notifier = service.NewNotificationService(queue, logger)
	}

	dispatcher.Register(
		service.NewRewardHook(badges, hours),
		service.NewLevelingHook(leveling, scheme.Metric),
		service.NewLeaderboardCacheHook(cacheSvc, logger),
		service.NewMetricsHook(metrics),
		service.NewNotificationHook(notifier),
	)

	return &Services{
		DB:            db,
		Cache:         cacheRepo,
		Users:         userRepo,
		Metrics:       metrics,
		CacheService:  cacheSvc,
		Dispatcher:    dispatcher,
		Progress:      progress,
		Badges:        badges,
		Hours:         hours,
		Leveling:      leveling,
		Streaks:       streaks,
		Leaderboard:   leaderboard,
		Notifications: queue,
		logger:        logger,
	}, nil
}

// Start launches background workers.
func (s *Services) Start(ctx context.Context) {
	if s.Notifications != nil {
		s.Notifications.Start(ctx)
	}
}

// Close drains workers and releases connections.
func (s *Services) Close() {
	if s.Notifications != nil {
		s.Notifications.Stop()
	}
	if err := s.Cache.Close(); err != nil {
		s.logger.Warn("close redis", zap.Error(err))
	}
	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			s.logger.Warn("close postgres", zap.Error(err))
		}
	}
}
