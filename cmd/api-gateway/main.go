package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-progression-api/api/swagger"
	"github.com/noah-isme/sma-progression-api/internal/app"
	"github.com/noah-isme/sma-progression-api/internal/middleware"
	"github.com/noah-isme/sma-progression-api/internal/scheduler"
	"github.com/noah-isme/sma-progression-api/pkg/config"
	"github.com/noah-isme/sma-progression-api/pkg/logger"
)

// @title SMA Progression API
// @version 1.0.0
// @description Mission progress, badges, levels, hours, streaks and leaderboards.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := app.Build(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to build services", zap.Error(err))
	}
	defer services.Close()
	services.Start(ctx)

	var sched *scheduler.Scheduler
	if cfg.Leaderboard.WarmupEnabled && services.CacheService.Enabled() {
		sched, err = scheduler.New(logr)
		if err != nil {
			logr.Fatal("failed to create scheduler", zap.Error(err))
		}
		if err := sched.Every("leaderboard_warmup", cfg.Leaderboard.WarmupInterval,
			scheduler.LeaderboardWarmup(services.Leaderboard, cfg.Leaderboard.WarmupInterval/2)); err != nil {
			logr.Fatal("failed to schedule leaderboard warmup", zap.Error(err))
		}
		sched.Start()
	}

	verifier := middleware.NewTokenVerifier(cfg.JWT.Secret, cfg.JWT.Issuer)
	router := newRouter(cfg, services, verifier, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown", zap.Error(err))
	}
	if sched != nil {
		if err := sched.Stop(); err != nil {
			logr.Warn("scheduler shutdown", zap.Error(err))
		}
	}
}
