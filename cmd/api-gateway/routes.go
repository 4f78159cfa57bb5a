package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-progression-api/internal/app"
	"github.com/noah-isme/sma-progression-api/internal/handler"
	"github.com/noah-isme/sma-progression-api/internal/middleware"
	"github.com/noah-isme/sma-progression-api/internal/models"
	"github.com/noah-isme/sma-progression-api/pkg/config"
	"github.com/noah-isme/sma-progression-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-progression-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-progression-api/pkg/middleware/requestid"
)

func newRouter(cfg *config.Config, svc *app.Services, verifier *middleware.TokenVerifier, logr *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(svc.Metrics))

	metricsHandler := handler.NewMetricsHandler(svc.Metrics, map[string]handler.Pinger{
		"postgres": handler.PingFunc(svc.DB.PingContext),
		"redis":    svc.Cache,
	})
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	progressHandler := handler.NewProgressHandler(svc.Progress)
	badgeHandler := handler.NewBadgeHandler(svc.Badges)
	hoursHandler := handler.NewHoursHandler(svc.Hours)
	levelHandler := handler.NewLevelHandler(svc.Leveling)
	streakHandler := handler.NewStreakHandler(svc.Streaks)
	leaderboardHandler := handler.NewLeaderboardHandler(svc.Leaderboard)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())

	public := api.Group("")
	public.Use(middleware.OptionalJWT(verifier))
	public.GET("/leaderboard", leaderboardHandler.Get)

	secured := api.Group("")
	secured.Use(middleware.JWT(verifier))

	missions := secured.Group("/missions")
	missions.GET("/progress", middleware.TrackEngagement(svc.Streaks, models.EngagementPageVisit, logr), progressHandler.List)
	missions.GET("/:missionId/progress", progressHandler.Get)
	missions.POST("/:missionId/activities/:activityId/completion", progressHandler.RecordCompletion)

	badges := secured.Group("/badges")
	badges.GET("/awards", badgeHandler.ListMine)
	badges.POST("/:badgeId/award", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), badgeHandler.Award)
	badges.POST("/submissions", middleware.RequireRoles(models.RoleTeacher), badgeHandler.Submit)
	badges.GET("/submissions", middleware.RequireRoles(models.RoleAdmin), badgeHandler.ListSubmissions)
	badges.POST("/submissions/:id/review", middleware.RequireRoles(models.RoleAdmin), badgeHandler.Review)

	hours := secured.Group("/hours")
	hours.POST("", hoursHandler.Record)
	hours.GET("/total", hoursHandler.Total)
	hours.GET("/recent", hoursHandler.Recent)
	hours.GET("/cpd", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), hoursHandler.CPD)

	levels := secured.Group("/levels")
	levels.GET("/me", levelHandler.Me)
	levels.POST("/me/recalculate", levelHandler.Recalculate)

	streaks := secured.Group("/streaks")
	streaks.GET("/me", streakHandler.Me)
	streaks.POST("/engagement", streakHandler.RecordEngagement)

	secured.GET("/leaderboard/me", leaderboardHandler.Me)

	return r
}
