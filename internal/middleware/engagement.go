package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-progression-api/internal/models"
)

type engagementRecorder interface {
	RecordEngagement(ctx context.Context, userID string, kind models.EngagementKind) error
}

// TrackEngagement appends an activity log entry for the caller after a successful request.
// Logging failures never change the response.
func TrackEngagement(recorder engagementRecorder, kind models.EngagementKind, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		c.Next()

		if recorder == nil || c.Writer.Status() >= 400 {
			return
		}
		claims, ok := CurrentClaims(c)
		if !ok {
			return
		}
		if err := recorder.RecordEngagement(c.Request.Context(), claims.UserID, kind); err != nil {
			logger.Warn("failed to track engagement",
				zap.String("user_id", claims.UserID),
				zap.String("kind", string(kind)),
				zap.Error(err))
		}
	}
}
