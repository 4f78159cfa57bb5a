package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-progression-api/internal/models"
	"github.com/noah-isme/sma-progression-api/pkg/jobs"
)

// Notifier delivers learner-facing progression notifications. Implementations never fail the caller.
type Notifier interface {
	NotifyBadgeEarned(ctx context.Context, userID, badgeID string, source models.BadgeSource)
	NotifyLevelUp(ctx context.Context, userID string, level int, levelName string)
	NotifyMissionCompleted(ctx context.Context, userID, missionID string)
}

type notificationQueue interface {
	Enqueue(job jobs.Job[models.Notification]) error
}

type notificationWriter interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// NotificationService turns progression milestones into in-app notification jobs.
type NotificationService struct {
	queue  notificationQueue
	logger *zap.Logger
	now    func() time.Time
}

// NewNotificationService constructs a notifier backed by the queue. A nil queue disables delivery.
func NewNotificationService(queue notificationQueue, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{queue: queue, logger: logger, now: time.Now}
}

// NotifyBadgeEarned queues a BADGE_EARNED notification.
func (s *NotificationService) NotifyBadgeEarned(ctx context.Context, userID, badgeID string, source models.BadgeSource) {
	s.enqueue(userID, models.NotificationBadgeEarned, map[string]interface{}{"badgeId": badgeID, "source": source})
}

// NotifyLevelUp queues a LEVEL_UP notification.
func (s *NotificationService) NotifyLevelUp(ctx context.Context, userID string, level int, levelName string) {
	s.enqueue(userID, models.NotificationLevelUp, map[string]interface{}{"level": level, "levelName": levelName})
}

// NotifyMissionCompleted queues a MISSION_COMPLETED notification.
func (s *NotificationService) NotifyMissionCompleted(ctx context.Context, userID, missionID string) {
	s.enqueue(userID, models.NotificationMissionCompleted, map[string]interface{}{"missionId": missionID})
}

func (s *NotificationService) enqueue(userID string, kind models.NotificationKind, payload map[string]interface{}) {
	if s.queue == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("failed to encode notification", zap.String("kind", string(kind)), zap.Error(err))
		return
	}
	notification := models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		Payload:   raw,
		CreatedAt: s.now().UTC(),
	}
	job := jobs.Job[models.Notification]{ID: notification.ID, Type: string(kind), Payload: notification}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to queue notification",
			zap.String("user_id", userID),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
}

// NotificationWorker persists queued notifications.
type NotificationWorker struct {
	repo   notificationWriter
	logger *zap.Logger
}

// NewNotificationWorker constructs the queue handler.
func NewNotificationWorker(repo notificationWriter, logger *zap.Logger) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{repo: repo, logger: logger}
}

// Handle writes one notification row.
func (w *NotificationWorker) Handle(ctx context.Context, job jobs.Job[models.Notification]) error {
	notification := job.Payload
	if err := w.repo.Create(ctx, &notification); err != nil {
		return err
	}
	w.logger.Debug("notification stored", zap.String("id", notification.ID), zap.String("kind", string(notification.Kind)))
	return nil
}
