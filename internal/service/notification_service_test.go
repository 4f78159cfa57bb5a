package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-progression-api/internal/models"
	"github.com/noah-isme/sma-progression-api/pkg/jobs"
)

type notificationQueueStub struct {
	jobs []jobs.Job[models.Notification]
	err  error
}

func (q *notificationQueueStub) Enqueue(job jobs.Job[models.Notification]) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type notificationWriterStub struct {
	created []models.Notification
	err     error
}

func (w *notificationWriterStub) Create(ctx context.Context, notification *models.Notification) error {
	if w.err != nil {
		return w.err
	}
	w.created = append(w.created, *notification)
	return nil
}

func TestNotificationServiceQueuesPayloads(t *testing.T) {
	queue := &notificationQueueStub{}
	svc := NewNotificationService(queue, nil)
	svc.now = fixedClock
	ctx := context.Background()

	svc.NotifyLevelUp(ctx, "student-1", 3, "Advanced")
	svc.NotifyBadgeEarned(ctx, "student-1", "explorer", models.BadgeSourceAuto)
	svc.NotifyMissionCompleted(ctx, "student-1", "m1")

	require.Len(t, queue.jobs, 3)
	first := queue.jobs[0]
	assert.Equal(t, string(models.NotificationLevelUp), first.Type)
	assert.Equal(t, first.ID, first.Payload.ID)
	assert.Equal(t, fixedNow, first.Payload.CreatedAt)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(first.Payload.Payload, &payload))
	assert.Equal(t, "Advanced", payload["levelName"])
	assert.Equal(t, 3.0, payload["level"])
}

func TestNotificationServiceNeverFails(t *testing.T) {
	svc := NewNotificationService(&notificationQueueStub{err: errors.New("queue full")}, nil)
	svc.NotifyMissionCompleted(context.Background(), "student-1", "m1")

	disabled := NewNotificationService(nil, nil)
	disabled.NotifyLevelUp(context.Background(), "student-1", 2, "Intermediate")
}

func TestNotificationWorkerPersists(t *testing.T) {
	writer := &notificationWriterStub{}
	worker := NewNotificationWorker(writer, nil)
	job := jobs.Job[models.Notification]{ID: "n1", Payload: models.Notification{ID: "n1", UserID: "student-1", Kind: models.NotificationBadgeEarned}}

	require.NoError(t, worker.Handle(context.Background(), job))
	require.Len(t, writer.created, 1)
	assert.Equal(t, "n1", writer.created[0].ID)

	writer.err = errors.New("db down")
	require.Error(t, worker.Handle(context.Background(), job))
}
