package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-progression-api/internal/models"
)

const defaultMaxProgressionEvents = 64

// ProgressionHook reacts to a committed progression event and may return follow-up events.
// Hooks never call each other; follow-ups are queued by the dispatcher, even when returned
// alongside an error.
type ProgressionHook interface {
	Name() string
	Handle(ctx context.Context, event models.ProgressionEvent) ([]models.ProgressionEvent, error)
}

type progressionPublisher interface {
	Publish(ctx context.Context, events ...models.ProgressionEvent) ([]models.ProgressionEvent, error)
}

// ProgressionDispatcher runs registered hooks, in registration order, over a FIFO queue of events.
type ProgressionDispatcher struct {
	mu        sync.RWMutex
	hooks     []ProgressionHook
	logger    *zap.Logger
	maxEvents int
}

// NewProgressionDispatcher constructs an empty dispatcher. Hooks are registered after the
// services they wrap exist.
func NewProgressionDispatcher(logger *zap.Logger) *ProgressionDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressionDispatcher{logger: logger, maxEvents: defaultMaxProgressionEvents}
}

// Register appends hooks to the chain.
func (d *ProgressionDispatcher) Register(hooks ...ProgressionHook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, hook := range hooks {
		if hook != nil {
			d.hooks = append(d.hooks, hook)
		}
	}
}

// Publish drains the events and every follow-up they cause. Each event is offered to every
// hook; a failing hook does not stop the others. It returns all processed events in order
// and the first hook error.
func (d *ProgressionDispatcher) Publish(ctx context.Context, events ...models.ProgressionEvent) ([]models.ProgressionEvent, error) {
	d.mu.RLock()
	hooks := append([]ProgressionHook(nil), d.hooks...)
	d.mu.RUnlock()

	queue := append([]models.ProgressionEvent(nil), events...)
	processed := make([]models.ProgressionEvent, 0, len(queue))
	var firstErr error

	for len(queue) > 0 {
		if len(processed) >= d.maxEvents {
			d.logger.Error("progression event limit reached", zap.Int("limit", d.maxEvents), zap.Int("dropped", len(queue)))
			if firstErr == nil {
				firstErr = fmt.Errorf("progression event limit %d reached", d.maxEvents)
			}
			break
		}
		event := queue[0]
		queue = queue[1:]
		processed = append(processed, event)

		for _, hook := range hooks {
			followUps, err := hook.Handle(ctx, event)
			queue = append(queue, followUps...)
			if err != nil {
				d.logger.Error("progression hook failed",
					zap.String("hook", hook.Name()),
					zap.String("kind", string(event.Kind)),
					zap.String("user_id", event.UserID),
					zap.Error(err))
				if firstErr == nil {
					firstErr = fmt.Errorf("%s hook: %w", hook.Name(), err)
				}
			}
		}
	}

	return processed, firstErr
}

type noopPublisher struct{}

func (noopPublisher) Publish(_ context.Context, events ...models.ProgressionEvent) ([]models.ProgressionEvent, error) {
	return events, nil
}
