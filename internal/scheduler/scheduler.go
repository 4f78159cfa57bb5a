// Package scheduler runs periodic maintenance jobs such as leaderboard cache warmup.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// TaskFunc is the body of a scheduled job. ctx is cancelled on Stop.
type TaskFunc func(ctx context.Context) error

// Scheduler wraps gocron with structured logging and a shared cancellation context.
type Scheduler struct {
	sched  gocron.Scheduler
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a stopped scheduler.
func New(logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{sched: sched, logger: logger, ctx: ctx, cancel: cancel}, nil
}

// Every registers task to run on a fixed interval, starting immediately once the scheduler
// starts. Overlapping runs are skipped.
func (s *Scheduler) Every(name string, interval time.Duration, task TaskFunc) error {
	if interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", name)
	}
	_, err := s.sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { s.run(name, task) }),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("register job %s: %w", name, err)
	}
	s.logger.Info("scheduled job registered", zap.String("job", name), zap.Duration("interval", interval))
	return nil
}

func (s *Scheduler) run(name string, task TaskFunc) {
	start := time.Now()
	if err := task(s.ctx); err != nil {
		s.logger.Warn("scheduled job failed", zap.String("job", name), zap.Error(err), zap.Duration("duration", time.Since(start)))
		return
	}
	s.logger.Debug("scheduled job finished", zap.String("job", name), zap.Duration("duration", time.Since(start)))
}

// Start begins executing registered jobs.
func (s *Scheduler) Start() {
	s.sched.Start()
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() error {
	s.cancel()
	return s.sched.Shutdown()
}

// LeaderboardWarmer precomputes cached leaderboard pages.
type LeaderboardWarmer interface {
	Warm(ctx context.Context) error
}

// LeaderboardWarmup returns a task that refreshes every cached leaderboard page.
func LeaderboardWarmup(warmer LeaderboardWarmer, timeout time.Duration) TaskFunc {
	return func(ctx context.Context) error {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return warmer.Warm(ctx)
	}
}
