// Package cli implements progressctl, the operator tool for inspecting and repairing
// progression state outside the HTTP API.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-progression-api/internal/app"
	"github.com/noah-isme/sma-progression-api/internal/models"
	"github.com/noah-isme/sma-progression-api/pkg/config"
	"github.com/noah-isme/sma-progression-api/pkg/logger"
)

type levelRecalculator interface {
	Recalculate(ctx context.Context, learnerID string) (*models.LevelRecord, bool, error)
}

type streakReader interface {
	Summary(ctx context.Context, userID string) (*models.StreakSummary, error)
}

type leaderboardReader interface {
	GetLeaderboard(ctx context.Context, metric models.LeaderboardMetric, timeRange models.TimeRange, limit int) ([]models.LeaderboardEntry, bool, error)
	Warm(ctx context.Context) error
}

type userLister interface {
	ListIDsByRole(ctx context.Context, role models.UserRole) ([]string, error)
}

type hoursTotaler interface {
	GetTotal(ctx context.Context, learnerID string, from, to *time.Time) (float64, error)
}

// Runtime is the set of services a command may use.
type Runtime struct {
	Leveling    levelRecalculator
	Streaks     streakReader
	Leaderboard leaderboardReader
	Hours       hoursTotaler
	Users       userLister
	Close       func()
}

// Loader builds the runtime lazily so --help never touches the database.
type Loader func(cmd *cobra.Command) (*Runtime, error)

// Execute runs progressctl against the configured database.
func Execute() error {
	return NewRootCmd(loadRuntime).Execute()
}

// NewRootCmd assembles the command tree.
func NewRootCmd(load Loader) *cobra.Command {
	root := &cobra.Command{
		Use:           "progressctl",
		Short:         "Inspect and repair learner progression state",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().Duration("timeout", 30*time.Second, "Deadline for the whole command")

	root.AddCommand(newLevelsCmd(load))
	root.AddCommand(newStreakCmd(load))
	root.AddCommand(newLeaderboardCmd(load))
	root.AddCommand(newHoursCmd(load))
	return root
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout <= 0 {
		return context.WithCancel(cmd.Context())
	}
	return context.WithTimeout(cmd.Context(), timeout)
}

func withRuntime(load Loader, run func(ctx context.Context, cmd *cobra.Command, rt *Runtime) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		rt, err := load(cmd)
		if err != nil {
			return err
		}
		if rt.Close != nil {
			defer rt.Close()
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		return run(ctx, cmd, rt)
	}
}

func loadRuntime(cmd *cobra.Command) (*Runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	services, err := app.Build(cmd.Context(), cfg, logr)
	if err != nil {
		_ = logr.Sync()
		return nil, err
	}
	return &Runtime{
		Leveling:    services.Leveling,
		Streaks:     services.Streaks,
		Leaderboard: services.Leaderboard,
		Hours:       services.Hours,
		Users:       services.Users,
		Close: func() {
			services.Close()
			if err := logr.Sync(); err != nil {
				logr.Debug("sync logger", zap.Error(err))
			}
		},
	}, nil
}
