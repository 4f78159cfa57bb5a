package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-progression-api/internal/models"
	"github.com/noah-isme/sma-progression-api/internal/service"
)

func newLevelsCmd(load Loader) *cobra.Command {
	levels := &cobra.Command{
		Use:   "levels",
		Short: "Level maintenance",
	}

	recalc := &cobra.Command{
		Use:   "recalc",
		Short: "Recompute levels for one or more users",
		Long:  "Recompute levels from the configured metric. Use after a failed follow-up left a level stale.",
		RunE: withRuntime(load, func(ctx context.Context, cmd *cobra.Command, rt *Runtime) error {
			users, _ := cmd.Flags().GetStringSlice("user")
			role, _ := cmd.Flags().GetString("role")
			if role != "" {
				if rt.Users == nil {
					return errors.New("user directory unavailable")
				}
				ids, err := rt.Users.ListIDsByRole(ctx, models.UserRole(strings.ToUpper(role)))
				if err != nil {
					return err
				}
				users = append(users, ids...)
			}
			if len(users) == 0 {
				return errors.New("at least one --user or a --role with active users is required")
			}
			out := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(out, "USER\tLEVEL\tNAME\tLEVELED UP")
			var failed int
			for _, user := range users {
				record, leveledUp, err := rt.Leveling.Recalculate(ctx, user)
				if err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", user, err)
					continue
				}
				fmt.Fprintf(out, "%s\t%d\t%s\t%t\n", user, record.CurrentLevel, record.LevelName, leveledUp)
			}
			if err := out.Flush(); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d recalculations failed", failed, len(users))
			}
			return nil
		}),
	}
	recalc.Flags().StringSlice("user", nil, "User id (repeatable or comma separated)")
	recalc.Flags().String("role", "", "Recompute every active user with this role")

	levels.AddCommand(recalc)
	return levels
}

func newStreakCmd(load Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "streak",
		Short: "Show a user's current engagement streak",
		RunE: withRuntime(load, func(ctx context.Context, cmd *cobra.Command, rt *Runtime) error {
			user, _ := cmd.Flags().GetString("user")
			if user == "" {
				return errors.New("--user is required")
			}
			summary, err := rt.Streaks.Summary(ctx, user)
			if err != nil {
				return err
			}
			last := "never"
			if summary.LastActiveDate != nil {
				last = summary.LastActiveDate.Format("2006-01-02")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user=%s streak=%d last_active=%s\n", summary.UserID, summary.CurrentStreak, last)
			return nil
		}),
	}
	cmd.Flags().String("user", "", "User id")
	return cmd
}

func newLeaderboardCmd(load Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print a ranked leaderboard",
		RunE: withRuntime(load, func(ctx context.Context, cmd *cobra.Command, rt *Runtime) error {
			rawMetric, _ := cmd.Flags().GetString("metric")
			rawRange, _ := cmd.Flags().GetString("range")
			limit, _ := cmd.Flags().GetInt("limit")
			metric, timeRange, err := service.ParseLeaderboardQuery(rawMetric, rawRange)
			if err != nil {
				return err
			}
			entries, cached, err := rt.Leaderboard.GetLeaderboard(ctx, metric, timeRange, limit)
			if err != nil {
				return err
			}
			out := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(out, "# %s %s cached=%t\n", metric, timeRange, cached)
			fmt.Fprintln(out, "RANK\tUSER\tSCORE")
			for _, entry := range entries {
				fmt.Fprintf(out, "%d\t%s\t%s\n", entry.Rank, entry.UserID, formatScore(entry.Score))
			}
			return out.Flush()
		}),
	}
	cmd.Flags().String("metric", string(models.MetricBadgesEarned), "Leaderboard metric")
	cmd.Flags().String("range", string(models.RangeAllTime), "Time range")
	cmd.Flags().Int("limit", 10, "Rows to print")

	warm := &cobra.Command{
		Use:   "warm",
		Short: "Refresh every cached leaderboard page",
		RunE: withRuntime(load, func(ctx context.Context, cmd *cobra.Command, rt *Runtime) error {
			if err := rt.Leaderboard.Warm(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "leaderboard cache warmed")
			return nil
		}),
	}
	cmd.AddCommand(warm)
	return cmd
}

func newHoursCmd(load Loader) *cobra.Command {
	hours := &cobra.Command{
		Use:   "hours",
		Short: "Hours ledger queries",
	}
	total := &cobra.Command{
		Use:   "total",
		Short: "Sum a user's hours, optionally within [from, to)",
		RunE: withRuntime(load, func(ctx context.Context, cmd *cobra.Command, rt *Runtime) error {
			user, _ := cmd.Flags().GetString("user")
			if user == "" {
				return errors.New("--user is required")
			}
			from, err := dateFlag(cmd, "from")
			if err != nil {
				return err
			}
			to, err := dateFlag(cmd, "to")
			if err != nil {
				return err
			}
			sum, err := rt.Hours.GetTotal(ctx, user, from, to)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user=%s hours=%s\n", user, formatScore(sum))
			return nil
		}),
	}
	total.Flags().String("user", "", "User id")
	total.Flags().String("from", "", "Inclusive start date (YYYY-MM-DD)")
	total.Flags().String("to", "", "Exclusive end date (YYYY-MM-DD)")
	hours.AddCommand(total)
	return hours
}

func dateFlag(cmd *cobra.Command, name string) (*time.Time, error) {
	raw, _ := cmd.Flags().GetString(name)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("--%s: expected YYYY-MM-DD", name)
	}
	return &t, nil
}

func formatScore(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
