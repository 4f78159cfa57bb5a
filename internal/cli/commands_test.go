package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-progression-api/internal/models"
)

type levelsStub struct {
	failFor map[string]bool
	seen    []string
}

func (s *levelsStub) Recalculate(ctx context.Context, learnerID string) (*models.LevelRecord, bool, error) {
	s.seen = append(s.seen, learnerID)
	if s.failFor[learnerID] {
		return nil, false, errors.New("db timeout")
	}
	return &models.LevelRecord{UserID: learnerID, CurrentLevel: 2, LevelName: "Intermediate"}, true, nil
}

type streakStub struct{}

func (streakStub) Summary(ctx context.Context, userID string) (*models.StreakSummary, error) {
	last := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	return &models.StreakSummary{UserID: userID, CurrentStreak: 3, LastActiveDate: &last}, nil
}

type leaderboardStub struct {
	metric models.LeaderboardMetric
	rng    models.TimeRange
	limit  int
	warmed bool
}

func (s *leaderboardStub) GetLeaderboard(ctx context.Context, metric models.LeaderboardMetric, timeRange models.TimeRange, limit int) ([]models.LeaderboardEntry, bool, error) {
	s.metric, s.rng, s.limit = metric, timeRange, limit
	return []models.LeaderboardEntry{{UserID: "u1", Score: 12.5, Rank: 1}, {UserID: "u2", Score: 12.5, Rank: 1}}, false, nil
}

func (s *leaderboardStub) Warm(ctx context.Context) error {
	s.warmed = true
	return nil
}

type hoursStub struct {
	from, to *time.Time
}

func (s *hoursStub) GetTotal(ctx context.Context, learnerID string, from, to *time.Time) (float64, error) {
	s.from, s.to = from, to
	return 7.25, nil
}

type usersStub map[models.UserRole][]string

func (u usersStub) ListIDsByRole(ctx context.Context, role models.UserRole) ([]string, error) {
	return u[role], nil
}

type harness struct {
	levels      *levelsStub
	leaderboard *leaderboardStub
	hours       *hoursStub
	closed      bool
}

func newHarness() *harness {
	return &harness{levels: &levelsStub{failFor: map[string]bool{}}, leaderboard: &leaderboardStub{}, hours: &hoursStub{}}
}

func (h *harness) run(args ...string) (string, string, error) {
	root := NewRootCmd(func(*cobra.Command) (*Runtime, error) {
		return &Runtime{
			Leveling:    h.levels,
			Streaks:     streakStub{},
			Leaderboard: h.leaderboard,
			Hours:       h.hours,
			Users:       usersStub{models.RoleStudent: {"s1", "s2"}},
			Close:       func() { h.closed = true },
		}, nil
	})
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestLevelsRecalc(t *testing.T) {
	h := newHarness()
	out, _, err := h.run("levels", "recalc", "--user", "a,b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, h.levels.seen)
	assert.Contains(t, out, "Intermediate")
	assert.True(t, h.closed)
}

func TestLevelsRecalcReportsPartialFailure(t *testing.T) {
	h := newHarness()
	h.levels.failFor["b"] = true
	out, errOut, err := h.run("levels", "recalc", "--user", "a", "--user", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2")
	assert.Contains(t, out, "a")
	assert.Contains(t, errOut, "b: db timeout")
}

func TestLevelsRecalcByRole(t *testing.T) {
	h := newHarness()
	_, _, err := h.run("levels", "recalc", "--role", "student", "--user", "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "s1", "s2"}, h.levels.seen)
}

func TestLevelsRecalcRequiresUser(t *testing.T) {
	_, _, err := newHarness().run("levels", "recalc")
	assert.Error(t, err)
}

func TestStreakCommand(t *testing.T) {
	out, _, err := newHarness().run("streak", "--user", "learner-1")
	require.NoError(t, err)
	assert.Equal(t, "user=learner-1 streak=3 last_active=2024-03-14\n", out)
}

func TestLeaderboardCommand(t *testing.T) {
	h := newHarness()
	out, _, err := h.run("leaderboard", "--metric", "hours_logged", "--range", "monthly", "--limit", "5")
	require.NoError(t, err)
	assert.Equal(t, models.MetricHoursLogged, h.leaderboard.metric)
	assert.Equal(t, models.RangeMonthly, h.leaderboard.rng)
	assert.Equal(t, 5, h.leaderboard.limit)
	assert.Contains(t, out, "12.5")

	_, _, err = h.run("leaderboard", "--metric", "xp")
	assert.Error(t, err)
}

func TestLeaderboardWarm(t *testing.T) {
	h := newHarness()
	out, _, err := h.run("leaderboard", "warm")
	require.NoError(t, err)
	assert.True(t, h.leaderboard.warmed)
	assert.Contains(t, out, "warmed")
}

func TestHoursTotal(t *testing.T) {
	h := newHarness()
	out, _, err := h.run("hours", "total", "--user", "teacher-1", "--from", "2024-01-01", "--to", "2025-01-01")
	require.NoError(t, err)
	assert.Equal(t, "user=teacher-1 hours=7.25\n", out)
	require.NotNil(t, h.hours.from)
	assert.Equal(t, 2024, h.hours.from.Year())

	_, _, err = h.run("hours", "total", "--user", "teacher-1", "--from", "Jan 1")
	assert.Error(t, err)
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "12", formatScore(12))
	assert.Equal(t, "12.5", formatScore(12.5))
	assert.Equal(t, "0.33", formatScore(1.0/3))
}
