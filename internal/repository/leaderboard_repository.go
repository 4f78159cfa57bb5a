package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-progression-api/internal/models"
)

// LeaderboardRepository aggregates per-user scores for ranking.
type LeaderboardRepository struct {
	db *sqlx.DB
}

// NewLeaderboardRepository constructs the repository.
func NewLeaderboardRepository(db *sqlx.DB) *LeaderboardRepository {
	return &LeaderboardRepository{db: db}
}

// scoreQuery returns the per-user aggregate for a metric. When from is set it binds $1.
func scoreQuery(metric models.LeaderboardMetric, from *time.Time) (string, []interface{}, error) {
	var base, timeColumn string
	switch metric {
	case models.MetricBadgesEarned:
		base = `SELECT user_id, COUNT(*)::float8 AS score FROM badge_awards WHERE approval_status = 'APPROVED'`
		timeColumn = "earned_at"
	case models.MetricHoursLogged:
		base = `SELECT user_id, SUM(hours)::float8 AS score FROM hours_ledger WHERE hours > 0`
		timeColumn = "recorded_at"
	case models.MetricMissionsCompleted:
		base = `SELECT learner_id AS user_id, COUNT(*)::float8 AS score FROM mission_progress WHERE status = 'COMPLETED'`
		timeColumn = "completed_at"
	case models.MetricChallengesWon:
		base = `SELECT user_id, COUNT(*)::float8 AS score FROM challenge_results WHERE won`
		timeColumn = "completed_at"
	default:
		return "", nil, fmt.Errorf("unsupported leaderboard metric %q", metric)
	}

	args := make([]interface{}, 0, 2)
	if from != nil {
		args = append(args, *from)
		base += fmt.Sprintf(" AND %s >= $1", timeColumn)
	}
	if metric == models.MetricMissionsCompleted {
		base += " GROUP BY learner_id"
	} else {
		base += " GROUP BY user_id"
	}
	return base, args, nil
}

// TopScores returns the highest scores, ordered by score desc then user id asc.
func (r *LeaderboardRepository) TopScores(ctx context.Context, metric models.LeaderboardMetric, from *time.Time, limit int) ([]models.LeaderboardScore, error) {
	base, args, err := scoreQuery(metric, from)
	if err != nil {
		return nil, err
	}
	args = append(args, limit)
	query := fmt.Sprintf(`SELECT user_id, score FROM (%s) AS scores ORDER BY score DESC, user_id ASC LIMIT $%d`, base, len(args))

	var scores []models.LeaderboardScore
	if err := r.db.SelectContext(ctx, &scores, query, args...); err != nil {
		return nil, fmt.Errorf("leaderboard top scores: %w", err)
	}
	return scores, nil
}

// PositionRow is a user's score with the number of users strictly ahead.
type PositionRow struct {
	Score        float64 `db:"score"`
	Above        int     `db:"above"`
	Participants int     `db:"participants"`
}

// Position computes the user's score and how many users score strictly higher.
// Users without records score 0.
func (r *LeaderboardRepository) Position(ctx context.Context, metric models.LeaderboardMetric, from *time.Time, userID string) (*PositionRow, error) {
	base, args, err := scoreQuery(metric, from)
	if err != nil {
		return nil, err
	}
	args = append(args, userID)
	query := fmt.Sprintf(`WITH scores AS (%s),
	me AS (SELECT COALESCE((SELECT score FROM scores WHERE user_id = $%d), 0) AS score)
	SELECT me.score AS score,
		(SELECT COUNT(*) FROM scores WHERE scores.score > me.score) AS above,
		(SELECT COUNT(*) FROM scores) AS participants
	FROM me`, base, len(args))

	var row PositionRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return nil, fmt.Errorf("leaderboard position: %w", err)
	}
	return &row, nil
}
