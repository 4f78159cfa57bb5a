package models

import (
	"fmt"
	"strings"
)

// LeaderboardMetric is the score a leaderboard ranks by.
type LeaderboardMetric string

const (
	MetricBadgesEarned      LeaderboardMetric = "BADGES_EARNED"
	MetricHoursLogged       LeaderboardMetric = "HOURS_LOGGED"
	MetricMissionsCompleted LeaderboardMetric = "MISSIONS_COMPLETED"
	MetricChallengesWon     LeaderboardMetric = "CHALLENGES_WON"
)

// LeaderboardMetrics lists every metric, in display order.
var LeaderboardMetrics = []LeaderboardMetric{MetricBadgesEarned, MetricHoursLogged, MetricMissionsCompleted, MetricChallengesWon}

// ParseLeaderboardMetric converts user input into a known metric.
func ParseLeaderboardMetric(raw string) (LeaderboardMetric, error) {
	metric := LeaderboardMetric(strings.ToUpper(strings.TrimSpace(raw)))
	switch metric {
	case MetricBadgesEarned, MetricHoursLogged, MetricMissionsCompleted, MetricChallengesWon:
		return metric, nil
	}
	return "", fmt.Errorf("unknown leaderboard metric %q", raw)
}

// TimeRange is the window a leaderboard score is computed over.
type TimeRange string

const (
	RangeWeekly          TimeRange = "WEEKLY"
	RangeMonthly         TimeRange = "MONTHLY"
	RangeCurrentSemester TimeRange = "CURRENT_SEMESTER"
	RangeAllTime         TimeRange = "ALL_TIME"
)

// TimeRanges lists every range, in display order.
var TimeRanges = []TimeRange{RangeWeekly, RangeMonthly, RangeCurrentSemester, RangeAllTime}

// ParseTimeRange converts user input into a known range.
func ParseTimeRange(raw string) (TimeRange, error) {
	r := TimeRange(strings.ToUpper(strings.TrimSpace(raw)))
	switch r {
	case RangeWeekly, RangeMonthly, RangeCurrentSemester, RangeAllTime:
		return r, nil
	}
	return "", fmt.Errorf("unknown time range %q", raw)
}

// LeaderboardScore is an unranked per-user aggregate.
type LeaderboardScore struct {
	UserID string  `db:"user_id" json:"userId"`
	Score  float64 `db:"score" json:"score"`
}

// LeaderboardEntry is a ranked row.
type LeaderboardEntry struct {
	UserID string  `json:"userId"`
	Score  float64 `json:"score"`
	Rank   int     `json:"rank"`
}

// UserPosition is a single user's standing in the full ranked set.
type UserPosition struct {
	UserID       string            `json:"userId"`
	Metric       LeaderboardMetric `json:"metric"`
	Range        TimeRange         `json:"range"`
	Score        float64           `json:"score"`
	Rank         int               `json:"rank"`
	Participants int               `json:"participants"`
}
