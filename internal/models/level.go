package models

import "time"

// LevelMetric selects the quantity levels are derived from.
type LevelMetric string

const (
	LevelMetricBadges LevelMetric = "BADGES"
	LevelMetricHours  LevelMetric = "HOURS"
)

// Valid reports whether the metric is known.
func (m LevelMetric) Valid() bool {
	return m == LevelMetricBadges || m == LevelMetricHours
}

// LevelTier is one band of the level table. MinValue is inclusive.
type LevelTier struct {
	Level    int     `json:"level"`
	Name     string  `json:"name"`
	MinValue float64 `json:"minValue"`
}

// LevelScheme is an ascending tier table over one metric. The top tier is open-ended.
type LevelScheme struct {
	Metric LevelMetric `json:"metric"`
	Tiers  []LevelTier `json:"tiers"`
}

// LevelFor returns the highest tier whose lower bound is reached by value.
func (s LevelScheme) LevelFor(value float64) LevelTier {
	if len(s.Tiers) == 0 {
		return LevelTier{Level: 1}
	}
	tier := s.Tiers[0]
	for _, candidate := range s.Tiers[1:] {
		if value < candidate.MinValue {
			break
		}
		tier = candidate
	}
	return tier
}

// LevelRecord stores a user's current achievement level. CurrentLevel never decreases.
type LevelRecord struct {
	UserID         string      `db:"user_id" json:"userId"`
	CurrentLevel   int         `db:"current_level" json:"currentLevel"`
	LevelName      string      `db:"level_name" json:"levelName"`
	Metric         LevelMetric `db:"metric" json:"metric"`
	MetricSnapshot float64     `db:"metric_snapshot" json:"metricSnapshot"`
	LastLevelUpAt  *time.Time  `db:"last_level_up_at" json:"lastLevelUpAt,omitempty"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updatedAt"`
}
