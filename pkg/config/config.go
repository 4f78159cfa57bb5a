package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Progression   ProgressionConfig
	Leaderboard   LeaderboardConfig
	Notifications NotificationsConfig
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

type RedisConfig struct {
	Enabled     bool
	Host        string
	Port        int
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
}

// JWTConfig holds the verification settings for tokens issued by the platform auth service.
type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// ProgressionConfig tunes leveling, streaks and CPD targets.
type ProgressionConfig struct {
	LevelMetric          string
	LevelThresholds      []float64
	LevelNames           []string
	StreakTimezone       string
	CPDAnnualTargetHours float64
}

// LeaderboardConfig governs ranking limits and cache behaviour.
type LeaderboardConfig struct {
	CacheTTL       time.Duration
	DefaultLimit   int
	MaxLimit       int
	WarmupEnabled  bool
	WarmupInterval time.Duration
}

// NotificationsConfig sizes the in-app notification worker pool.
type NotificationsConfig struct {
	Enabled bool
	Workers int
	Retries int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:            v.GetString("DB_HOST"),
		Port:            v.GetInt("DB_PORT"),
		User:            v.GetString("DB_USER"),
		Password:        v.GetString("DB_PASSWORD"),
		Name:            v.GetString("DB_NAME"),
		SSLMode:         v.GetString("DB_SSL_MODE"),
		MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
		ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		ConnectTimeout:  v.GetDuration("DB_CONNECT_TIMEOUT"),
	}

	cfg.Redis = RedisConfig{
		Enabled:     v.GetBool("ENABLE_REDIS"),
		Host:        v.GetString("REDIS_HOST"),
		Port:        v.GetInt("REDIS_PORT"),
		Password:    v.GetString("REDIS_PASSWORD"),
		DB:          v.GetInt("REDIS_DB"),
		PoolSize:    v.GetInt("REDIS_POOL_SIZE"),
		DialTimeout: v.GetDuration("REDIS_DIAL_TIMEOUT"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:      v.GetString("LOG_LEVEL"),
		Format:     v.GetString("LOG_FORMAT"),
		File:       v.GetString("LOG_FILE"),
		MaxSizeMB:  v.GetInt("LOG_MAX_SIZE_MB"),
		MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
		MaxAgeDays: v.GetInt("LOG_MAX_AGE_DAYS"),
		Compress:   v.GetBool("LOG_COMPRESS"),
	}

	thresholds, err := parseFloats(v.GetString("LEVEL_THRESHOLDS"))
	if err != nil {
		return nil, fmt.Errorf("LEVEL_THRESHOLDS: %w", err)
	}
	cfg.Progression = ProgressionConfig{
		LevelMetric:          strings.ToUpper(strings.TrimSpace(v.GetString("LEVEL_METRIC"))),
		LevelThresholds:      thresholds,
		LevelNames:           splitAndTrim(v.GetString("LEVEL_NAMES")),
		StreakTimezone:       v.GetString("STREAK_TIMEZONE"),
		CPDAnnualTargetHours: v.GetFloat64("CPD_ANNUAL_TARGET_HOURS"),
	}

	cfg.Leaderboard = LeaderboardConfig{
		CacheTTL:       parseDuration(v.GetString("LEADERBOARD_CACHE_TTL"), 2*time.Minute),
		DefaultLimit:   v.GetInt("LEADERBOARD_DEFAULT_LIMIT"),
		MaxLimit:       v.GetInt("LEADERBOARD_MAX_LIMIT"),
		WarmupEnabled:  v.GetBool("ENABLE_LEADERBOARD_WARMUP"),
		WarmupInterval: parseDuration(v.GetString("LEADERBOARD_WARMUP_INTERVAL"), 5*time.Minute),
	}

	cfg.Notifications = NotificationsConfig{
		Enabled: v.GetBool("ENABLE_NOTIFICATIONS"),
		Workers: v.GetInt("NOTIFICATIONS_WORKERS"),
		Retries: v.GetInt("NOTIFICATIONS_RETRIES"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints that defaults cannot guarantee.
func (c *Config) Validate() error {
	switch c.Progression.LevelMetric {
	case "BADGES", "HOURS":
	default:
		return fmt.Errorf("LEVEL_METRIC must be BADGES or HOURS, got %q", c.Progression.LevelMetric)
	}
	for i := 1; i < len(c.Progression.LevelThresholds); i++ {
		if c.Progression.LevelThresholds[i] <= c.Progression.LevelThresholds[i-1] {
			return fmt.Errorf("LEVEL_THRESHOLDS must be strictly ascending")
		}
	}
	if len(c.Progression.LevelNames) > 0 && len(c.Progression.LevelNames) != len(c.Progression.LevelThresholds)+1 {
		return fmt.Errorf("LEVEL_NAMES needs %d entries", len(c.Progression.LevelThresholds)+1)
	}
	if c.Progression.StreakTimezone != "" {
		if _, err := time.LoadLocation(c.Progression.StreakTimezone); err != nil {
			return fmt.Errorf("STREAK_TIMEZONE: %w", err)
		}
	}
	if c.Leaderboard.MaxLimit <= 0 || c.Leaderboard.MaxLimit > 100 {
		c.Leaderboard.MaxLimit = 100
	}
	if c.Leaderboard.DefaultLimit <= 0 || c.Leaderboard.DefaultLimit > c.Leaderboard.MaxLimit {
		c.Leaderboard.DefaultLimit = 10
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "sma_progression")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("DB_CONNECT_TIMEOUT", "5s")

	v.SetDefault("ENABLE_REDIS", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "5s")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 3)
	v.SetDefault("LOG_MAX_AGE_DAYS", 7)
	v.SetDefault("LOG_COMPRESS", false)

	v.SetDefault("LEVEL_METRIC", "BADGES")
	v.SetDefault("LEVEL_THRESHOLDS", "3,6,8")
	v.SetDefault("LEVEL_NAMES", "Beginner,Intermediate,Advanced,Expert")
	v.SetDefault("STREAK_TIMEZONE", "UTC")
	v.SetDefault("CPD_ANNUAL_TARGET_HOURS", 40)

	v.SetDefault("LEADERBOARD_CACHE_TTL", "2m")
	v.SetDefault("LEADERBOARD_DEFAULT_LIMIT", 10)
	v.SetDefault("LEADERBOARD_MAX_LIMIT", 100)
	v.SetDefault("ENABLE_LEADERBOARD_WARMUP", false)
	v.SetDefault("LEADERBOARD_WARMUP_INTERVAL", "5m")

	v.SetDefault("ENABLE_NOTIFICATIONS", true)
	v.SetDefault("NOTIFICATIONS_WORKERS", 2)
	v.SetDefault("NOTIFICATIONS_RETRIES", 3)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

func parseFloats(raw string) ([]float64, error) {
	parts := splitAndTrim(raw)
	values := make([]float64, 0, len(parts))
	for _, part := range parts {
		value, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", part)
		}
		values = append(values, value)
	}
	return values, nil
}
