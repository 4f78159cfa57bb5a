package logger

import (
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/noah-isme/sma-progression-api/pkg/config"
	"github.com/noah-isme/sma-progression-api/pkg/middleware/requestid"
)

// New builds the process logger. When LOG_FILE is set, entries are also
// written as JSON to a size-rotated file.
func New(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Env == config.EnvProduction {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Log.Format {
	case "console":
		zapCfg.Encoding = "console"
	default:
		zapCfg.Encoding = "json"
	}

	if cfg.Log.Level != "" {
		if err := zapCfg.Level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		}
	}

	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var opts []zap.Option
	if cfg.Log.File != "" {
		fileCore := newFileCore(cfg.Log, zapCfg.EncoderConfig, zapCfg.Level)
		opts = append(opts, zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, fileCore)
		}))
	}

	return zapCfg.Build(opts...)
}

func newFileCore(cfg config.LogConfig, encCfg zapcore.EncoderConfig, level zapcore.LevelEnabler) zapcore.Core {
	if dir := filepath.Dir(cfg.File); dir != "" && dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}
	sink := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    nonZero(cfg.MaxSizeMB, 100),
		MaxBackups: nonZero(cfg.MaxBackups, 3),
		MaxAge:     nonZero(cfg.MaxAgeDays, 7),
		Compress:   cfg.Compress,
	}
	return zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(sink), level)
}

func nonZero(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func GinMiddleware(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		latency := time.Since(start)
		reqID := requestid.Value(c)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		}
		if reqID != "" {
			fields = append(fields, zap.String("request_id", reqID))
		}

		l.Info("http_request", fields...)
	}
}
