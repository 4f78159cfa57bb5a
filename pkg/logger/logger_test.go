package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-progression-api/pkg/config"
)

func TestNewWritesToRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "api.log")
	cfg := &config.Config{
		Env: config.EnvProduction,
		Log: config.LogConfig{Level: "info", Format: "json", File: path},
	}

	l, err := New(cfg)
	require.NoError(t, err)
	l.Info("badge awarded")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "badge awarded")
}

func TestNewFallsBackOnInvalidLevel(t *testing.T) {
	cfg := &config.Config{Env: config.EnvDevelopment, Log: config.LogConfig{Level: "loud"}}

	l, err := New(cfg)
	require.NoError(t, err)
	assert.NotNil(t, l)
}
