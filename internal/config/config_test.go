package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "full", cfg.Mode)
	assert.Equal(t, 3, cfg.Binance.RetryMaxAttempts)
	assert.Equal(t, 24*time.Hour, cfg.Reconcile.FreshnessThreshold.Duration)
	assert.Equal(t, 5, cfg.Reconcile.BatchSize)
	assert.Equal(t, 100*time.Millisecond, cfg.Binance.MinRequestGap.Duration)
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "turbo"
	cfg.Binance.RetryMaxAttempts = 0
	cfg.Reconcile.BatchSize = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mode")
	assert.Contains(t, err.Error(), "retry_max_attempts")
	assert.Contains(t, err.Error(), "batch_size")
}

func TestLoadAppliesTOMLOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "serve"

[reconcile]
freshness_threshold = "12h"
batch_size = 10

[server]
port = 9999
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "serve", cfg.Mode)
	assert.Equal(t, 12*time.Hour, cfg.Reconcile.FreshnessThreshold.Duration)
	assert.Equal(t, 10, cfg.Reconcile.BatchSize)
	assert.Equal(t, 9999, cfg.Server.Port)

	// Untouched sections keep defaults.
	assert.Equal(t, 3, cfg.Binance.RetryMaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Prices.Interval.Duration)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ALPHATRACKER_MODE", "track")
	t.Setenv("ALPHATRACKER_RECONCILE_INTERVAL", "90s")
	t.Setenv("ALPHATRACKER_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("DATABASE_URL", "postgres://user:pw@db.internal:5432/alpha")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "track", cfg.Mode)
	assert.Equal(t, 90*time.Second, cfg.Reconcile.Interval.Duration)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, "postgres://user:pw@db.internal:5432/alpha", cfg.Postgres.DSN)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestRedactedConfigHidesSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Password = "hunter2"
	cfg.Redis.Password = "hunter2"
	cfg.Server.APIKey = "hunter2"
	cfg.Notify.TelegramToken = "123:abc"

	red := RedactedConfig(&cfg)

	assert.Equal(t, "***", red.Postgres.Password)
	assert.Equal(t, "***", red.Redis.Password)
	assert.Equal(t, "***", red.Server.APIKey)
	assert.Equal(t, "***", red.Notify.TelegramToken)

	// Originals are untouched.
	assert.Equal(t, "hunter2", cfg.Postgres.Password)

	// Empty secrets stay empty.
	assert.Empty(t, red.Postgres.DSN)
}
