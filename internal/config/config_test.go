// internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		t.Setenv("DB_URL", "postgres://localhost/repometer")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, 24*time.Hour, cfg.SyncInterval)
		assert.Equal(t, 5, cfg.SyncConcurrency)
		assert.Equal(t, 3, cfg.FetchAttempts)
		assert.Equal(t, 100*time.Millisecond, cfg.MinRequestDelay)
	})

	t.Run("reads overrides from environment", func(t *testing.T) {
		t.Setenv("DB_URL", "postgres://localhost/repometer")
		t.Setenv("SYNC_CONCURRENCY", "2")
		t.Setenv("SYNC_INTERVAL", "30m")
		t.Setenv("LOG_LEVEL", "debug")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, 2, cfg.SyncConcurrency)
		assert.Equal(t, 30*time.Minute, cfg.SyncInterval)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("requires DB_URL", func(t *testing.T) {
		t.Setenv("DB_URL", "")

		_, err := LoadConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DB_URL")
	})

	t.Run("rejects zero concurrency", func(t *testing.T) {
		t.Setenv("DB_URL", "postgres://localhost/repometer")
		t.Setenv("SYNC_CONCURRENCY", "0")

		_, err := LoadConfig()
		require.Error(t, err)
	})
}
