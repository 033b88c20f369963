// internal/config/config.go
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application. The sync engine never
// reads environment or file state itself; everything it needs is injected
// from here at startup.
type Config struct {
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	DBURL           string        `mapstructure:"DB_URL"`
	MigrationsURL   string        `mapstructure:"MIGRATIONS_URL"`
	HTTPAddr        string        `mapstructure:"HTTP_ADDR"`
	SyncInterval    time.Duration `mapstructure:"SYNC_INTERVAL"`
	SyncConcurrency int           `mapstructure:"SYNC_CONCURRENCY"`
	FetchAttempts   int           `mapstructure:"FETCH_ATTEMPTS"`
	MinRequestDelay time.Duration `mapstructure:"MIN_REQUEST_DELAY"`
}

// LoadConfig reads configuration from an optional .env file and from
// environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MIGRATIONS_URL", "file://migrations")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("SYNC_INTERVAL", "24h")
	v.SetDefault("SYNC_CONCURRENCY", 5)
	v.SetDefault("FETCH_ATTEMPTS", 3)
	v.SetDefault("MIN_REQUEST_DELAY", "100ms")

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if file not found

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv alone does not surface env vars through Unmarshal; bind
	// each known key explicitly.
	for _, key := range []string{
		"LOG_LEVEL", "DB_URL", "MIGRATIONS_URL", "HTTP_ADDR",
		"SYNC_INTERVAL", "SYNC_CONCURRENCY", "FETCH_ATTEMPTS", "MIN_REQUEST_DELAY",
	} {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.DBURL == "" {
		return nil, errors.New("DB_URL is a required configuration field")
	}
	if cfg.SyncConcurrency < 1 {
		return nil, errors.New("SYNC_CONCURRENCY must be at least 1")
	}
	if cfg.FetchAttempts < 1 {
		return nil, errors.New("FETCH_ATTEMPTS must be at least 1")
	}

	return &cfg, nil
}
