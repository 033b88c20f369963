// cmd/repometer/root.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"repometer/internal/config"
	"repometer/internal/store"
	"repometer/internal/syncer"
	"repometer/internal/vcs"
)

var rootCmd = &cobra.Command{
	Use:           "repometer",
	Short:         "Collect and store repository traffic metrics for registered customers",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.AddCommand(
		addCustomerCmd, removeCustomerCmd,
		addAccountCmd, removeAccountCmd,
		addRepositoryCmd, removeRepositoryCmd,
		showDataCmd, statusCmd, backupCmd,
		collectCmd, serveCmd,
	)
}

// app bundles the dependencies every subcommand needs once configuration is
// loaded and the database is reachable.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	pool   *pgxpool.Pool
	store  *store.Store
}

// withApp wraps a subcommand body with the shared startup sequence: load
// configuration, build the logger, connect the pool, apply migrations.
func withApp(fn func(ctx context.Context, a *app) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		logger := newLogger(cfg.LogLevel)

		pool, err := pgxpool.New(ctx, cfg.DBURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		if err := runMigrations(cfg.MigrationsURL, cfg.DBURL); err != nil {
			return fmt.Errorf("failed to run database migrations: %w", err)
		}

		return fn(ctx, &app{
			cfg:    cfg,
			logger: logger,
			pool:   pool,
			store:  store.New(pool, logger),
		})
	}
}

// newSyncer assembles the sync engine with both platform adapters sharing one
// rate tracker.
func newSyncer(a *app) *syncer.Syncer {
	limits := vcs.NewRateTracker(a.cfg.MinRequestDelay)
	adapters := vcs.NewAdapterSet(
		vcs.NewGitHubAdapter(limits, a.logger, a.cfg.FetchAttempts),
		vcs.NewGitLabAdapter(limits, a.logger, a.cfg.FetchAttempts),
	)
	return syncer.New(a.store, adapters, a.logger, a.cfg.SyncConcurrency)
}

func newLogger(level string) *slog.Logger {
	logLevel := new(slog.LevelVar)
	switch level {
	case "debug":
		logLevel.Set(slog.LevelDebug)
	case "warn":
		logLevel.Set(slog.LevelWarn)
	case "error":
		logLevel.Set(slog.LevelError)
	default:
		logLevel.Set(slog.LevelInfo)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return logger
}

func runMigrations(sourceURL, dbURL string) error {
	m, err := migrate.New(sourceURL, dbURL)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
