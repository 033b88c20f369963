// cmd/repometer/serve.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"repometer/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the periodic sync engine with the HTTP API",
	Long: "Run the periodic sync engine with the HTTP API. A sync pass runs " +
		"immediately and then on every SYNC_INTERVAL tick until the process " +
		"receives SIGINT or SIGTERM.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			go newSyncer(a).Start(ctx, a.cfg.SyncInterval)

			srv := &http.Server{
				Addr:    a.cfg.HTTPAddr,
				Handler: api.NewRouter(a.store, a.logger),
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("HTTP server listening", "addr", a.cfg.HTTPAddr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("http server: %w", err)
			case <-ctx.Done():
			}

			a.logger.Info("Shutdown signal received. Exiting.")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})(cmd, args)
	},
}
