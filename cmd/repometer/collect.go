// cmd/repometer/collect.go
package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run one sync pass over every registered repository",
	Long: "Run one sync pass over every registered repository: fetch current " +
		"metrics from each hosting platform, drop already-stored readings and " +
		"persist the rest. Exits non-zero if any repository failed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			report, err := newSyncer(a).Run(ctx)
			if err != nil {
				return err
			}
			fmt.Println(report.Summary())
			if report.HasFailures() {
				return fmt.Errorf("%d of %d repositories failed", len(report.Failed), report.Attempted)
			}
			return nil
		})(cmd, args)
	},
}
