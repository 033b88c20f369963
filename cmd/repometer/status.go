// cmd/repometer/status.go
package main

import (
	"context"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print row counts for every table",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			counts, err := a.store.TableCounts(ctx)
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Table", "Rows"})
			table.Append([]string{"customers", strconv.FormatInt(counts.Customers, 10)})
			table.Append([]string{"accounts", strconv.FormatInt(counts.Accounts, 10)})
			table.Append([]string{"repositories", strconv.FormatInt(counts.Repositories, 10)})
			table.Append([]string{"observations", strconv.FormatInt(counts.Observations, 10)})
			table.Render()
			return nil
		})(cmd, args)
	},
}
