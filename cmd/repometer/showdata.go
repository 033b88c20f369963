// cmd/repometer/showdata.go
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"repometer/internal/model"
)

var (
	showDataURL   string
	showDataOwner string
	showDataRepo  string
)

func init() {
	showDataCmd.Flags().StringVar(&showDataURL, "url", "", "platform URL to filter by")
	showDataCmd.Flags().StringVar(&showDataOwner, "owner", "", "repository owner to filter by")
	showDataCmd.Flags().StringVar(&showDataRepo, "repo", "", "repository name to filter by")
}

var showDataCmd = &cobra.Command{
	Use:   "show-data",
	Short: "Print stored observations",
	Long: "Print stored observations. With --url, --owner and --repo the output " +
		"is limited to one repository; otherwise every stored row is printed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		filtered := showDataURL != "" || showDataOwner != "" || showDataRepo != ""
		if filtered && (showDataURL == "" || showDataOwner == "" || showDataRepo == "") {
			return fmt.Errorf("--url, --owner and --repo must be given together")
		}
		return withApp(func(ctx context.Context, a *app) error {
			var (
				rows []model.TrafficRow
				err  error
			)
			if filtered {
				key := model.RepoKey{URL: showDataURL, Owner: showDataOwner, Repository: showDataRepo}
				rows, err = a.store.ObservationsFor(ctx, key)
			} else {
				rows, err = a.store.AllObservations(ctx)
			}
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Println("No observations stored.")
				return nil
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"URL", "Username", "Owner", "Repository", "Date", "Tag", "Value"})
			for _, row := range rows {
				table.Append([]string{
					row.URL, row.Username, row.Owner, row.Repository,
					row.Date.Format(model.DateLayout), row.Tag, row.Value,
				})
			}
			table.Render()
			return nil
		})(cmd, args)
	},
}
