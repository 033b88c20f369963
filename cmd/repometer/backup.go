// cmd/repometer/backup.go
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"repometer/internal/model"
)

var backupDir string

func init() {
	backupCmd.Flags().StringVar(&backupDir, "dir", "backups", "directory to write CSV files into")
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export all tables to CSV files",
	Long: "Export all tables to CSV files, one per table. Credential tokens are " +
		"never exported; the accounts file carries the credential scopes only.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			if err := os.MkdirAll(backupDir, 0o755); err != nil {
				return fmt.Errorf("creating backup directory: %w", err)
			}

			customers, err := a.store.ListCustomers(ctx)
			if err != nil {
				return err
			}
			customerRows := [][]string{{"customer"}}
			for _, c := range customers {
				customerRows = append(customerRows, []string{c.Name})
			}
			if err := writeCSV(filepath.Join(backupDir, "customers.csv"), customerRows); err != nil {
				return err
			}

			accounts, err := a.store.ListAccounts(ctx)
			if err != nil {
				return err
			}
			accountRows := [][]string{{"customer", "url", "username"}}
			for _, acc := range accounts {
				accountRows = append(accountRows, []string{acc.Customer, acc.URL, acc.Username})
			}
			if err := writeCSV(filepath.Join(backupDir, "accounts.csv"), accountRows); err != nil {
				return err
			}

			regs, err := a.store.ListRegistrations(ctx)
			if err != nil {
				return err
			}
			regRows := [][]string{{"url", "username", "owner", "repository"}}
			for _, r := range regs {
				regRows = append(regRows, []string{r.URL, r.Username, r.Owner, r.Repository})
			}
			if err := writeCSV(filepath.Join(backupDir, "repositories.csv"), regRows); err != nil {
				return err
			}

			obs, err := a.store.AllObservations(ctx)
			if err != nil {
				return err
			}
			obsRows := [][]string{{"url", "username", "owner", "repository", "date", "tag", "value"}}
			for _, o := range obs {
				obsRows = append(obsRows, []string{
					o.URL, o.Username, o.Owner, o.Repository,
					o.Date.Format(model.DateLayout), o.Tag, o.Value,
				})
			}
			if err := writeCSV(filepath.Join(backupDir, "traffic.csv"), obsRows); err != nil {
				return err
			}

			fmt.Printf("Backup written to %s (%d customers, %d accounts, %d repositories, %d observations).\n",
				backupDir, len(customers), len(accounts), len(regs), len(obs))
			return nil
		})(cmd, args)
	},
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	err = w.WriteAll(rows)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
