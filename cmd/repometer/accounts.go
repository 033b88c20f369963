// cmd/repometer/accounts.go
package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"repometer/internal/model"
)

var addAccountCmd = &cobra.Command{
	Use:   "add-account CUSTOMER URL USERNAME TOKEN",
	Short: "Register a platform credential for a customer",
	Long: "Register a platform credential for a customer. Adding a new token for " +
		"an existing (customer, url, username) scope supersedes the old one; the " +
		"most recently added token is the one used.",
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		account := model.Account{
			Customer: strings.TrimSpace(args[0]),
			URL:      strings.TrimSpace(args[1]),
			Username: strings.TrimSpace(args[2]),
		}
		token := args[3]
		if account.Customer == "" || account.URL == "" || account.Username == "" || token == "" {
			return fmt.Errorf("customer, url, username and token must all be non-empty")
		}
		return withApp(func(ctx context.Context, a *app) error {
			ok, err := a.store.CustomerExists(ctx, account.Customer)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("customer %q is not registered", account.Customer)
			}
			if err := a.store.AddAccount(ctx, account, token); err != nil {
				return err
			}
			fmt.Printf("Account %s@%s registered for customer %q.\n", account.Username, account.URL, account.Customer)
			return nil
		})(cmd, args)
	},
}

var removeAccountCmd = &cobra.Command{
	Use:   "remove-account CUSTOMER URL USERNAME",
	Short: "Remove all credentials for a customer's account scope",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		account := model.Account{
			Customer: strings.TrimSpace(args[0]),
			URL:      strings.TrimSpace(args[1]),
			Username: strings.TrimSpace(args[2]),
		}
		if account.Customer == "" || account.URL == "" || account.Username == "" {
			return fmt.Errorf("customer, url and username must all be non-empty")
		}
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.store.RemoveAccount(ctx, account); err != nil {
				return err
			}
			fmt.Printf("Account %s@%s removed for customer %q.\n", account.Username, account.URL, account.Customer)
			return nil
		})(cmd, args)
	},
}
