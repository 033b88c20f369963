// cmd/repometer/customers.go
package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var addCustomerCmd = &cobra.Command{
	Use:   "add-customer NAME",
	Short: "Register a customer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.TrimSpace(args[0])
		if name == "" {
			return fmt.Errorf("customer name must not be empty")
		}
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.store.AddCustomer(ctx, name); err != nil {
				return err
			}
			fmt.Printf("Customer %q registered.\n", name)
			return nil
		})(cmd, args)
	},
}

var removeCustomerCmd = &cobra.Command{
	Use:   "remove-customer NAME",
	Short: "Remove a customer record",
	Long: "Remove a customer record. The customer's accounts, repositories and " +
		"stored observations are left in place and must be removed separately.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.TrimSpace(args[0])
		if name == "" {
			return fmt.Errorf("customer name must not be empty")
		}
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.store.RemoveCustomer(ctx, name); err != nil {
				return err
			}
			fmt.Printf("Customer %q removed.\n", name)
			return nil
		})(cmd, args)
	},
}
