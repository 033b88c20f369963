// cmd/repometer/repositories.go
package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"repometer/internal/model"
	"repometer/internal/vcs"
)

var addRepositoryCmd = &cobra.Command{
	Use:   "add-repository URL USERNAME OWNER REPOSITORY",
	Short: "Register a repository for metric collection",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := model.Registration{
			URL:        strings.TrimSpace(args[0]),
			Username:   strings.TrimSpace(args[1]),
			Owner:      strings.TrimSpace(args[2]),
			Repository: strings.TrimSpace(args[3]),
		}
		if reg.URL == "" || reg.Username == "" || reg.Owner == "" || reg.Repository == "" {
			return fmt.Errorf("url, username, owner and repository must all be non-empty")
		}
		if vcs.Match(reg.URL) == vcs.Unrecognized {
			return fmt.Errorf("url %q matches no supported platform (github.com, gitlab.com or a gitlab.* host)", reg.URL)
		}
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.store.AddRegistration(ctx, reg); err != nil {
				return err
			}
			fmt.Printf("Repository %s registered under %s.\n", reg.Key(), reg.Username)
			return nil
		})(cmd, args)
	},
}

var removeRepositoryCmd = &cobra.Command{
	Use:   "remove-repository URL USERNAME OWNER REPOSITORY",
	Short: "Remove a repository registration",
	Long: "Remove a repository registration. Stored observations are kept; the " +
		"repository simply stops being collected for this username.",
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := model.Registration{
			URL:        strings.TrimSpace(args[0]),
			Username:   strings.TrimSpace(args[1]),
			Owner:      strings.TrimSpace(args[2]),
			Repository: strings.TrimSpace(args[3]),
		}
		if reg.URL == "" || reg.Username == "" || reg.Owner == "" || reg.Repository == "" {
			return fmt.Errorf("url, username, owner and repository must all be non-empty")
		}
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.store.RemoveRegistration(ctx, reg); err != nil {
				return err
			}
			fmt.Printf("Repository %s unregistered for %s.\n", reg.Key(), reg.Username)
			return nil
		})(cmd, args)
	},
}
