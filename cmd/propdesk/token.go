package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vbonduro/propdesk/internal/auth"
	"github.com/vbonduro/propdesk/internal/config"
	"github.com/vbonduro/propdesk/internal/domain"
)

func newTokenCmd() *cobra.Command {
	var (
		email string
		name  string
		role  string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed bearer token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			r := domain.Role(role)
			if r != domain.RoleUser && r != domain.RoleAdmin {
				return fmt.Errorf("invalid role %q: must be %s or %s", role, domain.RoleUser, domain.RoleAdmin)
			}
			tokens, err := auth.NewTokens(cfg.JWTSecret, ttl)
			if err != nil {
				return err
			}
			signed, err := tokens.Issue(domain.User{Email: email, FullName: name, Role: r})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "user email (token subject)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleUser), "user or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", tokenTTL, "token lifetime")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
