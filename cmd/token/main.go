// Package main issues and inspects access tokens for local development.
package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/aura-webinar/privatevc/config"
	"github.com/aura-webinar/privatevc/internal/auth"
	"github.com/aura-webinar/privatevc/internal/middleware"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "token",
		Short:        "Issue and verify access tokens signed with JWT_SECRET",
		SilenceUsage: true,
	}

	cfg, err := config.Load()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}
	jwt := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	rootCmd.AddCommand(newIssueCmd(jwt), newVerifyCmd(jwt))
	return rootCmd
}

func newIssueCmd(jwt *auth.JWTService) *cobra.Command {
	var (
		user string
		role string
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Print a token for a user; a random user id is used when none is given",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id := uuid.New()
			if user != "" {
				parsed, err := uuid.Parse(user)
				if err != nil {
					return fmt.Errorf("invalid --user: %w", err)
				}
				id = parsed
			}
			token, err := jwt.Generate(id, role)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id (uuid)")
	cmd.Flags().StringVar(&role, "role", "member", "role claim, e.g. "+middleware.RoleAdmin)
	return cmd
}

func newVerifyCmd(jwt *auth.JWTService) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <token>",
		Short: "Validate a token and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			claims, err := jwt.Validate(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "user_id=%s role=%s expires=%s\n",
				claims.UserID, claims.Role, claims.ExpiresAt.Time.Format("2006-01-02T15:04:05Z07:00"))
			return err
		},
	}
}
