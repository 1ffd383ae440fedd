package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"example.com/walklog/internal/auth"
)

// NewTokenCommand creates the token command, which signs bearer tokens for local testing.
func NewTokenCommand(opts *RootOptions) *cobra.Command {
	var (
		userID string
		scopes []string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a development bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return errors.New("--user is required")
			}
			if opts.Config.JWTSecret == "" {
				return errors.New("JWT_SECRET is required")
			}
			token, err := auth.Issue(auth.Config{Secret: opts.Config.JWTSecret, Issuer: opts.Config.JWTIssuer}, userID, scopes, ttl)
			if err != nil {
				return err
			}
			return opts.emit(cmd.OutOrStdout(), map[string]any{"token": token, "expires_in": int(ttl.Seconds())}, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, token)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "local user id (token subject)")
	cmd.Flags().StringSliceVar(&scopes, "scope", []string{auth.ScopeWalksRead, auth.ScopeWalksWrite, auth.ScopeStravaConnect}, "scopes to grant")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
