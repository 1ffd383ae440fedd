package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"example.com/walklog/internal/strava"
)

// NewSubscriptionCommand creates the subscription command group.
func NewSubscriptionCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subscription",
		Aliases: []string{"sub"},
		Short:   "Manage the Strava push subscription",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			if opts.Config.StravaClientID == "" || opts.Config.StravaClientSecret == "" {
				return errors.New("STRAVA_CLIENT_ID and STRAVA_CLIENT_SECRET are required")
			}
			return nil
		},
	}

	var callbackURL string
	create := &cobra.Command{
		Use:   "create",
		Short: "Register the webhook callback with Strava",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if callbackURL == "" {
				callbackURL = opts.Config.StravaWebhookCallbackURL
			}
			if callbackURL == "" {
				return errors.New("no callback URL: set STRAVA_WEBHOOK_CALLBACK_URL or --callback-url")
			}
			if opts.Config.StravaVerifyToken == "" {
				return errors.New("STRAVA_VERIFY_TOKEN is required")
			}

			id, err := opts.NewSubscriptions(opts.Config).CreateSubscription(cmd.Context(), callbackURL, opts.Config.StravaVerifyToken)
			if err != nil {
				return err
			}
			return opts.emit(cmd.OutOrStdout(), map[string]any{"id": id, "callback_url": callbackURL}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "created subscription %d -> %s\n", id, callbackURL)
				return err
			})
		},
	}
	create.Flags().StringVar(&callbackURL, "callback-url", "", "public URL of POST /strava/webhook")
	cmd.AddCommand(create)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List push subscriptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			subs, err := opts.NewSubscriptions(opts.Config).ListSubscriptions(cmd.Context())
			if err != nil {
				return err
			}
			if subs == nil {
				subs = []strava.Subscription{}
			}
			return opts.emit(cmd.OutOrStdout(), subs, func(w io.Writer) error {
				if len(subs) == 0 {
					_, err := fmt.Fprintln(w, "no subscriptions")
					return err
				}
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tCALLBACK\tCREATED")
				for _, s := range subs {
					fmt.Fprintf(tw, "%d\t%s\t%s\n", s.ID, s.CallbackURL, s.CreatedAt.Format(time.RFC3339))
				}
				return tw.Flush()
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a push subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid subscription id %q", args[0])
			}
			if err := opts.NewSubscriptions(opts.Config).DeleteSubscription(cmd.Context(), id); err != nil {
				return err
			}
			return opts.emit(cmd.OutOrStdout(), map[string]any{"deleted": id}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "deleted subscription %d\n", id)
				return err
			})
		},
	})
	return cmd
}
