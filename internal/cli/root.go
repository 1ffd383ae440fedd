// Package cli implements the stravactl operator command.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"example.com/walklog/internal/config"
	"example.com/walklog/internal/logging"
	"example.com/walklog/internal/strava"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// SubscriptionAPI is the Strava push subscription surface used by the CLI.
type SubscriptionAPI interface {
	CreateSubscription(ctx context.Context, callbackURL, verifyToken string) (int64, error)
	ListSubscriptions(ctx context.Context) ([]strava.Subscription, error)
	DeleteSubscription(ctx context.Context, id int64) error
}

// RootOptions holds global flags and shared dependencies for all commands.
type RootOptions struct {
	Verbose bool
	Format  string

	Config config.Config
	// NewSubscriptions builds the Strava client; tests replace it.
	NewSubscriptions func(cfg config.Config) SubscriptionAPI
}

// NewRootCommand creates the root command for stravactl.
func NewRootCommand(cfg config.Config) *cobra.Command {
	opts := &RootOptions{
		Config:           cfg,
		NewSubscriptions: defaultSubscriptions,
	}
	return newRootCommand(opts)
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stravactl",
		Short: "Operate the walk log Strava integration",
		Long:  "Run database migrations, manage Strava push subscriptions and mint development tokens.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSubscriptionCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))
	return cmd
}

func defaultSubscriptions(cfg config.Config) SubscriptionAPI {
	return strava.NewClient(strava.Config{
		ClientID:     cfg.StravaClientID,
		ClientSecret: cfg.StravaClientSecret,
		RedirectURL:  cfg.StravaRedirectURL,
		AuthURL:      cfg.StravaAuthURL,
		TokenURL:     cfg.StravaTokenURL,
		APIBaseURL:   cfg.StravaAPIBaseURL,
		Timeout:      cfg.StravaHTTPTimeout,
	})
}

func (o *RootOptions) logger() *zap.Logger {
	level := "warn"
	if o.Verbose {
		level = "debug"
	}
	return logging.New(level, "development")
}

// emit writes v as JSON or YAML, or text via the fallback, depending on --format.
// YAML keys follow the JSON field names.
func (o *RootOptions) emit(w io.Writer, v any, text func(io.Writer) error) error {
	switch o.Format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	default:
		return text(w)
	}
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
