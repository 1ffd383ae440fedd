package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"example.com/walklog/internal/persistence/migrations"
)

// NewMigrateCommand creates the migrate command group.
func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the walk log schema",
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Postgres URL (defaults to POSTGRES_URL)")

	dsn := func() (string, error) {
		if databaseURL != "" {
			return databaseURL, nil
		}
		if opts.Config.PostgresURL != "" {
			return opts.Config.PostgresURL, nil
		}
		return "", errors.New("no database URL: set POSTGRES_URL or --database-url")
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := dsn()
			if err != nil {
				return err
			}
			if err := migrations.Up(url, opts.logger()); err != nil {
				return err
			}
			return printVersion(opts, cmd.OutOrStdout(), url)
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps <= 0 {
				return fmt.Errorf("--steps must be positive, got %d", steps)
			}
			url, err := dsn()
			if err != nil {
				return err
			}
			if err := migrations.Down(url, steps, opts.logger()); err != nil {
				return err
			}
			return printVersion(opts, cmd.OutOrStdout(), url)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := dsn()
			if err != nil {
				return err
			}
			return printVersion(opts, cmd.OutOrStdout(), url)
		},
	})
	return cmd
}

type versionResult struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

func printVersion(opts *RootOptions, w io.Writer, url string) error {
	version, dirty, err := migrations.Version(url)
	if err != nil {
		return err
	}
	res := versionResult{Version: version, Dirty: dirty}
	return opts.emit(w, res, func(w io.Writer) error {
		state := "clean"
		if dirty {
			state = "dirty"
		}
		_, err := fmt.Fprintf(w, "schema version %d (%s)\n", version, state)
		return err
	})
}
