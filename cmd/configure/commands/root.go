// Package commands implements the day-timeline-configure CLI
package commands

import (
	"context"
	"fmt"

	"github.com/benvon/day-timeline/internal/config"
	"github.com/benvon/day-timeline/internal/database"
	"github.com/spf13/cobra"
)

// NewRootCmd assembles the CLI
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "day-timeline-configure",
		Short:         "Configuration tool for the Day Timeline API",
		Long:          "Manage OIDC providers, CORS and rate limits, apply the schema and inspect day metrics.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		NewOIDCCmd(),
		NewListCmd(),
		NewTestCmd(),
		NewCorsCmd(),
		NewRatelimitCmd(),
		NewMigrateCmd(),
		NewMetricsCmd(),
	)
	return root
}

// withDB loads configuration, connects and runs fn with the pool
func withDB(ctx context.Context, cmd *cobra.Command, fn func(*database.DB) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to close database: %v\n", err)
		}
	}()
	return fn(db)
}
