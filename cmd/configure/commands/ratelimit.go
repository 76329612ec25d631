package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/benvon/day-timeline/internal/database"
	"github.com/benvon/day-timeline/internal/middleware"
	"github.com/benvon/day-timeline/internal/models"
	"github.com/spf13/cobra"
	"github.com/ulule/limiter/v3"
)

// NewRatelimitCmd creates the ratelimit command with list and set subcommands
func NewRatelimitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Manage rate limit configuration",
		Long:  "List or update the per-client API rate (e.g. 10-S, 100-M) stored in the database.",
	}
	cmd.AddCommand(newRatelimitListCmd(), newRatelimitSetCmd())
	return cmd
}

func newRatelimitListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List current rate limit configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			return withDB(ctx, cmd, func(db *database.DB) error {
				c, err := database.NewRatelimitConfigRepository(db).Get(ctx)
				if err != nil {
					return err
				}
				if c == nil {
					fmt.Fprintf(out, "No rate limit configuration in database; the server seeds %s on start.\n", middleware.DefaultRatelimitRate)
					return nil
				}
				fmt.Fprintln(out, "Rate limit configuration:")
				fmt.Fprintf(out, "  Rate: %s\n", c.Rate)
				return nil
			})
		},
	}
}

// parseRate validates the limiter's "<limit>-<period>" format
func parseRate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("--rate is required (e.g. 10-S, 100-M)")
	}
	if _, err := limiter.NewRateFromFormatted(raw); err != nil {
		return "", fmt.Errorf("invalid rate %q: %w", raw, err)
	}
	return raw, nil
}

func newRatelimitSetCmd() *cobra.Command {
	var rate string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set rate limit configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed, err := parseRate(rate)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return withDB(ctx, cmd, func(db *database.DB) error {
				if err := database.NewRatelimitConfigRepository(db).Set(ctx, &models.RatelimitConfig{Rate: parsed}); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Rate limit configuration updated.")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&rate, "rate", "", "Rate such as 10-S, 100-M or 1000-H (required)")
	return cmd
}
