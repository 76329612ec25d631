package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/benvon/day-timeline/internal/database"
	"github.com/benvon/day-timeline/internal/models"
	"github.com/spf13/cobra"
)

// NewCorsCmd creates the cors command with list and set subcommands.
// Running servers pick up changes on their next reload.
func NewCorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cors",
		Short: "Manage CORS configuration",
		Long:  "List or update the allowed origins and options stored in the database.",
	}
	cmd.AddCommand(newCorsListCmd(), newCorsSetCmd())
	return cmd
}

func newCorsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List current CORS configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			return withDB(ctx, cmd, func(db *database.DB) error {
				c, err := database.NewCorsConfigRepository(db).Get(ctx)
				if err != nil {
					return err
				}
				if c == nil {
					fmt.Fprintln(out, "No CORS configuration in database; the server uses FRONTEND_URL. Use 'cors set' to add one.")
					return nil
				}
				fmt.Fprintln(out, "CORS configuration:")
				fmt.Fprintf(out, "  Allowed origins: %s\n", strings.Join(database.AllowedOriginsSlice(c.AllowedOrigins), ", "))
				fmt.Fprintf(out, "  Allow credentials: %v\n", c.AllowCredentials)
				fmt.Fprintf(out, "  Max-Age: %d\n", c.MaxAge)
				return nil
			})
		},
	}
}

func newCorsSetCmd() *cobra.Command {
	var (
		origins    string
		allowCreds bool
		maxAge     int
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set CORS configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(database.AllowedOriginsSlice(origins)) == 0 {
				return errors.New("--origins is required (comma-separated list)")
			}
			if maxAge < 0 {
				return errors.New("--max-age cannot be negative")
			}
			ctx := cmd.Context()
			return withDB(ctx, cmd, func(db *database.DB) error {
				c := &models.CorsConfig{AllowedOrigins: origins, AllowCredentials: allowCreds, MaxAge: maxAge}
				if err := database.NewCorsConfigRepository(db).Set(ctx, c); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "CORS configuration updated.")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&origins, "origins", "", "Comma-separated allowed origins (required)")
	cmd.Flags().BoolVar(&allowCreds, "allow-credentials", true, "Allow credentials")
	cmd.Flags().IntVar(&maxAge, "max-age", 86400, "Access-Control-Max-Age in seconds")
	return cmd
}
