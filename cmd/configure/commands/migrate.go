package commands

import (
	"fmt"

	"github.com/benvon/day-timeline/internal/database"
	"github.com/spf13/cobra"
)

// NewMigrateCmd applies the database schema
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Long:  "Create or update all tables. Safe to run repeatedly.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withDB(ctx, cmd, func(db *database.DB) error {
				if err := db.Migrate(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d schema statements.\n", len(database.SchemaStatements()))
				return nil
			})
		},
	}
}
