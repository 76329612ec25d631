package commands

import (
	"fmt"
	"io"

	"github.com/benvon/day-timeline/internal/database"
	"github.com/benvon/day-timeline/internal/models"
	"github.com/spf13/cobra"
)

// NewListCmd creates the list command
func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured OIDC providers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withDB(ctx, cmd, func(db *database.DB) error {
				configs, err := database.NewOIDCConfigRepository(db).GetAll(ctx)
				if err != nil {
					return fmt.Errorf("failed to list OIDC configs: %w", err)
				}
				printProviders(cmd.OutOrStdout(), configs)
				return nil
			})
		},
	}
}

func printProviders(w io.Writer, configs []*models.OIDCConfig) {
	if len(configs) == 0 {
		fmt.Fprintln(w, "No OIDC providers configured")
		return
	}
	fmt.Fprintln(w, "Configured OIDC providers:")
	for _, c := range configs {
		fmt.Fprintf(w, "  - Provider: %s\n", c.Provider)
		fmt.Fprintf(w, "    Issuer: %s\n", c.Issuer)
		fmt.Fprintf(w, "    Client ID: %s\n", c.ClientID)
		fmt.Fprintf(w, "    Redirect URI: %s\n", c.RedirectURI)
		if c.Domain != nil {
			fmt.Fprintf(w, "    Domain: %s\n", *c.Domain)
		}
		if c.JWKSUrl != nil {
			fmt.Fprintf(w, "    JWKS URL: %s\n", *c.JWKSUrl)
		}
		fmt.Fprintln(w)
	}
}
