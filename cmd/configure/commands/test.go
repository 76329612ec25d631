package commands

import (
	"errors"
	"fmt"

	"github.com/benvon/day-timeline/internal/database"
	"github.com/benvon/day-timeline/internal/services/oidc"
	"github.com/spf13/cobra"
)

// NewTestCmd creates the test command
func NewTestCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test OIDC configuration",
		Long:  "Resolve the provider's login endpoints and fetch its signing keys the same way the server does.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if provider == "" {
				return errors.New("--provider is required")
			}

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			return withDB(ctx, cmd, func(db *database.DB) error {
				p := oidc.NewProvider(database.NewOIDCConfigRepository(db))
				c, err := p.GetConfig(ctx, provider)
				if err != nil {
					return fmt.Errorf("failed to get OIDC config: %w", err)
				}

				fmt.Fprintf(out, "Testing OIDC configuration for provider: %s\n", provider)
				fmt.Fprintf(out, "Issuer: %s\n", c.Issuer)

				ep := p.ResolveEndpoints(ctx, c)
				fmt.Fprintf(out, "Authorization endpoint: %s\n", ep.AuthorizationEndpoint)
				fmt.Fprintf(out, "Token endpoint: %s\n", ep.TokenEndpoint)

				if c.JWKSUrl == nil {
					return errors.New("no JWKS URL configured; tokens cannot be verified")
				}
				set, err := oidc.NewJWKSManager().GetJWKS(ctx, *c.JWKSUrl)
				if err != nil {
					return fmt.Errorf("JWKS check failed: %w", err)
				}
				if set.Len() == 0 {
					return fmt.Errorf("JWKS at %s has no keys", *c.JWKSUrl)
				}
				fmt.Fprintf(out, "JWKS: %d signing key(s) at %s\n", set.Len(), *c.JWKSUrl)
				fmt.Fprintln(out, "OIDC configuration test passed")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Provider name to test (required)")
	return cmd
}
