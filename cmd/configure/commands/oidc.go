package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/benvon/day-timeline/internal/database"
	"github.com/benvon/day-timeline/internal/models"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type oidcFlags struct {
	issuer, domain, clientID, clientSecret, redirectURI, jwksURL string
}

func (f oidcFlags) validate() error {
	if f.issuer == "" || f.clientID == "" || f.redirectURI == "" {
		return errors.New("required flags: --issuer, --client-id, --redirect-uri (--client-secret is optional for public clients)")
	}
	return nil
}

// apply copies the flags onto c. Without --jwks-url the key set is
// expected at the issuer's /.well-known/jwks.json.
func (f oidcFlags) apply(c *models.OIDCConfig) {
	c.Issuer = strings.TrimRight(f.issuer, "/")
	c.ClientID = f.clientID
	c.RedirectURI = f.redirectURI
	c.Domain = optional(f.domain)
	c.ClientSecret = optional(f.clientSecret)
	jwks := f.jwksURL
	if jwks == "" {
		jwks = c.Issuer + "/.well-known/jwks.json"
	}
	c.JWKSUrl = &jwks
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// NewOIDCCmd creates the OIDC configuration command
func NewOIDCCmd() *cobra.Command {
	var (
		flags  oidcFlags
		remove bool
	)

	cmd := &cobra.Command{
		Use:   "oidc <provider-name>",
		Short: "Create or update an OIDC provider",
		Long:  "Configure an OIDC provider for authentication. The name is any identifier (e.g. 'cognito', 'okta') and must match OIDC_PROVIDER on the server.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := strings.TrimSpace(args[0])
			if provider == "" {
				return errors.New("provider name cannot be empty")
			}
			if remove {
				return deleteProvider(cmd, provider)
			}
			if err := flags.validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			return withDB(ctx, cmd, func(db *database.DB) error {
				repo := database.NewOIDCConfigRepository(db)
				existing, err := repo.GetByProvider(ctx, provider)
				switch {
				case err == nil:
					flags.apply(existing)
					if err := repo.Update(ctx, existing); err != nil {
						return fmt.Errorf("failed to update OIDC config: %w", err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Updated OIDC configuration for provider: %s\n", provider)
				case errors.Is(err, database.ErrNotFound):
					c := &models.OIDCConfig{ID: uuid.New(), Provider: provider}
					flags.apply(c)
					if err := repo.Create(ctx, c); err != nil {
						return fmt.Errorf("failed to create OIDC config: %w", err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Created OIDC configuration for provider: %s\n", provider)
				default:
					return fmt.Errorf("failed to load OIDC config: %w", err)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&flags.issuer, "issuer", "", "OIDC issuer URL (required)")
	cmd.Flags().StringVar(&flags.domain, "domain", "", "Hosted login domain, e.g. a Cognito custom domain (optional)")
	cmd.Flags().StringVar(&flags.clientID, "client-id", "", "OAuth2 client ID (required)")
	cmd.Flags().StringVar(&flags.clientSecret, "client-secret", "", "OAuth2 client secret (optional for public clients)")
	cmd.Flags().StringVar(&flags.redirectURI, "redirect-uri", "", "OAuth2 redirect URI (required)")
	cmd.Flags().StringVar(&flags.jwksURL, "jwks-url", "", "JWKS URL (defaults to <issuer>/.well-known/jwks.json)")
	cmd.Flags().BoolVar(&remove, "delete", false, "Delete the provider instead of creating or updating it")

	return cmd
}

func deleteProvider(cmd *cobra.Command, provider string) error {
	ctx := cmd.Context()
	return withDB(ctx, cmd, func(db *database.DB) error {
		err := database.NewOIDCConfigRepository(db).Delete(ctx, provider)
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("no OIDC configuration for provider: %s", provider)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted OIDC configuration for provider: %s\n", provider)
		return nil
	})
}
