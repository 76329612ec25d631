package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/day-timeline/internal/database"
	"github.com/benvon/day-timeline/internal/models"
)

// DefaultScope is requested on every login
const DefaultScope = "openid email profile"

// Provider resolves identity provider rows and their OAuth2 endpoints
type Provider struct {
	repo       database.OIDCConfigRepositoryInterface
	httpClient *http.Client
}

// NewProvider creates a new OIDC provider manager
func NewProvider(repo database.OIDCConfigRepositoryInterface) *Provider {
	return &Provider{
		repo:       repo,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// GetConfig retrieves OIDC configuration for a provider
func (p *Provider) GetConfig(ctx context.Context, providerName string) (*models.OIDCConfig, error) {
	config, err := p.repo.GetByProvider(ctx, providerName)
	if err != nil {
		return nil, fmt.Errorf("failed to get OIDC config: %w", err)
	}
	return config, nil
}

// Endpoints are the OAuth2 URLs of one provider
type Endpoints struct {
	AuthorizationEndpoint string
	TokenEndpoint         string
}

// ResolveEndpoints works out the authorize and token URLs. A Cognito hosted
// UI domain wins; otherwise the discovery document is consulted and the
// issuer-relative defaults are used for anything it does not provide.
func (p *Provider) ResolveEndpoints(ctx context.Context, config *models.OIDCConfig) Endpoints {
	if ep, ok := domainEndpoints(config); ok {
		return ep
	}

	issuer := strings.TrimSuffix(config.Issuer, "/")
	ep := Endpoints{
		AuthorizationEndpoint: issuer + "/oauth2/authorize",
		TokenEndpoint:         issuer + "/oauth2/token",
	}

	discovered, err := p.discover(ctx, issuer)
	if err != nil {
		return ep
	}
	if discovered.AuthorizationEndpoint != "" {
		ep.AuthorizationEndpoint = discovered.AuthorizationEndpoint
	}
	if discovered.TokenEndpoint != "" {
		ep.TokenEndpoint = discovered.TokenEndpoint
	}
	return ep
}

func domainEndpoints(config *models.OIDCConfig) (Endpoints, bool) {
	if config.Domain == nil || *config.Domain == "" || !strings.Contains(config.Issuer, "cognito-idp.") {
		return Endpoints{}, false
	}
	base := strings.TrimSuffix(*config.Domain, "/")
	if !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return Endpoints{
		AuthorizationEndpoint: base + "/oauth2/authorize",
		TokenEndpoint:         base + "/oauth2/token",
	}, true
}

type discoveryDocument struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	JWKSURI               string `json:"jwks_uri"`
}

func (p *Provider) discover(ctx context.Context, issuer string) (*discoveryDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, issuer+"/.well-known/openid-configuration", nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discovery returned status %d", resp.StatusCode)
	}
	var doc discoveryDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode discovery document: %w", err)
	}
	return &doc, nil
}

// GetLoginConfig returns the configuration needed for frontend OIDC login
func (p *Provider) GetLoginConfig(ctx context.Context, providerName string) (*LoginConfig, error) {
	config, err := p.GetConfig(ctx, providerName)
	if err != nil {
		return nil, err
	}
	ep := p.ResolveEndpoints(ctx, config)
	return &LoginConfig{
		AuthorizationEndpoint: ep.AuthorizationEndpoint,
		TokenEndpoint:         ep.TokenEndpoint,
		ClientID:              config.ClientID,
		RedirectURI:           config.RedirectURI,
		Scope:                 DefaultScope,
	}, nil
}

// LoginConfig contains OIDC login configuration for frontend
type LoginConfig struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	ClientID              string `json:"client_id"`
	RedirectURI           string `json:"redirect_uri"`
	Scope                 string `json:"scope"`
}
