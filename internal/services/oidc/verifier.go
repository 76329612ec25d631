package oidc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/day-timeline/internal/models"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

var (
	// ErrNoJWKSURL is returned when the provider row has no key set configured
	ErrNoJWKSURL = errors.New("JWKS URL not configured")
	// ErrInvalidToken wraps every signature, expiry and claim failure
	ErrInvalidToken = errors.New("invalid token")
)

// Verifier verifies JWT tokens
type Verifier struct {
	jwksManager *JWKSManager
	issuer      string
}

// NewVerifier creates a new JWT verifier
func NewVerifier(jwksManager *JWKSManager, issuer string) *Verifier {
	return &Verifier{
		jwksManager: jwksManager,
		issuer:      issuer,
	}
}

// Verify checks the signature, expiry and issuer of tokenString and extracts claims
func (v *Verifier) Verify(ctx context.Context, tokenString string, jwksURL string) (*models.JWTClaims, error) {
	keys, err := v.jwksManager.GetJWKS(ctx, jwksURL)
	if err != nil {
		return nil, err
	}

	token, err := jwt.Parse([]byte(tokenString),
		jwt.WithKeySet(keys),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.issuer),
		jwt.WithAcceptableSkew(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if token.Subject() == "" {
		return nil, fmt.Errorf("%w: missing subject claim", ErrInvalidToken)
	}

	claims := &models.JWTClaims{
		Sub: token.Subject(),
		Iss: token.Issuer(),
		Exp: token.Expiration().Unix(),
		Iat: token.IssuedAt().Unix(),
	}
	if aud := token.Audience(); len(aud) > 0 {
		claims.Aud = aud[0]
	}
	if email, ok := token.PrivateClaims()["email"].(string); ok {
		claims.Email = email
	}
	if name, ok := token.PrivateClaims()["name"].(string); ok {
		claims.Name = name
	}
	return claims, nil
}

// Authenticator verifies bearer tokens against the configured provider row
type Authenticator struct {
	provider     *Provider
	jwks         *JWKSManager
	providerName string
}

// NewAuthenticator creates an Authenticator for providerName
func NewAuthenticator(provider *Provider, jwks *JWKSManager, providerName string) *Authenticator {
	return &Authenticator{provider: provider, jwks: jwks, providerName: providerName}
}

// Authenticate verifies rawToken and returns its claims
func (a *Authenticator) Authenticate(ctx context.Context, rawToken string) (*models.JWTClaims, error) {
	config, err := a.provider.GetConfig(ctx, a.providerName)
	if err != nil {
		return nil, err
	}
	if config.JWKSUrl == nil || *config.JWKSUrl == "" {
		return nil, ErrNoJWKSURL
	}
	return NewVerifier(a.jwks, config.Issuer).Verify(ctx, rawToken, *config.JWKSUrl)
}
