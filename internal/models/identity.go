package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an account resolved from an identity provider subject. Every
// day document, template set and category set is scoped to one user.
type User struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	ProviderID  *string    `json:"provider_id,omitempty"`
	Name        *string    `json:"name,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// JWTClaims are the claims read from a verified access or id token
type JWTClaims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Exp   int64  `json:"exp"`
	Iat   int64  `json:"iat"`
	Iss   string `json:"iss"`
	Aud   string `json:"aud"`
}

// OIDCConfig is one identity provider row used for login and token checks
type OIDCConfig struct {
	ID           uuid.UUID `json:"id"`
	Provider     string    `json:"provider"`
	Issuer       string    `json:"issuer"`
	Domain       *string   `json:"domain,omitempty"` // hosted UI domain, e.g. a Cognito custom domain
	ClientID     string    `json:"client_id"`
	ClientSecret *string   `json:"client_secret,omitempty"`
	RedirectURI  string    `json:"redirect_uri"`
	JWKSUrl      *string   `json:"jwks_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
