package oidc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/benvon/day-timeline/internal/models"
	"golang.org/x/oauth2"
)

// ErrMissingCode is returned when no authorization code is supplied
var ErrMissingCode = errors.New("authorization code is required")

// Client exchanges authorization codes against one provider
type Client struct {
	config *oauth2.Config
}

// NewClient creates a new OAuth2 client from OIDC config and its resolved endpoints
func NewClient(oidcConfig *models.OIDCConfig, ep Endpoints) *Client {
	clientSecret := ""
	if oidcConfig.ClientSecret != nil {
		clientSecret = *oidcConfig.ClientSecret
	}

	return &Client{config: &oauth2.Config{
		ClientID:     oidcConfig.ClientID,
		ClientSecret: clientSecret,
		RedirectURL:  oidcConfig.RedirectURI,
		Scopes:       strings.Fields(DefaultScope),
		Endpoint: oauth2.Endpoint{
			AuthURL:  ep.AuthorizationEndpoint,
			TokenURL: ep.TokenEndpoint,
		},
	}}
}

// TokenResponse is what the frontend receives after a successful exchange
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
}

// ExchangeCode trades an authorization code for tokens. codeVerifier is the
// PKCE verifier and may be empty for confidential clients.
func (c *Client) ExchangeCode(ctx context.Context, code, codeVerifier string) (*TokenResponse, error) {
	if strings.TrimSpace(code) == "" {
		return nil, ErrMissingCode
	}
	var opts []oauth2.AuthCodeOption
	if codeVerifier != "" {
		opts = append(opts, oauth2.VerifierOption(codeVerifier))
	}

	token, err := c.config.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	resp := &TokenResponse{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.Type(),
		ExpiresIn:    token.ExpiresIn,
	}
	if idToken, ok := token.Extra("id_token").(string); ok {
		resp.IDToken = idToken
	}
	return resp, nil
}

// AuthCodeURL returns the authorization URL
func (c *Client) AuthCodeURL(state string) string {
	return c.config.AuthCodeURL(state)
}
