package handlers

import (
	"errors"
	"net/http"

	"github.com/benvon/day-timeline/internal/database"
	logpkg "github.com/benvon/day-timeline/internal/logger"
	"github.com/benvon/day-timeline/internal/services/oidc"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	oidcProvider *oidc.Provider
	providerName string
	log          *zap.Logger
}

// NewAuthHandler creates a new auth handler for the named provider row
func NewAuthHandler(oidcProvider *oidc.Provider, providerName string, log *zap.Logger) *AuthHandler {
	return &AuthHandler{oidcProvider: oidcProvider, providerName: providerName, log: log}
}

// RegisterPublicRoutes registers the login routes; the router should
// already have the /api/v1/auth/oidc prefix.
func (h *AuthHandler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/login", h.GetOIDCLogin).Methods(http.MethodGet)
	r.HandleFunc("/token", h.ExchangeToken).Methods(http.MethodPost)
}

// RegisterRoutes registers authenticated auth routes under /api/v1/auth
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/me", h.GetMe).Methods(http.MethodGet)
}

// TokenRequest carries an authorization code back from the provider
type TokenRequest struct {
	Code         string `json:"code"`
	CodeVerifier string `json:"code_verifier"`
}

// GetOIDCLogin returns OIDC configuration for frontend
func (h *AuthHandler) GetOIDCLogin(w http.ResponseWriter, r *http.Request) {
	loginConfig, err := h.oidcProvider.GetLoginConfig(r.Context(), h.providerName)
	if err != nil {
		h.respondProviderError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, loginConfig)
}

// ExchangeToken trades an authorization code for provider tokens
func (h *AuthHandler) ExchangeToken(w http.ResponseWriter, r *http.Request) {
	var body TokenRequest
	if !decodeJSON(w, r, &body, false) {
		return
	}
	if body.Code == "" {
		respondJSONError(w, http.StatusBadRequest, CodeInvalidState, oidc.ErrMissingCode.Error())
		return
	}

	ctx := r.Context()
	cfg, err := h.oidcProvider.GetConfig(ctx, h.providerName)
	if err != nil {
		h.respondProviderError(w, err)
		return
	}

	client := oidc.NewClient(cfg, h.oidcProvider.ResolveEndpoints(ctx, cfg))
	tokens, err := client.ExchangeCode(ctx, body.Code, body.CodeVerifier)
	if err != nil {
		h.log.Warn("oidc_token_exchange_failed", zap.String("error", logpkg.SanitizeError(err)))
		respondJSONError(w, http.StatusUnauthorized, CodeUnauthorized, "Authorization code was rejected")
		return
	}
	respondJSON(w, http.StatusOK, tokens)
}

// GetMe returns current user information
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) respondProviderError(w http.ResponseWriter, err error) {
	if errors.Is(err, database.ErrNotFound) {
		respondJSONError(w, http.StatusServiceUnavailable, CodeUnavailable, "Login provider is not configured")
		return
	}
	h.log.Error("oidc_config_load_failed", zap.String("error", logpkg.SanitizeError(err)))
	respondJSONError(w, http.StatusInternalServerError, CodeInternal, "Failed to get OIDC configuration")
}
