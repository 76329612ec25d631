package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/benvon/day-timeline/internal/database"
	logpkg "github.com/benvon/day-timeline/internal/logger"
	"github.com/benvon/day-timeline/internal/models"
	"github.com/benvon/day-timeline/internal/request"
	"github.com/benvon/day-timeline/internal/services/oidc"
	"go.uber.org/zap"
)

const devUserHeader = "X-Dev-User-Id"

// TokenAuthenticator verifies a bearer token and returns its claims
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, rawToken string) (*models.JWTClaims, error)
}

// UserResolver maps a verified identity to a local user
type UserResolver interface {
	GetOrCreateByProvider(ctx context.Context, providerID, email, name string) (*models.User, error)
}

var _ TokenAuthenticator = (*oidc.Authenticator)(nil)
var _ UserResolver = database.UserRepositoryInterface(nil)

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Auth verifies the bearer token and attaches the matching user, created on
// first sight, to the request context.
func Auth(authenticator TokenAuthenticator, users UserResolver, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, r, http.StatusUnauthorized, CodeUnauthorized, "Missing or malformed Authorization header")
				return
			}

			ctx := r.Context()
			claims, err := authenticator.Authenticate(ctx, token)
			if err != nil {
				if errors.Is(err, oidc.ErrInvalidToken) {
					log.Debug("token_rejected", zap.String("error", logpkg.SanitizeError(err)))
					writeError(w, r, http.StatusUnauthorized, CodeUnauthorized, "Invalid or expired token")
					return
				}
				log.Error("token_verification_failed", zap.String("error", logpkg.SanitizeError(err)))
				writeError(w, r, http.StatusInternalServerError, CodeInternal, "Authentication is unavailable")
				return
			}

			user, err := users.GetOrCreateByProvider(ctx, claims.Sub, claims.Email, claims.Name)
			if err != nil {
				log.Error("user_resolve_failed",
					zap.String("subject", logpkg.SanitizeUserID(claims.Sub)),
					zap.String("error", logpkg.SanitizeError(err)),
				)
				writeError(w, r, http.StatusInternalServerError, CodeInternal, "Failed to resolve user")
				return
			}

			next.ServeHTTP(w, r.WithContext(request.WithUser(ctx, user)))
		})
	}
}

// DevAuth trusts the X-Dev-User-Id header as the provider subject. It is
// only mounted when DEV_AUTH is enabled and falls through to the wrapped
// Auth chain when the header is absent.
func DevAuth(users UserResolver, log *zap.Logger, fallback func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		authed := next
		if fallback != nil {
			authed = fallback(next)
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := strings.TrimSpace(r.Header.Get(devUserHeader))
			if subject == "" {
				if fallback == nil {
					writeError(w, r, http.StatusUnauthorized, CodeUnauthorized, "Missing "+devUserHeader+" header")
					return
				}
				authed.ServeHTTP(w, r)
				return
			}

			subject = logpkg.SanitizeUserID(subject)
			user, err := users.GetOrCreateByProvider(r.Context(), "dev|"+subject, subject+"@dev.local", subject)
			if err != nil {
				log.Error("dev_user_resolve_failed", zap.String("error", logpkg.SanitizeError(err)))
				writeError(w, r, http.StatusInternalServerError, CodeInternal, "Failed to resolve user")
				return
			}
			next.ServeHTTP(w, r.WithContext(request.WithUser(r.Context(), user)))
		})
	}
}
