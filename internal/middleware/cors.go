package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/day-timeline/internal/database"
	"github.com/benvon/day-timeline/internal/request"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const (
	defaultCORSMaxAge = 86400
	localFrontendURL  = "http://localhost:3000"
)

// CORSReloader wraps rs/cors and periodically reloads CORS config from the database.
type CORSReloader struct {
	hotHandler
	repo     database.CorsConfigGetter
	fallback string
	log      *zap.Logger
	interval time.Duration
}

// NewCORSReloader creates a CORS middleware backed by the cors_config row.
// frontendURLFallback (comma separated) is used when the row is missing.
func NewCORSReloader(repo database.CorsConfigGetter, frontendURLFallback string, log *zap.Logger, reloadInterval time.Duration) *CORSReloader {
	return &CORSReloader{
		repo:     repo,
		fallback: strings.TrimSpace(frontendURLFallback),
		log:      log,
		interval: reloadInterval,
	}
}

// Middleware returns a middleware that wraps next with CORS and hot-reload.
func (r *CORSReloader) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		r.next = next
		r.load(context.Background())
		return r
	}
}

// Start runs the reload loop until ctx is cancelled. Call after Middleware() is applied.
func (r *CORSReloader) Start(ctx context.Context) {
	runEvery(ctx, r.interval, r.load)
}

func (r *CORSReloader) options(ctx context.Context) cors.Options {
	opts := cors.Options{
		AllowedOrigins:   database.AllowedOriginsSlice(r.fallback),
		AllowCredentials: true,
		MaxAge:           defaultCORSMaxAge,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", request.RequestIDHeader, devUserHeader},
		ExposedHeaders:   []string{request.RequestIDHeader},
	}

	cfg, err := r.repo.Get(ctx)
	switch {
	case err == nil && cfg != nil:
		opts.AllowedOrigins = database.AllowedOriginsSlice(cfg.AllowedOrigins)
		opts.AllowCredentials = cfg.AllowCredentials
		opts.MaxAge = cfg.MaxAge
	case err != nil:
		r.log.Warn("cors_config_load_failed_using_fallback",
			zap.Error(err),
			zap.Strings("origins", opts.AllowedOrigins),
		)
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{localFrontendURL}
	}
	return opts
}

func (r *CORSReloader) load(ctx context.Context) {
	if r.next == nil {
		return
	}
	r.swap(cors.New(r.options(ctx)).Handler(r.next))
}
