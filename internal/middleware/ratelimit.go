package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/benvon/day-timeline/internal/database"
	"github.com/benvon/day-timeline/internal/models"
	"github.com/benvon/day-timeline/internal/request"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
)

// DefaultRatelimitRate is used until a ratelimit_config row exists
const DefaultRatelimitRate = "10-S"

const ratelimitPrefix = "daytimeline_ratelimit"

// RatelimitConfigStore is the read side plus the optional seeding write
type RatelimitConfigStore interface {
	database.RatelimitConfigGetter
	Set(ctx context.Context, c *models.RatelimitConfig) error
}

// RateLimitReloader wraps ulule/limiter and periodically reloads the rate from the database.
// Counters live in Redis so every API replica shares them.
type RateLimitReloader struct {
	hotHandler
	store       limiter.Store
	repo        RatelimitConfigStore
	defaultRate string
	log         *zap.Logger
	interval    time.Duration
}

// NewRateLimitReloader creates a rate limit middleware backed by Redis and the ratelimit_config row.
func NewRateLimitReloader(redisClient *redis.Client, repo RatelimitConfigStore, defaultRate string, log *zap.Logger, reloadInterval time.Duration) (*RateLimitReloader, error) {
	if defaultRate == "" {
		defaultRate = DefaultRatelimitRate
	}
	if _, err := limiter.NewRateFromFormatted(defaultRate); err != nil {
		return nil, err
	}
	store, err := redisstore.NewStoreWithOptions(redisClient, limiter.StoreOptions{Prefix: ratelimitPrefix})
	if err != nil {
		return nil, err
	}
	return &RateLimitReloader{
		store:       store,
		repo:        repo,
		defaultRate: defaultRate,
		log:         log,
		interval:    reloadInterval,
	}, nil
}

// Middleware returns a middleware that wraps next with rate limiting and hot-reload.
func (r *RateLimitReloader) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		r.next = next
		r.load(context.Background())
		return r
	}
}

// Start runs the reload loop until ctx is cancelled. Call after Middleware() is applied.
func (r *RateLimitReloader) Start(ctx context.Context) {
	runEvery(ctx, r.interval, r.load)
}

// currentRate returns the configured rate, seeding the default row when the
// table is empty. Unparsable stored values fall back to the default.
func (r *RateLimitReloader) currentRate(ctx context.Context) limiter.Rate {
	fallback, _ := limiter.NewRateFromFormatted(r.defaultRate)

	cfg, err := r.repo.Get(ctx)
	if err != nil {
		r.log.Warn("ratelimit_config_load_failed_using_default",
			zap.Error(err),
			zap.String("default_rate", r.defaultRate),
		)
		return fallback
	}
	if cfg == nil || cfg.Rate == "" {
		if err := r.repo.Set(ctx, &models.RatelimitConfig{Rate: r.defaultRate}); err != nil {
			r.log.Error("ratelimit_default_save_failed", zap.Error(err))
		}
		return fallback
	}

	rate, err := limiter.NewRateFromFormatted(cfg.Rate)
	if err != nil {
		r.log.Error("ratelimit_config_invalid_using_default",
			zap.Error(err),
			zap.String("rate", cfg.Rate),
		)
		return fallback
	}
	return rate
}

func (r *RateLimitReloader) load(ctx context.Context) {
	if r.next == nil {
		return
	}
	mw := stdlibmw.NewMiddleware(
		limiter.New(r.store, r.currentRate(ctx)),
		stdlibmw.WithKeyGetter(request.ClientIP),
		stdlibmw.WithLimitReachedHandler(func(w http.ResponseWriter, req *http.Request) {
			writeError(w, req, http.StatusTooManyRequests, CodeRateLimited, "Too many requests")
		}),
		stdlibmw.WithErrorHandler(func(w http.ResponseWriter, req *http.Request, err error) {
			// fail open when Redis is unavailable
			r.log.Warn("ratelimit_store_failed", zap.Error(err))
			r.next.ServeHTTP(w, req)
		}),
	)
	r.swap(mw.Handler(r.next))
}
