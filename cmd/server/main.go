package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/day-timeline/api/openapi"
	"github.com/benvon/day-timeline/internal/cache"
	"github.com/benvon/day-timeline/internal/config"
	"github.com/benvon/day-timeline/internal/database"
	"github.com/benvon/day-timeline/internal/daystate"
	"github.com/benvon/day-timeline/internal/handlers"
	"github.com/benvon/day-timeline/internal/logger"
	"github.com/benvon/day-timeline/internal/middleware"
	"github.com/benvon/day-timeline/internal/queue"
	"github.com/benvon/day-timeline/internal/services/oidc"
	"github.com/benvon/day-timeline/internal/telemetry"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	serviceName    = "day-timeline-api"
	reloadInterval = time.Minute
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.New(debugMode, cfg.ConsoleLogs())
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.Bool("dev_auth", cfg.DevAuth),
		zap.Bool("summaries_enabled", cfg.SummariesEnabled()),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracingOn := cfg.OTELEnabled && cfg.OTELEndpoint != ""
	if cfg.OTELEnabled && !tracingOn {
		zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
	}
	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Options{
		Enabled:        tracingOn,
		ServiceName:    serviceName,
		ServiceVersion: handlers.Version,
		Endpoint:       cfg.OTELEndpoint,
		Insecure:       true,
	})
	if err != nil {
		zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		tracingOn = false
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(shutdownCtx); err != nil {
				zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
			}
		}()
	}

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	if err := db.Migrate(ctx); err != nil {
		zapLogger.Fatal("failed_to_migrate_database", zap.Error(err))
	}
	zapLogger.Info("connected_to_database")

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("invalid_redis_url", zap.Error(err))
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	dayCache := cache.NewDayStateCache(redisClient, cfg.DayCacheTTL)
	if err := dayCache.HealthCheck(ctx); err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	zapLogger.Info("connected_to_redis")

	opts := daystate.Options{Cache: dayCache, SummaryDebounce: cfg.SummaryDebounce}
	var queueCheck func(context.Context) error
	if cfg.SummariesEnabled() {
		jobQueue, err := queue.Connect(ctx, cfg.RabbitMQURL, queue.DefaultBackoff, zapLogger)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
		}
		defer func() {
			if err := jobQueue.Close(); err != nil {
				zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
			}
		}()
		opts.SummaryQueue = jobQueue
		queueCheck = jobQueue.HealthCheck
		zapLogger.Info("connected_to_rabbitmq")
	}

	days := daystate.NewService(
		database.NewDayStateRepository(db),
		database.NewTemplateRepository(db),
		database.NewCategoryRepository(db),
		database.NewDaySummaryRepository(db),
		opts,
		zapLogger,
	)

	corsReloader := middleware.NewCORSReloader(database.NewCorsConfigRepository(db), cfg.FrontendURL, zapLogger, reloadInterval)
	rateLimitReloader, err := middleware.NewRateLimitReloader(redisClient, database.NewRatelimitConfigRepository(db), middleware.DefaultRatelimitRate, zapLogger, reloadInterval)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limit_reloader", zap.Error(err))
	}
	go corsReloader.Start(ctx)
	go rateLimitReloader.Start(ctx)

	oidcProvider := oidc.NewProvider(database.NewOIDCConfigRepository(db))
	users := database.NewUserRepository(db)
	authMW := middleware.Auth(oidc.NewAuthenticator(oidcProvider, oidc.NewJWKSManager(), cfg.OIDCProvider), users, zapLogger)
	if cfg.DevAuth {
		zapLogger.Warn("dev_auth_enabled")
		authMW = middleware.DevAuth(users, zapLogger, authMW)
	}

	openAPIHandler, err := handlers.NewOpenAPIHandler(openapi.Spec)
	if err != nil {
		zapLogger.Fatal("invalid_openapi_document", zap.Error(err))
	}

	r := mux.NewRouter()

	// registration order is wrapping order: the first middleware is outermost
	if tracingOn {
		r.Use(telemetry.Middleware(serviceName, "/healthz"))
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(corsReloader.Middleware())
	r.Use(middleware.Audit(zapLogger))
	r.Use(middleware.Logging(zapLogger))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(middleware.DefaultRequestTimeout))

	healthChecker := handlers.NewHealthChecker(
		handlers.Check{Name: "database", Fn: db.HealthCheck},
		handlers.Check{Name: "redis", Fn: dayCache.HealthCheck},
		handlers.Check{Name: "queue", Fn: queueCheck},
	)
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/version", handlers.VersionInfo).Methods(http.MethodGet)
	openAPIHandler.RegisterRoutes(r)

	api := r.PathPrefix("/api/v1").Subrouter()
	rateLimitMW := rateLimitReloader.Middleware()

	authHandler := handlers.NewAuthHandler(oidcProvider, cfg.OIDCProvider, zapLogger)
	loginRouter := api.PathPrefix("/auth/oidc").Subrouter()
	loginRouter.Use(rateLimitMW)
	authHandler.RegisterPublicRoutes(loginRouter)

	protected := api.PathPrefix("").Subrouter()
	protected.Use(authMW)
	protected.Use(rateLimitMW)
	authHandler.RegisterRoutes(protected.PathPrefix("/auth").Subrouter())
	handlers.NewDayHandler(days, zapLogger).RegisterRoutes(protected.PathPrefix("/days").Subrouter())
	handlers.NewPreferencesHandler(days, zapLogger).RegisterRoutes(protected)

	// preflight requests carry no credentials; CORS has already answered them
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      middleware.DefaultRequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serveErr := make(chan error, 1)
	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		zapLogger.Info("server_shutting_down")
	case err := <-serveErr:
		zapLogger.Error("server_failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
		os.Exit(1)
	}
	zapLogger.Info("server_exited")
}
