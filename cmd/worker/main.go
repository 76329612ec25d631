package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/day-timeline/internal/config"
	"github.com/benvon/day-timeline/internal/database"
	"github.com/benvon/day-timeline/internal/handlers"
	"github.com/benvon/day-timeline/internal/logger"
	"github.com/benvon/day-timeline/internal/queue"
	"github.com/benvon/day-timeline/internal/telemetry"
	"github.com/benvon/day-timeline/internal/workers"
	"go.uber.org/zap"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.New(debugMode, cfg.ConsoleLogs())
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	if !cfg.SummariesEnabled() {
		zapLogger.Fatal("rabbitmq_url_not_configured")
	}

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Options{
		Enabled:        cfg.OTELEnabled && cfg.OTELEndpoint != "",
		ServiceName:    "day-timeline-worker",
		ServiceVersion: handlers.Version,
		Endpoint:       cfg.OTELEndpoint,
		Insecure:       true,
	})
	if err != nil {
		zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownTracing(shutdownCtx)
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
	zapLogger.Info("connected_to_database")

	jobQueue, err := queue.Connect(ctx, cfg.RabbitMQURL, queue.DefaultBackoff, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_rabbitmq")

	sweeper := queue.NewDLQSweeper(jobQueue, queue.SweeperOptions{}, zapLogger)
	go func() { _ = sweeper.Run(ctx) }()
	zapLogger.Info("started_dlq_sweeper",
		zap.Duration("interval", sweeper.Options().Interval),
		zap.Duration("retention", sweeper.Options().Retention),
	)

	worker := workers.NewSummaryWorker(
		database.NewDayStateRepository(db),
		database.NewDaySummaryRepository(db),
		jobQueue,
		zapLogger,
	)

	zapLogger.Info("worker_started")
	if err := worker.Run(ctx, jobQueue, cfg.RabbitMQPrefetch); err != nil {
		zapLogger.Error("worker_stopped_with_error", zap.Error(err))
		return
	}
	zapLogger.Info("worker_stopped")
}
