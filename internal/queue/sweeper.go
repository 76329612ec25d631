package queue

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// DefaultSweepInterval is how often the dead-letter queue is swept
	DefaultSweepInterval = time.Hour
	// DefaultSweepTimeout bounds a single sweep
	DefaultSweepTimeout = 2 * time.Minute
)

// SweeperOptions configures a DLQSweeper. Zero values take the defaults;
// Retention defaults to SummaryJobTTL since a dead-lettered summary that old
// has been superseded by the day's later saves.
type SweeperOptions struct {
	Interval  time.Duration
	Retention time.Duration
	Timeout   time.Duration
}

func (o SweeperOptions) withDefaults() SweeperOptions {
	if o.Interval <= 0 {
		o.Interval = DefaultSweepInterval
	}
	if o.Retention <= 0 {
		o.Retention = SummaryJobTTL
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultSweepTimeout
	}
	return o
}

// DLQSweeper drops dead-lettered summary jobs once they are too old to be
// worth replaying. It sweeps as soon as it starts and then on every
// interval.
type DLQSweeper struct {
	purger DLQPurger
	opts   SweeperOptions
	logger *zap.Logger
	tracer trace.Tracer
	purged atomic.Int64
}

// NewDLQSweeper creates a sweeper. A nil purger makes every sweep a no-op.
func NewDLQSweeper(purger DLQPurger, opts SweeperOptions, logger *zap.Logger) *DLQSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DLQSweeper{
		purger: purger,
		opts:   opts.withDefaults(),
		logger: logger,
		tracer: otel.Tracer("github.com/benvon/day-timeline/internal/queue"),
	}
}

// Options returns the effective settings
func (s *DLQSweeper) Options() SweeperOptions {
	return s.opts
}

// Purged returns how many dead letters were dropped since creation
func (s *DLQSweeper) Purged() int64 {
	return s.purged.Load()
}

// Run sweeps until ctx is cancelled. Failed sweeps are logged and retried on
// the next tick.
func (s *DLQSweeper) Run(ctx context.Context) error {
	s.sweepAndLog(ctx)

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweepAndLog(ctx)
		}
	}
}

func (s *DLQSweeper) sweepAndLog(ctx context.Context) {
	started := time.Now()
	n, err := s.Sweep(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("dlq_sweep_failed", zap.Int("purged", n), zap.Error(err))
		}
		return
	}
	if n > 0 {
		s.logger.Info("dlq_swept",
			zap.Int("purged", n),
			zap.Duration("retention", s.opts.Retention),
			zap.Duration("took", time.Since(started)),
		)
	}
}

// Sweep runs one pass and returns how many dead letters were dropped
func (s *DLQSweeper) Sweep(ctx context.Context) (n int, err error) {
	if s.purger == nil {
		return 0, nil
	}
	ctx, span := s.tracer.Start(ctx, "queue.DLQSweep", trace.WithAttributes(
		attribute.String("dlq.retention", s.opts.Retention.String()),
	))
	defer func() {
		span.SetAttributes(attribute.Int("dlq.purged", n))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	n, err = s.purger.PurgeOlderThan(ctx, s.opts.Retention)
	s.purged.Add(int64(n))
	if err != nil {
		return n, fmt.Errorf("DLQ purge: %w", err)
	}
	return n, nil
}
