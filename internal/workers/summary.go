// Package workers holds the background job processors run by cmd/worker.
package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/day-timeline/internal/database"
	"github.com/benvon/day-timeline/internal/metrics"
	"github.com/benvon/day-timeline/internal/models"
	"github.com/benvon/day-timeline/internal/queue"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultRetryDelay is the base backoff before a failed job runs again
const DefaultRetryDelay = 30 * time.Second

// SummaryWorker turns day_summary jobs into stored DaySummary snapshots
type SummaryWorker struct {
	days       database.DayStateRepositoryInterface
	summaries  database.DaySummaryRepositoryInterface
	requeue    queue.Enqueuer
	retryDelay time.Duration
	logger     *zap.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// NewSummaryWorker creates a worker. requeue republishes failed jobs with a
// bumped retry count; when nil, failures are retried by the broker as-is.
func NewSummaryWorker(
	days database.DayStateRepositoryInterface,
	summaries database.DaySummaryRepositoryInterface,
	requeue queue.Enqueuer,
	logger *zap.Logger,
) *SummaryWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryWorker{
		days:       days,
		summaries:  summaries,
		requeue:    requeue,
		retryDelay: DefaultRetryDelay,
		logger:     logger,
		tracer:     otel.Tracer("github.com/benvon/day-timeline/internal/workers"),
		now:        time.Now,
	}
}

// Summarize computes the metrics of the stored day at the current time and
// upserts the snapshot. A day that was never stored has nothing to
// summarize and is skipped.
func (w *SummaryWorker) Summarize(ctx context.Context, job *queue.Job) (err error) {
	ctx, span := w.tracer.Start(ctx, "workers.Summarize", trace.WithAttributes(
		attribute.String("user_id", job.UserID.String()),
		attribute.String("date", job.Date),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	state, err := w.days.Get(ctx, job.UserID, job.Date)
	if errors.Is(err, database.ErrNotFound) {
		w.logger.Debug("summary_day_missing",
			zap.String("job_id", job.ID.String()),
			zap.String("date", job.Date),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load day: %w", err)
	}

	now := w.now().UTC()
	summary := &models.DaySummary{
		UserID:     job.UserID,
		Date:       job.Date,
		Metrics:    metrics.ComputeDayMetrics(*state, now),
		ComputedAt: now,
	}
	if err := w.summaries.Upsert(ctx, summary); err != nil {
		return fmt.Errorf("failed to store summary: %w", err)
	}

	w.logger.Info("summary_stored",
		zap.String("job_id", job.ID.String()),
		zap.String("user_id", job.UserID.String()),
		zap.String("date", job.Date),
		zap.Float64("planned_minutes", summary.Metrics.TotalPlannedMinutes),
		zap.Float64("actual_minutes", summary.Metrics.TotalActualMinutes),
	)
	return nil
}

// ProcessJob handles one delivery and always settles it: ack on success,
// retry while the job has budget left, dead-letter otherwise.
func (w *SummaryWorker) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()
	if err := job.Validate(); err != nil {
		if nackErr := msg.Nack(false); nackErr != nil {
			w.logger.Warn("job_nack_failed", zap.Error(nackErr))
		}
		return fmt.Errorf("rejected job %s: %w", job.ID, err)
	}

	if err := w.Summarize(ctx, job); err != nil {
		return w.handleJobError(ctx, msg, job, err)
	}
	if err := msg.Ack(); err != nil {
		return fmt.Errorf("failed to ack job: %w", err)
	}
	return nil
}

func (w *SummaryWorker) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, cause error) error {
	if !job.CanRetry() {
		w.logger.Warn("job_dead_lettered",
			zap.String("job_id", job.ID.String()),
			zap.Int("retry_count", job.RetryCount),
			zap.Error(cause),
		)
		if err := msg.Nack(false); err != nil {
			w.logger.Warn("job_nack_failed", zap.Error(err))
		}
		return fmt.Errorf("job %s exhausted retries: %w", job.ID, cause)
	}

	if w.requeue == nil {
		if err := msg.Nack(true); err != nil {
			w.logger.Warn("job_nack_failed", zap.Error(err))
		}
		return fmt.Errorf("job %s failed, requeued: %w", job.ID, cause)
	}

	retry := *job
	retry.IncrementRetry()
	notBefore := w.now().UTC().Add(w.retryDelay * time.Duration(retry.RetryCount))
	retry.NotBefore = &notBefore

	if err := w.requeue.Enqueue(ctx, &retry); err != nil {
		// keep the original delivery so the broker redelivers it
		w.logger.Warn("job_requeue_failed", zap.String("job_id", job.ID.String()), zap.Error(err))
		if nackErr := msg.Nack(true); nackErr != nil {
			w.logger.Warn("job_nack_failed", zap.Error(nackErr))
		}
		return fmt.Errorf("job %s failed: %w", job.ID, cause)
	}
	if err := msg.Ack(); err != nil {
		w.logger.Warn("job_ack_failed", zap.Error(err))
	}
	w.logger.Info("job_retry_scheduled",
		zap.String("job_id", job.ID.String()),
		zap.Int("retry_count", retry.RetryCount),
		zap.Time("not_before", notBefore),
	)
	return fmt.Errorf("job %s failed, retry scheduled: %w", job.ID, cause)
}

// Run consumes jobs until ctx is cancelled or the delivery channel closes.
// Processing errors are logged; only consumer setup failures are returned.
func (w *SummaryWorker) Run(ctx context.Context, jobs queue.JobQueue, prefetch int) error {
	msgChan, errChan, err := jobs.Consume(ctx, prefetch)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errChan:
			if ok && err != nil {
				w.logger.Error("queue_error", zap.Error(err))
			}
			if !ok {
				errChan = nil
			}
		case msg, ok := <-msgChan:
			if !ok {
				w.logger.Info("message_channel_closed")
				return nil
			}
			if err := w.ProcessJob(ctx, msg); err != nil {
				w.logger.Error("job_failed",
					zap.String("job_id", msg.GetJob().ID.String()),
					zap.String("job_type", string(msg.GetJob().Type)),
					zap.Error(err),
				)
			}
		}
	}
}
