package queue

import (
	"context"
	"time"
)

// MessageInterface is a delivered job awaiting acknowledgement
type MessageInterface interface {
	Ack() error
	Nack(requeue bool) error
	GetJob() *Job
}

// Enqueuer publishes jobs. The day-state service depends only on this.
type Enqueuer interface {
	Enqueue(ctx context.Context, job *Job) error
}

// JobQueue is the full queue used by the worker
type JobQueue interface {
	Enqueuer

	// Consume delivers messages asynchronously until ctx is cancelled. Each
	// message must be acked or nacked by the caller. prefetchCount bounds the
	// number of unacknowledged messages held by this consumer.
	Consume(ctx context.Context, prefetchCount int) (<-chan MessageInterface, <-chan error, error)

	Close() error

	HealthCheck(ctx context.Context) error
}

// DLQPurger drops dead-lettered messages older than a retention window and
// reports how many were removed.
type DLQPurger interface {
	PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error)
}
