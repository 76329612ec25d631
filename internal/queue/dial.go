package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Backoff bounds Connect's retries
type Backoff struct {
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultBackoff rides out a broker that starts after the service
var DefaultBackoff = Backoff{Attempts: 10, InitialDelay: 2 * time.Second, MaxDelay: 30 * time.Second}

// Connect dials RabbitMQ, retrying with exponential backoff
func Connect(ctx context.Context, amqpURL string, b Backoff, logger *zap.Logger) (*RabbitMQQueue, error) {
	var q *RabbitMQQueue
	err := retry(ctx, b, logger, func() error {
		var err error
		q, err = NewRabbitMQQueue(amqpURL, logger)
		return err
	})
	return q, err
}

func retry(ctx context.Context, b Backoff, logger *zap.Logger, fn func() error) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	attempts := max(b.Attempts, 1)
	delay := b.InitialDelay

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		logger.Warn("rabbitmq_connect_retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Duration("retry_delay", delay),
			zap.Error(lastErr),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if b.MaxDelay > 0 && delay > b.MaxDelay {
			delay = b.MaxDelay
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", attempts, lastErr)
}
