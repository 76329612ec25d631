// Package cache keeps recently used day documents in Redis so repeated
// reads and mutations of today's timeline skip Postgres.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/day-timeline/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key is absent or expired
var ErrMiss = errors.New("cache miss")

const keyPrefix = "daystate"

// DayStateCache stores JSON-encoded DayState values with a fixed TTL
type DayStateCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewDayStateCache creates a cache over client. A non-positive ttl stores
// entries without expiry.
func NewDayStateCache(client redis.UniversalClient, ttl time.Duration) *DayStateCache {
	if ttl < 0 {
		ttl = 0
	}
	return &DayStateCache{client: client, ttl: ttl}
}

// Key returns the Redis key for a user's day
func Key(userID uuid.UUID, date string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, userID, date)
}

// Get returns the cached day or ErrMiss
func (c *DayStateCache) Get(ctx context.Context, userID uuid.UUID, date string) (*models.DayState, error) {
	raw, err := c.client.Get(ctx, Key(userID, date)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached day state: %w", err)
	}

	var state models.DayState
	if err := json.Unmarshal(raw, &state); err != nil {
		// unreadable entries are dropped so the next read repopulates them
		_ = c.client.Del(ctx, Key(userID, date)).Err()
		return nil, fmt.Errorf("failed to decode cached day state: %w", err)
	}
	return &state, nil
}

// Set writes state under its own user and date
func (c *DayStateCache) Set(ctx context.Context, state *models.DayState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode day state: %w", err)
	}
	if err := c.client.Set(ctx, Key(state.UserID, state.Date), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache day state: %w", err)
	}
	return nil
}

// Invalidate removes a cached day
func (c *DayStateCache) Invalidate(ctx context.Context, userID uuid.UUID, date string) error {
	if err := c.client.Del(ctx, Key(userID, date)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate day state: %w", err)
	}
	return nil
}

// HealthCheck pings Redis
func (c *DayStateCache) HealthCheck(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
