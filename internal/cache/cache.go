// Package cache holds the unread-counter cache. The original portal
// refreshed counters by blind polling; here every mutation that can change
// a counter invalidates the affected user's key, and reads repopulate.
// The cache is optional: a nil *Counts falls through to the caller's
// direct computation.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/opsdesk/opsdesk/internal/config"
)

// Surface names a counter namespace.
type Surface string

const (
	SurfaceMessages      Surface = "messages"
	SurfaceNotifications Surface = "notifications"
)

// countTTL bounds staleness if an invalidation is ever missed.
const countTTL = 5 * time.Minute

// Counts caches per-user unread counters in Redis.
type Counts struct {
	rdb *redis.Client
}

// New connects to Redis. An empty addr returns (nil, nil): caching disabled.
func New(cfg config.RedisConfig) (*Counts, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return &Counts{rdb: rdb}, nil
}

func key(surface Surface, userID string) string {
	return fmt.Sprintf("opsdesk:unread:%s:%s", surface, userID)
}

// Get returns the cached count and whether it was present.
func (c *Counts) Get(ctx context.Context, surface Surface, userID string) (int, bool) {
	if c == nil {
		return 0, false
	}
	val, err := c.rdb.Get(ctx, key(surface, userID)).Result()
	if err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Set stores a freshly computed count.
func (c *Counts) Set(ctx context.Context, surface Surface, userID string, count int) {
	if c == nil {
		return
	}
	// Best effort; a failed write only costs a recompute.
	_ = c.rdb.Set(ctx, key(surface, userID), count, countTTL).Err()
}

// Invalidate drops the cached count for one user on one surface. Callers
// invoke this on every mutation that can change the counter: message send,
// chat mark-read, notification insert and mark-read.
func (c *Counts) Invalidate(ctx context.Context, surface Surface, userID string) {
	if c == nil {
		return
	}
	_ = c.rdb.Del(ctx, key(surface, userID)).Err()
}

// Close releases the Redis connection.
func (c *Counts) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
