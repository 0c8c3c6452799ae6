package enrich

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter caps enrichment API calls per minute across all workers with
// a fixed window counter in Redis. The window key carries the minute so
// stale counters expire on their own.
type RateLimiter struct {
	client *redis.Client
	limit  int
	prefix string
	now    func() time.Time
}

// NewRateLimiter builds a limiter allowing perMinute calls.
func NewRateLimiter(client *redis.Client, perMinute int) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  perMinute,
		prefix: "enrich:ratelimit",
		now:    time.Now,
	}
}

// Allow reports whether one more call fits into the current window.
func (r *RateLimiter) Allow(ctx context.Context) (bool, error) {
	window := r.now().Unix() / 60
	key := fmt.Sprintf("%s:%d", r.prefix, window)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}
	if count == 1 {
		// First hit owns the expiry. 2 minutes covers clock skew between
		// workers.
		r.client.Expire(ctx, key, 2*time.Minute)
	}
	return count <= int64(r.limit), nil
}

// Acquire blocks until a slot is available or the context ends.
func (r *RateLimiter) Acquire(ctx context.Context) error {
	for {
		ok, err := r.Allow(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}
