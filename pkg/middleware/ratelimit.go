package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/pulseboard/pulse/pkg/api"
)

// EventRateLimiter implements a per-tenant event budget using a Redis-backed
// fixed window, shared across all gateway instances. The budget counts
// events, not requests: a batch of N consumes N tokens.
type EventRateLimiter struct {
	redis           *redis.Client
	eventsPerWindow int
	window          time.Duration
	prefix          string
}

// NewEventRateLimiter creates a limiter with the given per-minute event budget.
func NewEventRateLimiter(redisClient *redis.Client, eventsPerMinute int) *EventRateLimiter {
	if eventsPerMinute <= 0 {
		eventsPerMinute = 1000
	}
	return &EventRateLimiter{
		redis:           redisClient,
		eventsPerWindow: eventsPerMinute,
		window:          time.Minute,
		prefix:          "ratelimit:events",
	}
}

// Allow consumes n events from the tenant's budget. It returns a
// rate_limited error once the window budget is exceeded, which clients treat
// as a transient delivery failure: back off and retry, do not drop.
//
// On Redis failure the limiter fails open; losing rate limiting briefly is
// better than refusing ingestion.
func (rl *EventRateLimiter) Allow(ctx context.Context, tenantID string, n int) error {
	key := fmt.Sprintf("%s:%s", rl.prefix, tenantID)

	pipe := rl.redis.Pipeline()
	incr := pipe.IncrBy(ctx, key, int64(n))
	pipe.Expire(ctx, key, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil
	}

	if incr.Val() > int64(rl.eventsPerWindow) {
		return api.NewRateLimitedError(fmt.Sprintf(
			"event budget of %d/minute exceeded, retry later", rl.eventsPerWindow))
	}
	return nil
}

// Remaining reports the tenant's unused budget in the current window.
func (rl *EventRateLimiter) Remaining(ctx context.Context, tenantID string) (int, error) {
	key := fmt.Sprintf("%s:%s", rl.prefix, tenantID)

	count, err := rl.redis.Get(ctx, key).Int()
	if err == redis.Nil {
		return rl.eventsPerWindow, nil
	}
	if err != nil {
		return 0, err
	}

	remaining := rl.eventsPerWindow - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Reset clears a tenant's window, for tests and admin tooling.
func (rl *EventRateLimiter) Reset(ctx context.Context, tenantID string) error {
	return rl.redis.Del(ctx, fmt.Sprintf("%s:%s", rl.prefix, tenantID)).Err()
}
