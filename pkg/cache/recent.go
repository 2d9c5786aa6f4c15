package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/pulseboard/pulse/pkg/event"
)

const (
	defaultRecentMaxLen = 100
	defaultRecentTTL    = time.Hour
)

// Recent is the per-tenant recent-events cache: a bounded Redis list holding
// the newest events, newest first. It is purely a latency optimization; the
// event store remains the source of truth and callers fall back to it on a
// cold cache.
type Recent struct {
	client *redis.Client
	maxLen int
	ttl    time.Duration
}

// NewRecent creates a recent-events cache with the configured bound and TTL.
func NewRecent(client *redis.Client, maxLen int, ttl time.Duration) *Recent {
	if maxLen <= 0 {
		maxLen = defaultRecentMaxLen
	}
	if ttl <= 0 {
		ttl = defaultRecentTTL
	}
	return &Recent{client: client, maxLen: maxLen, ttl: ttl}
}

func recentKey(tenantID string) string {
	return fmt.Sprintf("recent:%s", tenantID)
}

// Push prepends an event and trims to the bound. The push, trim, and expire
// run in one pipeline so concurrent writers for the same tenant cannot leave
// the list over its bound.
func (r *Recent) Push(ctx context.Context, tenantID string, e event.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	key := recentKey(tenantID)
	pipe := r.client.Pipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, int64(r.maxLen-1))
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("recent cache push failed: %w", err)
	}
	return nil
}

// List returns up to limit cached events, newest first. An empty result
// means a cold cache, not an empty tenant; callers consult the store.
func (r *Recent) List(ctx context.Context, tenantID string, limit int) ([]event.Event, error) {
	if limit <= 0 || limit > r.maxLen {
		limit = r.maxLen
	}

	raw, err := r.client.LRange(ctx, recentKey(tenantID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("recent cache read failed: %w", err)
	}

	events := make([]event.Event, 0, len(raw))
	for _, item := range raw {
		var e event.Event
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			// Corrupt entry; drop the key and treat as a cold cache.
			r.client.Del(ctx, recentKey(tenantID))
			return nil, nil
		}
		events = append(events, e)
	}
	return events, nil
}
