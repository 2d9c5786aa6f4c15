package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Responses caches aggregate query responses keyed by the full parameter
// tuple of the request that produced them.
type Responses struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResponses creates a response cache with the given default TTL.
func NewResponses(client *redis.Client, ttl time.Duration) *Responses {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Responses{client: client, ttl: ttl}
}

// Key composes a cache key from an endpoint name, tenant, and the remaining
// request parameters, in order. Every parameter that shapes the response must
// be part of the key.
func Key(endpoint, tenantID string, params ...string) string {
	key := fmt.Sprintf("resp:%s:%s", endpoint, tenantID)
	for _, p := range params {
		key += ":" + p
	}
	return key
}

// Get loads a cached response into dest; ok is false on a miss.
func (c *Responses) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("response cache read failed: %w", err)
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		c.client.Del(ctx, key)
		return false, nil
	}
	return true, nil
}

// Set stores a response under the key with the default TTL.
func (c *Responses) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}
