// Package cache provides the Redis-backed caches: the per-tenant
// recent-events list and the aggregate response cache.
//
// Both caches are subordinate to the durable stores they front. The recent
// list is bounded (default 100 entries, 1h TTL) and maintained with an
// atomic push-trim-expire pipeline; the response cache keys on the full
// parameter tuple of the request.
package cache
