// Package middleware provides the request-boundary concerns shared by the
// Pulse HTTP endpoints: tenant credential resolution and the per-tenant
// event-budget rate limiter.
//
// Rate limiting is counted in events rather than requests so a batch of 100
// events costs the same budget as 100 singles. The limiter is Redis-backed
// and shared across gateway instances, and fails open on Redis errors.
package middleware
