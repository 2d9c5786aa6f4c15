// Package observability provides structured logging, Prometheus metrics,
// health checks, panic recovery, and graceful shutdown for the Pulse services.
//
// # Logging
//
// Logger wraps stdlib slog with a JSON handler and chainable field helpers.
// Request-scoped loggers travel through context; FromContext attaches the
// request ID and resolved tenant ID automatically.
//
// # Metrics
//
// NewMetrics registers counters, histograms, and gauges for HTTP traffic,
// ingestion throughput, cache effectiveness, realtime fan-out, and
// natural-language query outcomes on a caller-owned Prometheus registry,
// served with promhttp on the health port.
//
// # Health
//
// HealthChecker exposes liveness and readiness probes over the event store,
// the tenant database, and Redis. Redis failures degrade rather than fail
// readiness because every cache consumer has a store fallback.
package observability
