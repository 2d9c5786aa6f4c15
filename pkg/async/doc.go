// Package async provides panic-safe goroutine helpers for best-effort
// background work.
//
// The ingestion path uses SafeGoDetached for its subordinate side effects
// (recent-events cache push, realtime fan-out) so they carry their own
// timeouts, survive the request context, and can never fail or crash the
// durable write they follow.
package async
