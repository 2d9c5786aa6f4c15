// Package ingest is the write path for analytics events: validate the whole
// batch, append it durably, then feed the recent-events cache and the
// realtime hub. The durable write always happens before either side effect.
package ingest
