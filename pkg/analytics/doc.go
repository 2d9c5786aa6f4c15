// Package analytics computes dashboard aggregates over the event store:
// overview totals, daily active users, conversion funnels, retention
// cohorts, and top pages. Responses are cached briefly; the nightly
// Aggregator rolls raw events into event_stats_daily.
package analytics
