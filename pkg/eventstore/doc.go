// Package eventstore provides the durable, append-only event store over
// ClickHouse.
//
// Append is transactional per batch: a batch either lands whole or not at
// all, which is what lets the ingestion gateway promise all-or-nothing
// acceptance. Query enforces a row cap independent of any LIMIT in the query
// text, as the final guard under the natural-language query pipeline.
package eventstore
