// Package realtime pushes newly ingested events and derived metric updates
// to connected dashboard clients over websockets.
//
// Delivery is best-effort. The hub keeps no history and offers no replay:
// a subscriber whose buffer fills has messages dropped, and a reconnecting
// client is expected to re-fetch current state from the analytics endpoints
// before resuming the live stream.
package realtime
