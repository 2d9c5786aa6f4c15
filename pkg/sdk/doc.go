// Package sdk is the Go client for recording analytics events. Events are
// buffered locally, snapshotted for offline survival, and delivered in
// batches; recording never blocks on the network.
package sdk
