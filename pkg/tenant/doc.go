// Package tenant resolves API credentials to tenants.
//
// Credentials are stored as SHA-256 hashes in Postgres. Resolution results
// sit in a short-TTL expirable LRU so the per-event lookup volume from busy
// SDKs does not turn into a per-event database query.
package tenant
