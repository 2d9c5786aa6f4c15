package tenant

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/pulseboard/pulse/pkg/api"
)

// Tenant is an isolated customer/project scope. All events and queries are
// partitioned by tenant ID.
type Tenant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

const (
	cacheSize = 1024
	cacheTTL  = 30 * time.Second
)

// Resolver resolves API credentials to tenants. Lookups hit Postgres;
// a short-TTL LRU in front absorbs the per-event lookup storm from busy
// SDKs without letting revocations lag more than the TTL.
type Resolver struct {
	db    *sql.DB
	cache *lru.LRU[string, *Tenant]
}

// NewResolver creates a resolver backed by the tenant database.
func NewResolver(db *sql.DB) *Resolver {
	return &Resolver{
		db:    db,
		cache: lru.NewLRU[string, *Tenant](cacheSize, nil, cacheTTL),
	}
}

// HashCredential returns the hex SHA-256 of an API key. Only hashes are
// stored server-side.
func HashCredential(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}

// Resolve maps an API key to its tenant. Unresolvable, inactive, or expired
// credentials all yield an authentication error.
func (r *Resolver) Resolve(ctx context.Context, apiKey string) (*Tenant, error) {
	if apiKey == "" {
		return nil, api.NewAuthenticationError("missing API key")
	}

	hash := HashCredential(apiKey)
	if t, ok := r.cache.Get(hash); ok {
		return t, nil
	}

	var (
		t         Tenant
		expiresAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT t.id, t.name, t.active, k.expires_at
		FROM api_keys k
		JOIN tenants t ON t.id = k.tenant_id
		WHERE k.token_hash = $1
	`, hash).Scan(&t.ID, &t.Name, &t.Active, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, api.NewAuthenticationError("unknown API key")
	}
	if err != nil {
		return nil, api.NewExecutionError("credential lookup failed: " + err.Error())
	}

	if !t.Active {
		return nil, api.NewAuthenticationError("tenant is inactive")
	}
	if expiresAt.Valid && expiresAt.Time.Before(time.Now()) {
		return nil, api.NewAuthenticationError("API key expired")
	}

	r.cache.Add(hash, &t)
	return &t, nil
}

// Invalidate drops a credential from the front cache, for immediate
// revocation without waiting out the TTL.
func (r *Resolver) Invalidate(apiKey string) {
	r.cache.Remove(HashCredential(apiKey))
}
