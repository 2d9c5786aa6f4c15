package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/pulseboard/pulse/pkg/api"
	"github.com/pulseboard/pulse/pkg/httputil"
	"github.com/pulseboard/pulse/pkg/observability"
	"github.com/pulseboard/pulse/pkg/tenant"
)

// tenantContextKey is the context key for the resolved tenant
type tenantContextKey struct{}

// TenantResolver resolves an API credential to a tenant.
type TenantResolver interface {
	Resolve(ctx context.Context, apiKey string) (*tenant.Tenant, error)
}

// Auth authenticates requests by resolving the tenant credential from the
// X-API-Key header (or a Bearer token) and stashing the tenant in context.
type Auth struct {
	resolver TenantResolver
}

// NewAuth creates the auth middleware.
func NewAuth(resolver TenantResolver) *Auth {
	return &Auth{resolver: resolver}
}

// Handler wraps an HTTP handler with credential resolution.
func (a *Auth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := ExtractCredential(r)
		if apiKey == "" {
			httputil.WriteAPIError(w, api.NewAuthenticationError("missing API key"))
			return
		}

		t, err := a.resolver.Resolve(r.Context(), apiKey)
		if err != nil {
			httputil.WriteAPIError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), tenantContextKey{}, t)
		ctx = observability.WithTenantID(ctx, t.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ExtractCredential pulls the API key from the request, preferring the
// X-API-Key header. Query-parameter fallback exists for beacon deliveries,
// which cannot set headers.
func ExtractCredential(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.URL.Query().Get("api_key")
}

// TenantFromContext returns the tenant resolved by Auth.
func TenantFromContext(ctx context.Context) (*tenant.Tenant, bool) {
	t, ok := ctx.Value(tenantContextKey{}).(*tenant.Tenant)
	return t, ok && t != nil
}

// ContextWithTenant stashes a tenant in the context the way Auth does.
// Intended for handler tests.
func ContextWithTenant(ctx context.Context, t *tenant.Tenant) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, t)
}
