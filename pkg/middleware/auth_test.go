package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pulseboard/pulse/pkg/api"
	"github.com/pulseboard/pulse/pkg/tenant"
)

type fakeResolver struct {
	tenants map[string]*tenant.Tenant
}

func (f *fakeResolver) Resolve(ctx context.Context, apiKey string) (*tenant.Tenant, error) {
	if t, ok := f.tenants[apiKey]; ok {
		return t, nil
	}
	return nil, api.NewAuthenticationError("unknown API key")
}

func TestAuthResolvesTenant(t *testing.T) {
	auth := NewAuth(&fakeResolver{tenants: map[string]*tenant.Tenant{
		"good-key": {ID: "t1", Name: "Acme", Active: true},
	}})

	var got *tenant.Tenant
	handler := auth.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = TenantFromContext(r.Context())
	}))

	req := httptest.NewRequest("POST", "/api/v1/events", nil)
	req.Header.Set("X-API-Key", "good-key")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if got == nil || got.ID != "t1" {
		t.Errorf("Expected tenant t1 in context, got %+v", got)
	}
}

func TestAuthRejectsMissingAndUnknownKeys(t *testing.T) {
	auth := NewAuth(&fakeResolver{tenants: map[string]*tenant.Tenant{}})
	handler := auth.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not run for unauthenticated requests")
	}))

	req := httptest.NewRequest("POST", "/api/v1/events", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for missing key, got %d", w.Code)
	}

	req = httptest.NewRequest("POST", "/api/v1/events", nil)
	req.Header.Set("X-API-Key", "bad-key")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for unknown key, got %d", w.Code)
	}
}

func TestExtractCredentialSources(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-API-Key", "from-header")
	if got := ExtractCredential(r); got != "from-header" {
		t.Errorf("Expected header key, got %q", got)
	}

	r = httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer from-bearer")
	if got := ExtractCredential(r); got != "from-bearer" {
		t.Errorf("Expected bearer token, got %q", got)
	}

	r = httptest.NewRequest("GET", "/?api_key=from-query", nil)
	if got := ExtractCredential(r); got != "from-query" {
		t.Errorf("Expected query key, got %q", got)
	}
}
