package httputil

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseJSON(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"click"}`))
	var dest struct {
		Name string `json:"name"`
	}
	if err := ParseJSON(r, &dest); err != nil {
		t.Fatalf("ParseJSON failed: %v", err)
	}
	if dest.Name != "click" {
		t.Errorf("Expected click, got %s", dest.Name)
	}

	r = httptest.NewRequest("POST", "/", strings.NewReader(`{`))
	if err := ParseJSON(r, &dest); err == nil {
		t.Error("Expected error for malformed JSON")
	}
}

func TestParseQueryInt(t *testing.T) {
	r := httptest.NewRequest("GET", "/?limit=25", nil)
	if v, err := ParseQueryInt(r, "limit", 10); err != nil || v != 25 {
		t.Errorf("Expected 25, got %d (%v)", v, err)
	}
	if v, _ := ParseQueryInt(r, "missing", 10); v != 10 {
		t.Errorf("Expected default 10, got %d", v)
	}
	r = httptest.NewRequest("GET", "/?limit=abc", nil)
	if _, err := ParseQueryInt(r, "limit", 10); err == nil {
		t.Error("Expected error for non-integer")
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.1:4312"
	if ip := ClientIP(r); ip != "10.0.0.1" {
		t.Errorf("Expected 10.0.0.1, got %s", ip)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	if ip := ClientIP(r); ip != "203.0.113.5" {
		t.Errorf("Expected forwarded IP, got %s", ip)
	}
}
