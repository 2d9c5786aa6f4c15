package httputil

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/pulseboard/pulse/pkg/api"
)

func TestWriteAPIErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{api.NewClientInputError("event_name", "required"), 400},
		{api.NewAuthenticationError("bad key"), 401},
		{api.NewRateLimitedError("slow down"), 429},
		{api.NewGenerationError("model unavailable"), 502},
		{api.NewValidationRejectedError("mutating keyword", "DROP TABLE events"), 422},
		{api.NewExecutionError("store timeout"), 500},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		WriteAPIError(w, tc.err)
		if w.Code != tc.status {
			t.Errorf("Expected status %d for %v, got %d", tc.status, tc.err, w.Code)
		}
		var body map[string]api.Error
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("Error body is not JSON: %v", err)
		}
		if body["error"].Message == "" {
			t.Error("Expected a human-readable message in the envelope")
		}
	}
}

func TestWriteAPIErrorAttachesQuery(t *testing.T) {
	w := httptest.NewRecorder()
	WriteAPIError(w, api.NewValidationRejectedError("no tenant filter", "SELECT 1"))

	var body map[string]api.Error
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["error"].Query != "SELECT 1" {
		t.Errorf("Expected rejected query in envelope, got %q", body["error"].Query)
	}
}

func TestWriteAPIErrorWrapsPlainErrors(t *testing.T) {
	w := httptest.NewRecorder()
	WriteAPIError(w, json.Unmarshal([]byte("{"), &struct{}{}))
	if w.Code != 500 {
		t.Errorf("Plain errors should map to 500, got %d", w.Code)
	}
}
