package event

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/pulseboard/pulse/pkg/api"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func TestNormalizeDefaults(t *testing.T) {
	e := Event{Name: "page_view", SessionID: "sess-1"}
	if err := Normalize(&e, testNow); err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if e.ID == "" {
		t.Error("Expected generated ID")
	}
	if e.UserID != "anon:sess-1" {
		t.Errorf("Expected anonymous user id derived from session, got %q", e.UserID)
	}
	if !e.Timestamp.Equal(testNow) {
		t.Errorf("Expected timestamp defaulted to %v, got %v", testNow, e.Timestamp)
	}
	if e.Platform != PlatformWeb {
		t.Errorf("Expected default platform web, got %q", e.Platform)
	}
}

func TestNormalizeKeepsClientValues(t *testing.T) {
	ts := testNow.Add(-time.Hour)
	e := Event{ID: "evt-1", Name: "signup", UserID: "u1", Timestamp: ts, Platform: PlatformIOS}
	if err := Normalize(&e, testNow); err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if e.ID != "evt-1" || e.UserID != "u1" || !e.Timestamp.Equal(ts) || e.Platform != PlatformIOS {
		t.Errorf("Client-supplied fields were overwritten: %+v", e)
	}
}

func TestNormalizeRejections(t *testing.T) {
	bigProps := make(map[string]Value)
	for i := 0; i < MaxPropertyKeys+1; i++ {
		bigProps[strings.Repeat("k", i+1)] = Bool(true)
	}

	cases := []struct {
		name  string
		event Event
		field string
	}{
		{"empty name", Event{}, "event_name"},
		{"long name", Event{Name: strings.Repeat("x", MaxNameLength+1)}, "event_name"},
		{"bad platform", Event{Name: "click", Platform: "windows"}, "platform"},
		{"too many keys", Event{Name: "click", Properties: bigProps}, "properties"},
		{"oversized props", Event{Name: "click", Properties: map[string]Value{
			"blob": String(strings.Repeat("a", MaxPropertyBytes)),
		}}, "properties"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Normalize(&tc.event, testNow)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			apiErr, ok := err.(*api.Error)
			if !ok {
				t.Fatalf("Expected *api.Error, got %T", err)
			}
			if apiErr.Kind != api.KindClientInput {
				t.Errorf("Expected client_input kind, got %s", apiErr.Kind)
			}
			if apiErr.Field != tc.field {
				t.Errorf("Expected field %q, got %q", tc.field, apiErr.Field)
			}
		})
	}
}

func TestNormalizeBatchIdentifiesOffender(t *testing.T) {
	events := []Event{
		{Name: "page_view"},
		{Name: "click"},
		{Name: ""},
	}
	err := NormalizeBatch(events, testNow)
	if err == nil {
		t.Fatal("Expected batch rejection")
	}
	apiErr := err.(*api.Error)
	if apiErr.Field != "events[2].event_name" {
		t.Errorf("Expected offender index in field, got %q", apiErr.Field)
	}
}

func TestValueUnmarshalScalarsOnly(t *testing.T) {
	var props map[string]Value
	good := `{"page": "/pricing", "count": 3, "new_user": true}`
	if err := json.Unmarshal([]byte(good), &props); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if s, _ := props["page"].AsString(); s != "/pricing" {
		t.Errorf("Expected string value, got %v", props["page"])
	}
	if n, _ := props["count"].AsNumber(); n != 3 {
		t.Errorf("Expected numeric value 3, got %v", n)
	}
	if b, _ := props["new_user"].AsBool(); !b {
		t.Error("Expected boolean true")
	}

	for _, bad := range []string{`{"x": null}`, `{"x": {"nested": 1}}`, `{"x": [1,2]}`} {
		if err := json.Unmarshal([]byte(bad), &props); err == nil {
			t.Errorf("Expected rejection of %s", bad)
		}
	}
}

func TestValueRoundTrip(t *testing.T) {
	props := map[string]Value{"a": String("x"), "b": Number(2.5), "c": Bool(false)}
	data, err := json.Marshal(props)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var back map[string]Value
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if back["b"].Text() != "2.5" {
		t.Errorf("Expected 2.5, got %s", back["b"].Text())
	}
}
