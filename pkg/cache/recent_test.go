package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/pulseboard/pulse/pkg/event"
)

func testRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestRecentBoundAndOrder(t *testing.T) {
	client, _ := testRedis(t)
	recent := NewRecent(client, 100, time.Hour)
	ctx := context.Background()

	base := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 150; i++ {
		e := event.Event{
			ID:        fmt.Sprintf("e%d", i),
			TenantID:  "t1",
			Name:      "page_view",
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}
		if err := recent.Push(ctx, "t1", e); err != nil {
			t.Fatalf("Push failed: %v", err)
		}
	}

	events, err := recent.List(ctx, "t1", 100)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(events) != 100 {
		t.Fatalf("Expected exactly 100 cached events, got %d", len(events))
	}
	// Newest first: e149 down to e50.
	if events[0].ID != "e149" {
		t.Errorf("Expected newest event first, got %s", events[0].ID)
	}
	if events[99].ID != "e50" {
		t.Errorf("Expected e50 last, got %s", events[99].ID)
	}
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp.After(events[i-1].Timestamp) {
			t.Fatalf("Events out of descending timestamp order at %d", i)
		}
	}
}

func TestRecentTenantIsolation(t *testing.T) {
	client, _ := testRedis(t)
	recent := NewRecent(client, 100, time.Hour)
	ctx := context.Background()

	recent.Push(ctx, "t1", event.Event{ID: "a", TenantID: "t1", Name: "x"})
	recent.Push(ctx, "t2", event.Event{ID: "b", TenantID: "t2", Name: "y"})

	events, _ := recent.List(ctx, "t1", 10)
	if len(events) != 1 || events[0].ID != "a" {
		t.Errorf("Tenant t1 should only see its own events, got %+v", events)
	}
}

func TestRecentTTL(t *testing.T) {
	client, mr := testRedis(t)
	recent := NewRecent(client, 100, time.Hour)
	ctx := context.Background()

	recent.Push(ctx, "t1", event.Event{ID: "a", Name: "x"})
	mr.FastForward(time.Hour + time.Minute)

	events, err := recent.List(ctx, "t1", 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("Expected expired cache, got %d events", len(events))
	}
}

func TestRecentLimitClamped(t *testing.T) {
	client, _ := testRedis(t)
	recent := NewRecent(client, 5, time.Hour)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		recent.Push(ctx, "t1", event.Event{ID: fmt.Sprintf("e%d", i), Name: "x"})
	}
	events, _ := recent.List(ctx, "t1", 1000)
	if len(events) != 5 {
		t.Errorf("Expected list clamped to bound 5, got %d", len(events))
	}
}

func TestResponsesRoundTripAndTTL(t *testing.T) {
	client, mr := testRedis(t)
	responses := NewResponses(client, 5*time.Minute)
	ctx := context.Background()

	type overview struct {
		Total int `json:"total"`
	}
	key := Key("overview", "t1", "7d")
	if err := responses.Set(ctx, key, overview{Total: 42}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var out overview
	ok, err := responses.Get(ctx, key, &out)
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	if out.Total != 42 {
		t.Errorf("Expected 42, got %d", out.Total)
	}

	mr.FastForward(6 * time.Minute)
	ok, _ = responses.Get(ctx, key, &out)
	if ok {
		t.Error("Expected cache miss after TTL")
	}
}

func TestResponseKeyComposition(t *testing.T) {
	a := Key("funnel", "t1", "7d", "signup,purchase")
	b := Key("funnel", "t1", "7d", "signup,checkout")
	if a == b {
		t.Error("Different funnel steps must produce different cache keys")
	}
}
