package analytics

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/pulseboard/pulse/pkg/api"
	"github.com/pulseboard/pulse/pkg/observability"
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	return NewService(db, nil, nil, logger, nil), mock
}

func testRange() DateRange {
	end := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	return DateRange{Start: end.AddDate(0, 0, -7), End: end}
}

func TestResolveRange(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		preset string
		days   int
	}{
		{"1d", 1},
		{"7d", 7},
		{"", 7},
		{"30d", 30},
		{"90d", 90},
	}
	for _, tc := range cases {
		rng, err := ResolveRange(tc.preset, now)
		if err != nil {
			t.Fatalf("ResolveRange(%q): %v", tc.preset, err)
		}
		if rng.End != now {
			t.Errorf("%q: end should be now", tc.preset)
		}
		if got := rng.Days(); got != tc.days {
			t.Errorf("%q: expected %d days, got %d", tc.preset, tc.days, got)
		}
	}

	if _, err := ResolveRange("365d", now); err == nil {
		t.Error("expected rejection of unknown preset")
	} else if api.AsError(err).Kind != api.KindClientInput {
		t.Errorf("expected client_input, got %s", api.AsError(err).Kind)
	}
}

func TestFunnelRates(t *testing.T) {
	svc, mock := newTestService(t)

	// Deepest-level distribution equivalent to step totals 1000/300/45.
	mock.ExpectQuery("SELECT level").WillReturnRows(
		sqlmock.NewRows([]string{"level", "users"}).
			AddRow(1, 700).
			AddRow(2, 255).
			AddRow(3, 45))

	steps, err := svc.Funnel(context.Background(), "t-1",
		[]string{"page_view", "signup_started", "signup_completed"}, testRange())
	if err != nil {
		t.Fatalf("Funnel: %v", err)
	}

	wantCounts := []uint64{1000, 300, 45}
	wantRates := []float64{100, 30, 15}
	for i := range steps {
		if steps[i].Count != wantCounts[i] {
			t.Errorf("step %d count = %d, want %d", i, steps[i].Count, wantCounts[i])
		}
		if steps[i].Rate != wantRates[i] {
			t.Errorf("step %d rate = %v, want %v", i, steps[i].Rate, wantRates[i])
		}
	}
}

func TestFunnelRequiresTwoSteps(t *testing.T) {
	svc, _ := newTestService(t)

	for _, steps := range [][]string{nil, {"only_one"}} {
		_, err := svc.Funnel(context.Background(), "t-1", steps, testRange())
		if err == nil {
			t.Fatalf("expected rejection for %v", steps)
		}
		if api.AsError(err).Kind != api.KindClientInput {
			t.Errorf("expected client_input, got %s", api.AsError(err).Kind)
		}
	}
}

func TestFunnelZeroStepShortCircuitsRates(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT level").WillReturnRows(
		sqlmock.NewRows([]string{"level", "users"}).AddRow(1, 50))

	steps, err := svc.Funnel(context.Background(), "t-1",
		[]string{"a", "b", "c"}, testRange())
	if err != nil {
		t.Fatalf("Funnel: %v", err)
	}
	if steps[1].Count != 0 || steps[1].Rate != 0 {
		t.Errorf("step 2 should be empty, got %+v", steps[1])
	}
	if steps[2].Rate != 0 {
		t.Errorf("rate after an empty step must be 0, got %v", steps[2].Rate)
	}
}

func TestDailyActiveUsersZeroFills(t *testing.T) {
	svc, mock := newTestService(t)
	rng := testRange()

	active := rng.Start.AddDate(0, 0, 2)
	mock.ExpectQuery("SELECT toDate").WillReturnRows(
		sqlmock.NewRows([]string{"day", "count"}).AddRow(active, 12))

	series, err := svc.DailyActiveUsers(context.Background(), "t-1", rng)
	if err != nil {
		t.Fatalf("DailyActiveUsers: %v", err)
	}
	if len(series) != 7 {
		t.Fatalf("expected 7 days, got %d", len(series))
	}
	for i, point := range series {
		want := uint64(0)
		if point.Date == active.Format("2006-01-02") {
			want = 12
		}
		if point.Count != want {
			t.Errorf("day %d (%s): count = %d, want %d", i, point.Date, point.Count, want)
		}
	}
}

func TestOverview(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT count").WillReturnRows(
		sqlmock.NewRows([]string{"c", "u", "s", "top"}).
			AddRow(5000, 420, 610, "page_view"))

	overview, err := svc.Overview(context.Background(), "t-1", testRange())
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if overview.TotalEvents != 5000 || overview.UniqueUsers != 420 {
		t.Errorf("unexpected overview %+v", overview)
	}
	if overview.TopEventName != "page_view" {
		t.Errorf("expected top event page_view, got %q", overview.TopEventName)
	}
}

func TestRetentionMath(t *testing.T) {
	svc, mock := newTestService(t)

	cohort := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT f.cohort").WillReturnRows(
		sqlmock.NewRows([]string{"cohort", "day_offset", "users"}).
			AddRow(cohort, 0, 200).
			AddRow(cohort, 1, 80).
			AddRow(cohort, 3, 50))

	cohorts, err := svc.Retention(context.Background(), "t-1", testRange())
	if err != nil {
		t.Fatalf("Retention: %v", err)
	}
	if len(cohorts) != 1 {
		t.Fatalf("expected 1 cohort, got %d", len(cohorts))
	}
	c := cohorts[0]
	if c.Size != 200 {
		t.Errorf("cohort size = %d, want 200", c.Size)
	}
	if c.Days[0] != 40 {
		t.Errorf("day 1 retention = %v, want 40", c.Days[0])
	}
	if c.Days[2] != 25 {
		t.Errorf("day 3 retention = %v, want 25", c.Days[2])
	}
	if c.Days[1] != 0 {
		t.Errorf("day 2 retention = %v, want 0", c.Days[1])
	}
}

func TestTopPages(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT JSONExtractString").WillReturnRows(
		sqlmock.NewRows([]string{"page", "views"}).
			AddRow("/home", 900).
			AddRow("/pricing", 300))

	pages, err := svc.TopPages(context.Background(), "t-1", testRange(), 10)
	if err != nil {
		t.Fatalf("TopPages: %v", err)
	}
	if len(pages) != 2 || pages[0].Path != "/home" || pages[0].Views != 900 {
		t.Errorf("unexpected pages %+v", pages)
	}
}
