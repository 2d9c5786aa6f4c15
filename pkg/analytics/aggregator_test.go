package analytics

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/pulseboard/pulse/pkg/observability"
)

func TestAggregateDayIsIdempotent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	agg := NewAggregator(db, observability.NewLogger(observability.ErrorLevel, io.Discard))
	date := time.Date(2026, 8, 31, 15, 30, 0, 0, time.UTC)

	// Each run clears the day before recomputing it.
	for i := 0; i < 2; i++ {
		mock.ExpectExec("ALTER TABLE event_stats_daily DELETE").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("INSERT INTO event_stats_daily").
			WithArgs(
				time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
				time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
			).
			WillReturnResult(sqlmock.NewResult(0, 10))
	}

	if err := agg.AggregateDay(context.Background(), date); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := agg.AggregateDay(context.Background(), date); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestBackfillStopsOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	agg := NewAggregator(db, observability.NewLogger(observability.ErrorLevel, io.Discard))

	mock.ExpectExec("ALTER TABLE event_stats_daily DELETE").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO event_stats_daily").
		WillReturnError(io.ErrClosedPipe)

	from := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	if err := agg.Backfill(context.Background(), from, to); err == nil {
		t.Fatal("expected backfill to propagate the failure")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("later days ran after a failure: %v", err)
	}
}
