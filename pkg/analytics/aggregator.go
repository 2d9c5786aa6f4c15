package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pulseboard/pulse/pkg/observability"
)

// Aggregator rolls raw events up into event_stats_daily. The rollup table
// is a SummingMergeTree, so re-running a day first clears its partition
// rows to keep the job idempotent.
type Aggregator struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewAggregator creates the daily rollup job.
func NewAggregator(db *sql.DB, logger *observability.Logger) *Aggregator {
	return &Aggregator{db: db, logger: logger}
}

// AggregateDay recomputes the rollup for one UTC day.
func (a *Aggregator) AggregateDay(ctx context.Context, date time.Time) error {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	next := day.AddDate(0, 0, 1)

	if _, err := a.db.ExecContext(ctx,
		`ALTER TABLE event_stats_daily DELETE WHERE date = ?`, day); err != nil {
		return fmt.Errorf("failed to clear rollup for %s: %w", day.Format("2006-01-02"), err)
	}

	_, err := a.db.ExecContext(ctx, `
		INSERT INTO event_stats_daily (tenant_id, date, event_name, event_count, unique_users)
		SELECT tenant_id, toDate(timestamp) AS date, event_name, count(), uniq(user_id)
		FROM events
		WHERE timestamp >= ? AND timestamp < ?
		GROUP BY tenant_id, date, event_name
	`, day, next)
	if err != nil {
		return fmt.Errorf("failed to aggregate %s: %w", day.Format("2006-01-02"), err)
	}

	a.logger.WithField("date", day.Format("2006-01-02")).Info("daily rollup complete")
	return nil
}

// AggregateYesterday is the nightly cron entrypoint.
func (a *Aggregator) AggregateYesterday(ctx context.Context) error {
	return a.AggregateDay(ctx, time.Now().UTC().AddDate(0, 0, -1))
}

// Backfill recomputes every day in [from, to].
func (a *Aggregator) Backfill(ctx context.Context, from, to time.Time) error {
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if err := a.AggregateDay(ctx, day); err != nil {
			return err
		}
	}
	return nil
}
