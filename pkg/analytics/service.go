package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pulseboard/pulse/pkg/api"
	"github.com/pulseboard/pulse/pkg/cache"
	"github.com/pulseboard/pulse/pkg/observability"
	"github.com/pulseboard/pulse/pkg/realtime"
)

const (
	maxFunnelSteps   = 10
	retentionHorizon = 7 // days tracked per cohort
	snapshotWindow   = 5 * time.Minute
)

// Service computes aggregate metrics over the event store. Responses are
// cached briefly in Redis; dashboards poll these endpoints and the
// underlying scans are the most expensive queries in the system.
type Service struct {
	db        *sql.DB
	responses *cache.Responses
	hub       *realtime.Hub
	logger    *observability.Logger
	metrics   *observability.Metrics
}

// NewService wires the aggregation service. responses and hub may be nil.
func NewService(db *sql.DB, responses *cache.Responses, hub *realtime.Hub,
	logger *observability.Logger, metrics *observability.Metrics) *Service {
	return &Service{db: db, responses: responses, hub: hub, logger: logger, metrics: metrics}
}

// Overview is the headline card of a dashboard.
type Overview struct {
	Range        DateRange `json:"range"`
	TotalEvents  uint64    `json:"total_events"`
	UniqueUsers  uint64    `json:"unique_users"`
	Sessions     uint64    `json:"sessions"`
	TopEventName string    `json:"top_event_name"`
}

// Overview reports totals for the range.
func (s *Service) Overview(ctx context.Context, tenantID string, rng DateRange) (*Overview, error) {
	key := cache.Key("overview", tenantID, rng.Start.Format(time.RFC3339), rng.End.Format(time.RFC3339))
	var out Overview
	if s.cached(ctx, key, &out) {
		return &out, nil
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT count(), uniq(user_id), uniq(session_id), topK(1)(event_name)[1]
		FROM events
		WHERE tenant_id = ? AND timestamp >= ? AND timestamp < ?
	`, tenantID, rng.Start, rng.End)

	out.Range = rng
	if err := row.Scan(&out.TotalEvents, &out.UniqueUsers, &out.Sessions, &out.TopEventName); err != nil {
		return nil, api.NewExecutionError("overview query failed: " + err.Error())
	}

	s.store(ctx, key, &out)
	return &out, nil
}

// DailyCount is one day of a time series.
type DailyCount struct {
	Date  string `json:"date"`
	Count uint64 `json:"count"`
}

// DailyActiveUsers returns unique users per day across the range. Days
// without activity are filled with zero so charts have a continuous axis.
func (s *Service) DailyActiveUsers(ctx context.Context, tenantID string, rng DateRange) ([]DailyCount, error) {
	key := cache.Key("dau", tenantID, rng.Start.Format(time.RFC3339), rng.End.Format(time.RFC3339))
	var out []DailyCount
	if s.cached(ctx, key, &out) {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT toDate(timestamp) AS day, uniq(user_id)
		FROM events
		WHERE tenant_id = ? AND timestamp >= ? AND timestamp < ?
		GROUP BY day
		ORDER BY day
	`, tenantID, rng.Start, rng.End)
	if err != nil {
		return nil, api.NewExecutionError("daily active users query failed: " + err.Error())
	}
	defer rows.Close()

	counts := make(map[string]uint64)
	for rows.Next() {
		var (
			day   time.Time
			count uint64
		)
		if err := rows.Scan(&day, &count); err != nil {
			return nil, api.NewExecutionError("daily active users scan failed: " + err.Error())
		}
		counts[day.Format("2006-01-02")] = count
	}
	if err := rows.Err(); err != nil {
		return nil, api.NewExecutionError("daily active users query failed: " + err.Error())
	}

	for day := rng.Start; day.Before(rng.End); day = day.AddDate(0, 0, 1) {
		label := day.Format("2006-01-02")
		out = append(out, DailyCount{Date: label, Count: counts[label]})
	}

	s.store(ctx, key, out)
	return out, nil
}

// FunnelStep is one stage of a conversion funnel. Rate is the conversion
// from the previous step in percent; the first step is always 100.
type FunnelStep struct {
	Name  string  `json:"name"`
	Count uint64  `json:"count"`
	Rate  float64 `json:"rate"`
}

// Funnel counts users completing each step in order within the range.
// Step names are always bound as query parameters, never interpolated into
// the statement text.
func (s *Service) Funnel(ctx context.Context, tenantID string, steps []string, rng DateRange) ([]FunnelStep, error) {
	if len(steps) < 2 {
		return nil, api.NewClientInputError("steps", "funnel requires at least 2 steps")
	}
	if len(steps) > maxFunnelSteps {
		return nil, api.NewClientInputError("steps",
			fmt.Sprintf("funnel supports at most %d steps", maxFunnelSteps))
	}
	for i, step := range steps {
		if strings.TrimSpace(step) == "" {
			return nil, api.NewClientInputError(
				fmt.Sprintf("steps[%d]", i), "step name must not be empty")
		}
	}

	key := cache.Key("funnel", tenantID, append([]string{
		rng.Start.Format(time.RFC3339), rng.End.Format(time.RFC3339)}, steps...)...)
	var out []FunnelStep
	if s.cached(ctx, key, &out) {
		return out, nil
	}

	conds := make([]string, len(steps))
	args := []interface{}{int64(rng.End.Sub(rng.Start).Seconds())}
	for i, step := range steps {
		conds[i] = "event_name = ?"
		args = append(args, step)
	}
	args = append(args, tenantID, rng.Start, rng.End)

	query := fmt.Sprintf(`
		SELECT level, count() AS users
		FROM (
			SELECT user_id, windowFunnel(?)(timestamp, %s) AS level
			FROM events
			WHERE tenant_id = ? AND timestamp >= ? AND timestamp < ?
			GROUP BY user_id
		)
		GROUP BY level
	`, strings.Join(conds, ", "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, api.NewExecutionError("funnel query failed: " + err.Error())
	}
	defer rows.Close()

	byLevel := make(map[int]uint64)
	for rows.Next() {
		var (
			level int
			users uint64
		)
		if err := rows.Scan(&level, &users); err != nil {
			return nil, api.NewExecutionError("funnel scan failed: " + err.Error())
		}
		byLevel[level] = users
	}
	if err := rows.Err(); err != nil {
		return nil, api.NewExecutionError("funnel query failed: " + err.Error())
	}

	// windowFunnel reports the deepest level each user reached; a user at
	// level n completed every step up to n.
	out = make([]FunnelStep, len(steps))
	for i := range steps {
		var count uint64
		for level, users := range byLevel {
			if level >= i+1 {
				count += users
			}
		}
		out[i] = FunnelStep{Name: steps[i], Count: count}
	}
	for i := range out {
		switch {
		case i == 0:
			out[i].Rate = 100
		case out[i-1].Count == 0:
			out[i].Rate = 0
		default:
			out[i].Rate = float64(out[i].Count) / float64(out[i-1].Count) * 100
		}
	}

	s.store(ctx, key, out)
	return out, nil
}

// RetentionCohort is one first-seen-day cohort with per-day return rates.
type RetentionCohort struct {
	Cohort string    `json:"cohort"`
	Size   uint64    `json:"size"`
	Days   []float64 `json:"days"` // index 0 = day after first seen, percent
}

// Retention groups users by first-seen day inside the range and reports
// what share returned on each of the following days.
func (s *Service) Retention(ctx context.Context, tenantID string, rng DateRange) ([]RetentionCohort, error) {
	key := cache.Key("retention", tenantID, rng.Start.Format(time.RFC3339), rng.End.Format(time.RFC3339))
	var out []RetentionCohort
	if s.cached(ctx, key, &out) {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT f.cohort, dateDiff('day', f.cohort, toDate(e.timestamp)) AS day_offset, uniq(e.user_id)
		FROM events AS e
		INNER JOIN (
			SELECT user_id, min(toDate(timestamp)) AS cohort
			FROM events
			WHERE tenant_id = ? AND timestamp >= ? AND timestamp < ?
			GROUP BY user_id
		) AS f ON e.user_id = f.user_id
		WHERE e.tenant_id = ? AND e.timestamp >= ? AND e.timestamp < ?
		GROUP BY f.cohort, day_offset
		ORDER BY f.cohort, day_offset
	`, tenantID, rng.Start, rng.End, tenantID, rng.Start, rng.End)
	if err != nil {
		return nil, api.NewExecutionError("retention query failed: " + err.Error())
	}
	defer rows.Close()

	type cell struct {
		offset int
		users  uint64
	}
	cohorts := make(map[string][]cell)
	var order []string
	for rows.Next() {
		var (
			cohort time.Time
			offset int
			users  uint64
		)
		if err := rows.Scan(&cohort, &offset, &users); err != nil {
			return nil, api.NewExecutionError("retention scan failed: " + err.Error())
		}
		label := cohort.Format("2006-01-02")
		if _, seen := cohorts[label]; !seen {
			order = append(order, label)
		}
		cohorts[label] = append(cohorts[label], cell{offset, users})
	}
	if err := rows.Err(); err != nil {
		return nil, api.NewExecutionError("retention query failed: " + err.Error())
	}

	for _, label := range order {
		cohort := RetentionCohort{Cohort: label, Days: make([]float64, retentionHorizon)}
		for _, c := range cohorts[label] {
			if c.offset == 0 {
				cohort.Size = c.users
			}
		}
		if cohort.Size > 0 {
			for _, c := range cohorts[label] {
				if c.offset >= 1 && c.offset <= retentionHorizon {
					cohort.Days[c.offset-1] = float64(c.users) / float64(cohort.Size) * 100
				}
			}
		}
		out = append(out, cohort)
	}

	s.store(ctx, key, out)
	return out, nil
}

// PageCount is one page in the top-pages table.
type PageCount struct {
	Path  string `json:"path"`
	Views uint64 `json:"views"`
}

// TopPages ranks page_view paths by view count.
func (s *Service) TopPages(ctx context.Context, tenantID string, rng DateRange, limit int) ([]PageCount, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	key := cache.Key("top_pages", tenantID,
		rng.Start.Format(time.RFC3339), rng.End.Format(time.RFC3339), strconv.Itoa(limit))
	var out []PageCount
	if s.cached(ctx, key, &out) {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT JSONExtractString(properties, 'path') AS page, count() AS views
		FROM events
		WHERE tenant_id = ? AND event_name = 'page_view'
		  AND timestamp >= ? AND timestamp < ?
		  AND page != ''
		GROUP BY page
		ORDER BY views DESC
		LIMIT ?
	`, tenantID, rng.Start, rng.End, limit)
	if err != nil {
		return nil, api.NewExecutionError("top pages query failed: " + err.Error())
	}
	defer rows.Close()

	for rows.Next() {
		var p PageCount
		if err := rows.Scan(&p.Path, &p.Views); err != nil {
			return nil, api.NewExecutionError("top pages scan failed: " + err.Error())
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, api.NewExecutionError("top pages query failed: " + err.Error())
	}

	s.store(ctx, key, out)
	return out, nil
}

// Snapshot is the live activity summary over the last five minutes.
type Snapshot struct {
	WindowSeconds   int     `json:"window_seconds"`
	Events          uint64  `json:"events"`
	ActiveUsers     uint64  `json:"active_users"`
	EventsPerMinute float64 `json:"events_per_minute"`
}

// RealtimeSnapshot is never cached: it backs the live tiles and also feeds
// the fan-out hub with an events_per_minute metric update.
func (s *Service) RealtimeSnapshot(ctx context.Context, tenantID string) (*Snapshot, error) {
	since := time.Now().Add(-snapshotWindow)
	row := s.db.QueryRowContext(ctx, `
		SELECT count(), uniq(user_id)
		FROM events
		WHERE tenant_id = ? AND timestamp >= ?
	`, tenantID, since)

	snap := &Snapshot{WindowSeconds: int(snapshotWindow.Seconds())}
	if err := row.Scan(&snap.Events, &snap.ActiveUsers); err != nil {
		return nil, api.NewExecutionError("realtime snapshot query failed: " + err.Error())
	}
	snap.EventsPerMinute = float64(snap.Events) / snapshotWindow.Minutes()

	if s.hub != nil {
		s.hub.PublishMetric(tenantID, "events_per_minute", snap.EventsPerMinute)
	}
	return snap, nil
}

// cached loads a response from the cache, reporting hits to metrics. Cache
// failures count as misses.
func (s *Service) cached(ctx context.Context, key string, dest interface{}) bool {
	if s.responses == nil {
		return false
	}
	hit, err := s.responses.Get(ctx, key, dest)
	if err != nil {
		s.logger.WithError(err).Warn("response cache read failed")
		hit = false
	}
	if s.metrics != nil {
		if hit {
			s.metrics.CacheHitsTotal.WithLabelValues("responses").Inc()
		} else {
			s.metrics.CacheMissesTotal.WithLabelValues("responses").Inc()
		}
	}
	return hit
}

func (s *Service) store(ctx context.Context, key string, value interface{}) {
	if s.responses == nil {
		return
	}
	if err := s.responses.Set(ctx, key, value); err != nil {
		s.logger.WithError(err).Warn("response cache write failed")
	}
}
