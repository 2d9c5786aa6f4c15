package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"

	"github.com/pulseboard/pulse/pkg/api"
	"github.com/pulseboard/pulse/pkg/event"
)

// Config holds event store connection settings.
type Config struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	WriteTimeout time.Duration
	QueryTimeout time.Duration
}

// Store is the append-only, time-partitioned analytical store for events.
// It is the sole durable home of ingested data; everything else (recent
// cache, fan-out) is derived and best-effort.
type Store struct {
	db  *sql.DB
	cfg Config
}

// Open connects to ClickHouse and verifies connectivity with a short retry
// loop, since the store usually starts alongside the service in deployment.
func Open(cfg Config) (*Store, error) {
	db, err := sql.Open("clickhouse", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open clickhouse: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(time.Hour)

	for i := 0; i < 5; i++ {
		if err = db.Ping(); err == nil {
			return &Store{db: db, cfg: cfg}, nil
		}
		time.Sleep(3 * time.Second)
	}
	db.Close()
	return nil, fmt.Errorf("failed to ping clickhouse after retries: %w", err)
}

// NewStore wraps an existing database handle, used by tests.
func NewStore(db *sql.DB, cfg Config) *Store {
	return &Store{db: db, cfg: cfg}
}

// DB exposes the underlying handle for the aggregation service and health checks.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying pool.
func (s *Store) Close() error { return s.db.Close() }

// Append writes a batch of events in one transaction. Either every event in
// the batch is persisted or none is; a failure here must fail the whole
// ingestion request.
func (s *Store) Append(ctx context.Context, events []event.Event) error {
	if len(events) == 0 {
		return nil
	}
	if s.cfg.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.WriteTimeout)
		defer cancel()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return api.NewExecutionError("event store write failed: " + err.Error())
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (
			id, tenant_id, user_id, session_id, event_name,
			properties, timestamp, platform, ip_address, user_agent
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return api.NewExecutionError("event store write failed: " + err.Error())
	}
	defer stmt.Close()

	for i := range events {
		e := &events[i]
		props, err := json.Marshal(e.Properties)
		if err != nil {
			tx.Rollback()
			return api.NewExecutionError("event store write failed: " + err.Error())
		}
		if _, err := stmt.ExecContext(ctx,
			e.ID, e.TenantID, e.UserID, e.SessionID, e.Name,
			string(props), e.Timestamp, string(e.Platform), e.IPAddress, e.UserAgent,
		); err != nil {
			tx.Rollback()
			return api.NewExecutionError("event store write failed: " + err.Error())
		}
	}

	if err := tx.Commit(); err != nil {
		return api.NewExecutionError("event store write failed: " + err.Error())
	}
	return nil
}

// ResultSet is the shaped output of an ad-hoc read query.
type ResultSet struct {
	Columns []string
	Rows    [][]interface{}
}

// Query executes a read-only query with an enforced row cap, regardless of
// any LIMIT embedded in the query text. Callers must have validated the
// query; the cap here is the last line of defense for result size.
func (s *Store) Query(ctx context.Context, query string, rowCap int) (*ResultSet, error) {
	if s.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.QueryTimeout)
		defer cancel()
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, api.NewExecutionError("query failed: " + err.Error())
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, api.NewExecutionError("query failed: " + err.Error())
	}

	result := &ResultSet{Columns: cols}
	for rows.Next() {
		if rowCap > 0 && len(result.Rows) >= rowCap {
			break
		}
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, api.NewExecutionError("query failed: " + err.Error())
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, api.NewExecutionError("query failed: " + err.Error())
	}
	return result, nil
}

// RecentEvents returns the most recent n events for a tenant by event
// timestamp, used as the fallback when the recent-events cache is cold.
func (s *Store) RecentEvents(ctx context.Context, tenantID string, n int) ([]event.Event, error) {
	if s.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.QueryTimeout)
		defer cancel()
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, user_id, session_id, event_name, properties, timestamp, platform
		FROM events
		WHERE tenant_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, tenantID, n)
	if err != nil {
		return nil, api.NewExecutionError("recent events query failed: " + err.Error())
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var (
			e     event.Event
			props string
			plat  string
		)
		if err := rows.Scan(&e.ID, &e.TenantID, &e.UserID, &e.SessionID,
			&e.Name, &props, &e.Timestamp, &plat); err != nil {
			return nil, api.NewExecutionError("recent events scan failed: " + err.Error())
		}
		e.Platform = event.Platform(plat)
		if props != "" && props != "null" {
			if err := json.Unmarshal([]byte(props), &e.Properties); err != nil {
				// Stored by the validated write path, so this indicates
				// corruption; skip properties rather than the event.
				e.Properties = nil
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// TopEventNames returns the tenant's most frequent event names since the
// given time, used to ground natural-language query generation.
func (s *Store) TopEventNames(ctx context.Context, tenantID string, since time.Time, n int) ([]string, error) {
	if s.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.QueryTimeout)
		defer cancel()
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT event_name
		FROM events
		WHERE tenant_id = ? AND timestamp >= ?
		GROUP BY event_name
		ORDER BY count() DESC
		LIMIT ?
	`, tenantID, since, n)
	if err != nil {
		return nil, api.NewExecutionError("top event names query failed: " + err.Error())
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, api.NewExecutionError("top event names scan failed: " + err.Error())
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
