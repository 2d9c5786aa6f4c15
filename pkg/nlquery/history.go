package nlquery

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Record is one audited question/query pair. Failed attempts are recorded
// too: the error message is stored and ResultCount stays zero.
type Record struct {
	ID              string    `json:"id"`
	TenantID        string    `json:"-"`
	Question        string    `json:"question"`
	GeneratedQuery  string    `json:"generated_query"`
	ExecutionTimeMs int64     `json:"execution_time_ms"`
	ResultCount     int       `json:"result_count"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// History persists query audit records in Postgres.
type History struct {
	db *sql.DB
}

// NewHistory wraps a Postgres handle.
func NewHistory(db *sql.DB) *History {
	return &History{db: db}
}

// HistorySchemaSQL creates the audit table.
const HistorySchemaSQL = `
CREATE TABLE IF NOT EXISTS query_history (
    id UUID PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    question TEXT NOT NULL,
    generated_query TEXT NOT NULL DEFAULT '',
    execution_time_ms BIGINT NOT NULL DEFAULT 0,
    result_count INT NOT NULL DEFAULT 0,
    error_message TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS query_history_tenant_created_idx
    ON query_history (tenant_id, created_at DESC);
`

// Save inserts one record, assigning ID and CreatedAt when unset.
func (h *History) Save(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := h.db.ExecContext(ctx,
		`INSERT INTO query_history (id, tenant_id, question, generated_query, execution_time_ms, result_count, error_message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.TenantID, rec.Question, rec.GeneratedQuery,
		rec.ExecutionTimeMs, rec.ResultCount, rec.ErrorMessage, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save query record: %w", err)
	}
	return nil
}

// Recent returns the tenant's latest records, newest first.
func (h *History) Recent(ctx context.Context, tenantID string, n int) ([]Record, error) {
	if n <= 0 {
		n = 20
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, question, generated_query, execution_time_ms, result_count, error_message, created_at
		 FROM query_history WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2`,
		tenantID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec := Record{TenantID: tenantID}
		if err := rows.Scan(&rec.ID, &rec.Question, &rec.GeneratedQuery,
			&rec.ExecutionTimeMs, &rec.ResultCount, &rec.ErrorMessage, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// RecentQuestions returns distinct recent questions for suggestion lists.
func (h *History) RecentQuestions(ctx context.Context, tenantID string, n int) ([]string, error) {
	if n <= 0 {
		n = 5
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT question FROM (
		     SELECT DISTINCT ON (question) question, created_at
		     FROM query_history
		     WHERE tenant_id = $1 AND error_message = ''
		     ORDER BY question, created_at DESC
		 ) q ORDER BY created_at DESC LIMIT $2`,
		tenantID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent questions: %w", err)
	}
	defer rows.Close()

	var questions []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
