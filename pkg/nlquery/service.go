package nlquery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pulseboard/pulse/pkg/api"
	"github.com/pulseboard/pulse/pkg/async"
	"github.com/pulseboard/pulse/pkg/eventstore"
	"github.com/pulseboard/pulse/pkg/llm"
	"github.com/pulseboard/pulse/pkg/observability"
)

const (
	maxQuestionLen  = 500
	topEventsWindow = 7 * 24 * time.Hour
	topEventsCount  = 10
	historyTimeout  = 5 * time.Second
)

// Service answers natural language questions about a tenant's events. The
// pipeline is generate, extract, validate, execute; the validation step is
// mandatory and nothing the model produces reaches the event store without
// passing it.
type Service struct {
	store   *eventstore.Store
	client  llm.Client
	history *History
	logger  *observability.Logger
	metrics *observability.Metrics
	rowCap  int
}

// NewService wires the query pipeline. history may be nil (audit disabled)
// and metrics may be nil in tests.
func NewService(store *eventstore.Store, client llm.Client, history *History,
	logger *observability.Logger, metrics *observability.Metrics, rowCap int) *Service {
	if rowCap <= 0 {
		rowCap = 1000
	}
	return &Service{
		store:   store,
		client:  client,
		history: history,
		logger:  logger,
		metrics: metrics,
		rowCap:  rowCap,
	}
}

// Answer runs one question through the pipeline and returns the result
// envelope. Every attempt, successful or not, is recorded in the audit
// history off the request path.
func (s *Service) Answer(ctx context.Context, tenantID, question string) (*api.QueryAnswer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, api.NewClientInputError("question", "question must not be empty")
	}
	if len(question) > maxQuestionLen {
		return nil, api.NewClientInputError("question",
			fmt.Sprintf("question exceeds %d characters", maxQuestionLen))
	}

	started := time.Now()
	answer, err := s.answer(ctx, tenantID, question)
	elapsed := time.Since(started).Milliseconds()

	s.record(ctx, tenantID, question, answer, err, elapsed)
	s.observe(err, started)

	if err != nil {
		return nil, err
	}
	answer.ExecutionTimeMs = elapsed
	return answer, nil
}

func (s *Service) answer(ctx context.Context, tenantID, question string) (*api.QueryAnswer, error) {
	topEvents, err := s.store.TopEventNames(ctx, tenantID, time.Now().Add(-topEventsWindow), topEventsCount)
	if err != nil {
		// Grounding context is an enhancement; generation proceeds without it.
		s.logger.WithError(err).Warn("failed to load top event names for prompt")
	}

	prompt := BuildPrompt(tenantID, question, topEvents)

	genStart := time.Now()
	raw, err := s.client.Complete(ctx, systemPrompt, prompt)
	if s.metrics != nil {
		s.metrics.NLGenerationDuration.Observe(time.Since(genStart).Seconds())
	}
	if err != nil {
		return nil, api.AsError(err)
	}

	sqlText, err := ExtractSQL(raw)
	if err != nil {
		return nil, err
	}

	warnings, err := ValidateQuery(sqlText, tenantID)
	if err != nil {
		return nil, err
	}

	result, err := s.store.Query(ctx, sqlText, s.rowCap)
	if err != nil {
		return nil, api.NewExecutionError("query execution failed: " + err.Error())
	}

	return &api.QueryAnswer{
		Query:         sqlText,
		Columns:       result.Columns,
		Data:          result.Rows,
		Insights:      deriveInsights(result),
		Visualization: chooseVisualization(result),
		Warnings:      warnings,
	}, nil
}

// record persists the audit row off the request path. A failed save is
// logged by the goroutine wrapper and never affects the response.
func (s *Service) record(ctx context.Context, tenantID, question string, answer *api.QueryAnswer, answerErr error, elapsed int64) {
	if s.history == nil {
		return
	}
	rec := &Record{
		TenantID:        tenantID,
		Question:        question,
		ExecutionTimeMs: elapsed,
	}
	if answer != nil {
		rec.GeneratedQuery = answer.Query
		rec.ResultCount = len(answer.Data)
	}
	if answerErr != nil {
		apiErr := api.AsError(answerErr)
		rec.ErrorMessage = apiErr.Message
		rec.GeneratedQuery = apiErr.Query
	}
	async.SafeGoDetached(ctx, s.logger, historyTimeout, "nlquery history save", func(ctx context.Context) error {
		return s.history.Save(ctx, rec)
	})
}

func (s *Service) observe(err error, started time.Time) {
	if s.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = string(api.AsError(err).Kind)
	}
	s.metrics.NLQueriesTotal.WithLabelValues(outcome).Inc()
	s.metrics.NLQueryDuration.Observe(time.Since(started).Seconds())
}

// deriveInsights produces short human-readable observations about the
// result. Purely best-effort: an empty slice is fine.
func deriveInsights(rs *eventstore.ResultSet) []string {
	var insights []string

	switch len(rs.Rows) {
	case 0:
		return []string{"No data matched this query."}
	case 1:
		if len(rs.Columns) == 1 {
			insights = append(insights, fmt.Sprintf("%s: %v", rs.Columns[0], rs.Rows[0][0]))
		}
	default:
		insights = append(insights, fmt.Sprintf("%d rows returned.", len(rs.Rows)))
	}

	// Trend direction when the last column is numeric over several rows.
	if len(rs.Rows) >= 3 {
		col := len(rs.Columns) - 1
		first, ok1 := toFloat(rs.Rows[0][col])
		last, ok2 := toFloat(rs.Rows[len(rs.Rows)-1][col])
		if ok1 && ok2 && first != last {
			direction := "upward"
			if last < first {
				direction = "downward"
			}
			insights = append(insights, fmt.Sprintf("%s trends %s across the result (%.0f to %.0f).",
				rs.Columns[col], direction, first, last))
		}
	}

	// Leading category when the shape is (label, count).
	if len(rs.Columns) == 2 && len(rs.Rows) >= 2 {
		if top, ok := toFloat(rs.Rows[0][1]); ok {
			if next, ok2 := toFloat(rs.Rows[1][1]); ok2 && next > 0 && top >= next {
				insights = append(insights, fmt.Sprintf("%v leads with %.0f (%.1fx the next entry).",
					rs.Rows[0][0], top, top/next))
			}
		}
	}

	return insights
}

// chooseVisualization picks a default rendering: time series draw as lines,
// small categorical breakdowns as bars, everything else as a table.
func chooseVisualization(rs *eventstore.ResultSet) api.Visualization {
	if len(rs.Columns) < 2 || len(rs.Rows) == 0 {
		return api.VisualizationTable
	}
	if isTimeLike(rs.Columns[0], rs.Rows[0][0]) {
		return api.VisualizationLine
	}
	if len(rs.Rows) <= 20 {
		if _, numeric := toFloat(rs.Rows[0][1]); numeric {
			return api.VisualizationBar
		}
	}
	return api.VisualizationTable
}

func isTimeLike(column string, sample interface{}) bool {
	switch sample.(type) {
	case time.Time:
		return true
	}
	name := strings.ToLower(column)
	for _, marker := range []string{"date", "day", "week", "month", "hour", "time"} {
		if strings.Contains(name, marker) {
			return true
		}
	}
	if s, ok := sample.(string); ok && len(s) >= 10 {
		if _, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return true
		}
	}
	return false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	}
	return 0, false
}
