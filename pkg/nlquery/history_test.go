package nlquery

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestHistorySaveAssignsDefaults(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO query_history").
		WillReturnResult(sqlmock.NewResult(0, 1))

	history := NewHistory(db)
	rec := &Record{
		TenantID:       "t-1",
		Question:       "how many signups last week?",
		GeneratedQuery: "SELECT count() FROM events WHERE tenant_id = 't-1'",
		ResultCount:    1,
	}
	assert.NoError(t, history.Save(context.Background(), rec))
	assert.NotEmpty(t, rec.ID, "save assigns an id")
	assert.False(t, rec.CreatedAt.IsZero(), "save assigns a creation time")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRecordsFailures(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO query_history").
		WithArgs(sqlmock.AnyArg(), "t-1", "drop everything", "", int64(12), 0,
			"forbidden keyword \"drop\"", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	history := NewHistory(db)
	rec := &Record{
		TenantID:        "t-1",
		Question:        "drop everything",
		ExecutionTimeMs: 12,
		ErrorMessage:    "forbidden keyword \"drop\"",
	}
	assert.NoError(t, history.Save(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("SELECT id, question").
		WithArgs("t-1", 2).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "question", "generated_query", "execution_time_ms", "result_count", "error_message", "created_at"}).
			AddRow("r2", "newest?", "SELECT 2", int64(5), 3, "", now).
			AddRow("r1", "older?", "SELECT 1", int64(9), 1, "", now.Add(-time.Hour)))

	history := NewHistory(db)
	records, err := history.Recent(context.Background(), "t-1", 2)
	assert.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, "newest?", records[0].Question)
	assert.Equal(t, "t-1", records[0].TenantID)
}
