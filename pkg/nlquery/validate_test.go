package nlquery

import (
	"testing"

	"github.com/pulseboard/pulse/pkg/api"
)

const tenantID = "t-123"

func TestValidQueryPasses(t *testing.T) {
	sql := "SELECT count() FROM events WHERE tenant_id = 't-123' AND timestamp >= now() - INTERVAL 7 DAY LIMIT 100"
	warnings, err := ValidateQuery(sql, tenantID)
	if err != nil {
		t.Fatalf("expected valid query to pass, got %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}
}

func TestMutatingKeywordsRejected(t *testing.T) {
	cases := []struct {
		name string
		sql  string
	}{
		{"bare statement", "DROP TABLE events"},
		{"piggybacked insert", "SELECT 1 FROM events WHERE tenant_id = 't-123' AND 0 = 1 UNION ALL INSERT INTO events VALUES ()"},
		{"keyword in string literal", "SELECT count() FROM events WHERE tenant_id = 't-123' AND name = 'drop everything'"},
		{"keyword in comment", "SELECT count() FROM events WHERE tenant_id = 't-123' /* delete later */"},
		{"lowercase truncate", "SELECT 1 FROM events WHERE tenant_id = 't-123' AND truncate = 1"},
		{"mixed case alter", "SELECT 1 FROM events WHERE tenant_id = 't-123' AND x = 'AlTeR'"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateQuery(tc.sql, tenantID)
			if err == nil {
				t.Fatalf("expected rejection for %q", tc.sql)
			}
			apiErr := api.AsError(err)
			if apiErr.Kind != api.KindValidationRejected {
				t.Errorf("expected validation_rejected, got %s", apiErr.Kind)
			}
			if apiErr.Query != tc.sql {
				t.Errorf("rejected query not attached to error")
			}
		})
	}
}

func TestKeywordInsideWordNotRejected(t *testing.T) {
	// "update" embedded in an identifier is not the keyword.
	sql := "SELECT count() FROM events WHERE tenant_id = 't-123' AND name = 'profile_updated' LIMIT 10"
	if _, err := ValidateQuery(sql, tenantID); err != nil {
		t.Errorf("identifier containing a keyword substring was rejected: %v", err)
	}
}

func TestMissingTenantFilterRejected(t *testing.T) {
	cases := []string{
		"SELECT count() FROM events LIMIT 10",
		"SELECT count() FROM events WHERE tenant_id = 'other-tenant' LIMIT 10",
	}
	for _, sql := range cases {
		_, err := ValidateQuery(sql, tenantID)
		if err == nil {
			t.Fatalf("expected rejection for %q", sql)
		}
		if api.AsError(err).Kind != api.KindValidationRejected {
			t.Errorf("expected validation_rejected for %q", sql)
		}
	}
}

func TestNonSelectRejected(t *testing.T) {
	cases := []string{
		"",
		"SHOW TABLES",
		"EXPLAIN SELECT 1",
	}
	for _, sql := range cases {
		if _, err := ValidateQuery(sql, tenantID); err == nil {
			t.Errorf("expected rejection for %q", sql)
		}
	}
}

func TestMultipleStatementsRejected(t *testing.T) {
	sql := "SELECT 1 FROM events WHERE tenant_id = 't-123'; SELECT 2"
	if _, err := ValidateQuery(sql, tenantID); err == nil {
		t.Error("expected rejection of multi-statement query")
	}
}

func TestWarningsNonFatal(t *testing.T) {
	sql := "SELECT count() FROM events WHERE tenant_id = 't-123'"
	warnings, err := ValidateQuery(sql, tenantID)
	if err != nil {
		t.Fatalf("warnings must not reject the query: %v", err)
	}
	if len(warnings) != 2 {
		t.Fatalf("expected LIMIT and time-filter warnings, got %v", warnings)
	}
}

func TestCTEAllowed(t *testing.T) {
	sql := "WITH totals AS (SELECT toDate(timestamp) AS day, count() AS c FROM events WHERE tenant_id = 't-123' GROUP BY day) SELECT day, c FROM totals ORDER BY day LIMIT 30"
	if _, err := ValidateQuery(sql, tenantID); err != nil {
		t.Errorf("CTE query rejected: %v", err)
	}
}
