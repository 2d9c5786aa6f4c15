package nlquery

import (
	"testing"

	"github.com/pulseboard/pulse/pkg/api"
)

func TestExtractBareSQL(t *testing.T) {
	sql, err := ExtractSQL("SELECT count() FROM events WHERE tenant_id = 't-1'")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if sql != "SELECT count() FROM events WHERE tenant_id = 't-1'" {
		t.Errorf("unexpected sql %q", sql)
	}
}

func TestExtractFencedSQL(t *testing.T) {
	raw := "Here is the query:\n```sql\nSELECT count() FROM events\nWHERE tenant_id = 't-1'\n```\nLet me know if you need anything else."
	sql, err := ExtractSQL(raw)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	want := "SELECT count() FROM events\nWHERE tenant_id = 't-1'"
	if sql != want {
		t.Errorf("got %q, want %q", sql, want)
	}
}

func TestExtractFenceWithoutLanguageTag(t *testing.T) {
	raw := "```\nSELECT 1\n```"
	sql, err := ExtractSQL(raw)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if sql != "SELECT 1" {
		t.Errorf("got %q", sql)
	}
}

func TestExtractWithLeadingProse(t *testing.T) {
	raw := "Sure! The query you want is select count() from events where tenant_id = 't-1'"
	sql, err := ExtractSQL(raw)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if sql != "select count() from events where tenant_id = 't-1'" {
		t.Errorf("got %q", sql)
	}
}

func TestExtractStripsTrailingSemicolon(t *testing.T) {
	sql, err := ExtractSQL("SELECT 1;")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if sql != "SELECT 1" {
		t.Errorf("got %q", sql)
	}
}

func TestExtractNoSelect(t *testing.T) {
	for _, raw := range []string{"", "I cannot answer that question.", "```sql\n-- nothing\n```"} {
		_, err := ExtractSQL(raw)
		if err == nil {
			t.Errorf("expected generation error for %q", raw)
			continue
		}
		if api.AsError(err).Kind != api.KindGeneration {
			t.Errorf("expected generation kind for %q, got %s", raw, api.AsError(err).Kind)
		}
	}
}
