package nlquery

import (
	"strings"

	"github.com/pulseboard/pulse/pkg/api"
)

// ExtractSQL pulls the SQL statement out of a model response. Models are
// asked for bare SQL but still wrap answers in markdown fences or prefix
// them with prose, so the extractor tolerates both: a fenced block wins,
// otherwise the response is scanned for the first SELECT.
func ExtractSQL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", api.NewGenerationError("model returned an empty response")
	}

	if fenced, ok := extractFenced(raw); ok {
		raw = fenced
	}

	idx := indexFold(raw, "select")
	if idx < 0 {
		return "", api.NewGenerationError("no SELECT statement found in model response")
	}
	sql := strings.TrimSpace(raw[idx:])
	// Drop trailing prose after the final semicolon, then the semicolon
	// itself so the validator sees exactly one bare statement.
	if end := strings.Index(sql, ";"); end >= 0 {
		sql = strings.TrimSpace(sql[:end])
	}
	return sql, nil
}

// extractFenced returns the body of the first ``` block, tolerating an
// optional language tag on the opening fence.
func extractFenced(s string) (string, bool) {
	open := strings.Index(s, "```")
	if open < 0 {
		return "", false
	}
	rest := s[open+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		firstLine := strings.TrimSpace(rest[:nl])
		// "```sql" style language tag
		if firstLine != "" && !strings.ContainsAny(firstLine, " \t") && len(firstLine) <= 10 {
			rest = rest[nl+1:]
		}
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return strings.TrimSpace(rest), true
	}
	return strings.TrimSpace(rest[:end]), true
}

// indexFold is strings.Index with ASCII case folding.
func indexFold(s, substr string) int {
	return strings.Index(strings.ToLower(s), strings.ToLower(substr))
}
