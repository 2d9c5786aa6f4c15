package nlquery

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pulseboard/pulse/pkg/api"
)

// mutatingKeywords are rejected wherever they appear in the statement,
// including inside string literals and comments. A keyword smuggled into a
// literal is harmless to ClickHouse but its presence means the model
// produced something we did not ask for, and over-rejecting here is the
// safe direction: the query never runs.
var mutatingKeywords = []string{
	"insert", "update", "delete", "drop", "alter", "create", "truncate",
	"rename", "attach", "detach", "optimize", "grant", "revoke", "system",
}

var keywordPatterns = func() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(mutatingKeywords))
	for i, kw := range mutatingKeywords {
		patterns[i] = regexp.MustCompile(`(?i)\b` + kw + `\b`)
	}
	return patterns
}()

var (
	tenantFilterPattern = `(?i)\btenant_id\s*=\s*'%s'`
	timeFilterPattern   = regexp.MustCompile(`(?i)\btimestamp\b|\btoDate\b|\byesterday\(\)|\btoday\(\)`)
	limitPattern        = regexp.MustCompile(`(?i)\blimit\s+\d+`)
)

// ValidateQuery is the mandatory gate between generation and execution.
// It never rewrites the statement: anything suspicious is rejected with the
// offending query attached, and the caller must not execute it. The tenant
// filter check is textual rather than a full parse, which over-rejects
// exotic but legitimate SQL; that trade is intentional.
func ValidateQuery(sqlText, tenantID string) ([]string, error) {
	trimmed := strings.TrimSpace(sqlText)
	if trimmed == "" {
		return nil, api.NewValidationRejectedError("empty query", sqlText)
	}

	if !strings.HasPrefix(strings.ToLower(trimmed), "select") &&
		!strings.HasPrefix(strings.ToLower(trimmed), "with") {
		return nil, api.NewValidationRejectedError("only SELECT statements are allowed", sqlText)
	}

	// One statement only. The extractor strips the trailing semicolon, so
	// any remaining semicolon means a second statement was smuggled in.
	if strings.Contains(trimmed, ";") {
		return nil, api.NewValidationRejectedError("multiple statements are not allowed", sqlText)
	}

	for i, pattern := range keywordPatterns {
		if pattern.MatchString(trimmed) {
			return nil, api.NewValidationRejectedError(
				fmt.Sprintf("forbidden keyword %q", mutatingKeywords[i]), sqlText)
		}
	}

	tenantRe := regexp.MustCompile(fmt.Sprintf(tenantFilterPattern, regexp.QuoteMeta(tenantID)))
	if !tenantRe.MatchString(trimmed) {
		return nil, api.NewValidationRejectedError(
			"query must filter on tenant_id = '"+tenantID+"'", sqlText)
	}

	var warnings []string
	if !limitPattern.MatchString(trimmed) {
		warnings = append(warnings, "query has no LIMIT clause; results are capped")
	}
	if !timeFilterPattern.MatchString(trimmed) {
		warnings = append(warnings, "query has no time filter; it scans all history")
	}
	return warnings, nil
}
