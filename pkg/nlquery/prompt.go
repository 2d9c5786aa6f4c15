package nlquery

import (
	"fmt"
	"strings"

	"github.com/pulseboard/pulse/pkg/eventstore"
)

const systemPrompt = `You are a SQL generator for a ClickHouse web analytics database.
Rules:
- Respond with exactly one SQL SELECT statement and nothing else. No prose, no explanation.
- Only reference the documented tables and columns.
- Every query MUST filter on tenant_id with the literal value provided.
- Prefer an explicit time filter and a LIMIT clause.
- Never modify data.`

// canonical question/SQL pairs keep small models on the rails. Each answer
// is exactly the shape the validator accepts.
var promptExamples = []struct {
	question string
	sql      string
}{
	{
		question: "How many page views did we get yesterday?",
		sql: "SELECT count() AS page_views FROM events WHERE tenant_id = '%TENANT%' " +
			"AND event_name = 'page_view' AND timestamp >= yesterday() AND timestamp < today()",
	},
	{
		question: "What are the top 5 pages this week?",
		sql: "SELECT JSONExtractString(properties, 'path') AS page, count() AS views FROM events " +
			"WHERE tenant_id = '%TENANT%' AND event_name = 'page_view' AND timestamp >= now() - INTERVAL 7 DAY " +
			"GROUP BY page ORDER BY views DESC LIMIT 5",
	},
	{
		question: "Show daily active users for the last 30 days",
		sql: "SELECT toDate(timestamp) AS day, uniq(user_id) AS active_users FROM events " +
			"WHERE tenant_id = '%TENANT%' AND timestamp >= now() - INTERVAL 30 DAY " +
			"GROUP BY day ORDER BY day LIMIT 30",
	},
}

// BuildPrompt assembles the grounding context for one question: the schema
// documentation, the tenant's most frequent event names from the last week,
// and the canonical examples rewritten for this tenant.
func BuildPrompt(tenantID, question string, topEvents []string) string {
	var b strings.Builder

	b.WriteString(eventstore.SchemaDescription)
	b.WriteString("\n")

	if len(topEvents) > 0 {
		b.WriteString("Event names seen for this tenant in the last 7 days: ")
		b.WriteString(strings.Join(topEvents, ", "))
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "tenant_id to filter on: '%s'\n\nExamples:\n", tenantID)
	for _, ex := range promptExamples {
		sql := strings.ReplaceAll(ex.sql, "%TENANT%", tenantID)
		fmt.Fprintf(&b, "Q: %s\nSQL: %s\n\n", ex.question, sql)
	}

	fmt.Fprintf(&b, "Q: %s\nSQL:", question)
	return b.String()
}
