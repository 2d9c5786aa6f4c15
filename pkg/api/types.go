package api

import "time"

// IngestAck acknowledges an accepted ingestion request.
type IngestAck struct {
	Accepted   int       `json:"accepted"`
	ReceivedAt time.Time `json:"received_at"`
}

// Visualization is the suggested rendering for a query result.
type Visualization string

const (
	VisualizationLine  Visualization = "line"
	VisualizationBar   Visualization = "bar"
	VisualizationTable Visualization = "table"
)

// QueryAnswer is the response envelope for a natural-language query.
type QueryAnswer struct {
	Query           string          `json:"query"`
	Columns         []string        `json:"columns"`
	Data            [][]interface{} `json:"data"`
	Insights        []string        `json:"insights"`
	Visualization   Visualization   `json:"visualization"`
	Warnings        []string        `json:"warnings,omitempty"`
	ExecutionTimeMs int64           `json:"execution_time_ms"`
}
