// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings.
//
// # Configuration Structure
//
// Server settings:
//
//	PULSE_HOST="0.0.0.0"
//	PULSE_PORT="8080"
//	PULSE_HEALTH_PORT="9090"
//	PULSE_READ_TIMEOUT="15s"
//	PULSE_WRITE_TIMEOUT="30s"
//
// Event store settings:
//
//	PULSE_CLICKHOUSE_DSN="clickhouse://localhost:9000/pulse?dial_timeout=10s"
//	PULSE_CLICKHOUSE_MAX_OPEN_CONNS="50"
//	PULSE_CLICKHOUSE_WRITE_TIMEOUT="10s"
//
// Tenant/history database settings:
//
//	PULSE_POSTGRES_URL="postgres://localhost/pulse?sslmode=disable"
//
// Cache settings:
//
//	PULSE_REDIS_URL="redis://localhost:6379"
//	PULSE_RECENT_MAX_LEN="100"
//	PULSE_RECENT_TTL="1h"
//	PULSE_RESPONSE_CACHE_TTL="5m"
//
// Generation collaborator settings:
//
//	PULSE_OPENAI_API_KEY="sk-..."
//	PULSE_OPENAI_MODEL="gpt-4o-mini"
//	PULSE_OPENAI_TIMEOUT="20s"
//
// Ingestion and query settings:
//
//	PULSE_INGEST_EVENTS_PER_MINUTE="1000"
//	PULSE_QUERY_ROW_CAP="1000"
//
// # Usage
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
