package eventstore

// SchemaSQL creates the events table. Time-partitioned MergeTree ordered by
// tenant then timestamp, matching the access patterns of every read path.
const SchemaSQL = `
CREATE TABLE IF NOT EXISTS events (
    id         String,
    tenant_id  String,
    user_id    String,
    session_id String,
    event_name String,
    properties String,
    timestamp  DateTime64(3),
    platform   String,
    ip_address String,
    user_agent String
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(timestamp)
ORDER BY (tenant_id, timestamp);
`

// StatsDailySQL creates the daily rollup table written by the aggregator job.
const StatsDailySQL = `
CREATE TABLE IF NOT EXISTS event_stats_daily (
    tenant_id    String,
    date         Date,
    event_name   String,
    event_count  UInt64,
    unique_users UInt64
) ENGINE = SummingMergeTree()
PARTITION BY toYYYYMM(date)
ORDER BY (tenant_id, date, event_name);
`

// SchemaDescription documents the queryable columns for natural-language
// query generation. Only columns listed here may appear in generated SQL.
const SchemaDescription = `Table: events
Columns:
  id         String       -- unique event id
  tenant_id  String       -- tenant scope, REQUIRED filter on every query
  user_id    String       -- user identifier (anonymous ids prefixed "anon:")
  session_id String       -- groups events from one client session
  event_name String       -- e.g. "page_view", "button_click"
  properties String       -- JSON object of scalar properties; use JSONExtractString(properties, 'key')
  timestamp  DateTime64(3)
  platform   String       -- one of: web, android, ios`
