package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pulseboard/pulse/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	ClickHouse    ClickHouseConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	LLM           LLMConfig
	Ingest        IngestConfig
	Query         QueryConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// ClickHouseConfig holds event store configuration
type ClickHouseConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	WriteTimeout time.Duration
	QueryTimeout time.Duration
}

// PostgresConfig holds tenant/history database configuration
type PostgresConfig struct {
	URL      string
	MaxConns int
}

// RedisConfig holds cache configuration
type RedisConfig struct {
	URL        string
	Password   string
	DB         int
	MaxRetries int
	PoolSize   int

	RecentTTL      time.Duration
	RecentMaxLen   int
	ResponseTTL    time.Duration
	CacheEnabled   bool
	PublishTimeout time.Duration
}

// LLMConfig holds generation-collaborator configuration
type LLMConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// IngestConfig holds ingestion gateway configuration
type IngestConfig struct {
	EventsPerMinute int
	MaxBatchSize    int
}

// QueryConfig holds natural-language query configuration
type QueryConfig struct {
	MaxQuestionLength int
	RowCap            int
	TopEventNames     int
	GroundingWindow   time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("PULSE_HOST", "0.0.0.0"),
			Port:            getEnv("PULSE_PORT", "8080"),
			ReadTimeout:     getEnvDuration("PULSE_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("PULSE_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("PULSE_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("PULSE_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("PULSE_HEALTH_PORT", "9090"),
		},
		ClickHouse: ClickHouseConfig{
			DSN:          getEnv("PULSE_CLICKHOUSE_DSN", "clickhouse://localhost:9000/pulse?dial_timeout=10s"),
			MaxOpenConns: getEnvInt("PULSE_CLICKHOUSE_MAX_OPEN_CONNS", 50),
			MaxIdleConns: getEnvInt("PULSE_CLICKHOUSE_MAX_IDLE_CONNS", 5),
			WriteTimeout: getEnvDuration("PULSE_CLICKHOUSE_WRITE_TIMEOUT", 10*time.Second),
			QueryTimeout: getEnvDuration("PULSE_CLICKHOUSE_QUERY_TIMEOUT", 30*time.Second),
		},
		Postgres: PostgresConfig{
			URL:      getEnv("PULSE_POSTGRES_URL", "postgres://localhost/pulse?sslmode=disable"),
			MaxConns: getEnvInt("PULSE_POSTGRES_MAX_CONNS", 20),
		},
		Redis: RedisConfig{
			URL:            getEnv("PULSE_REDIS_URL", "redis://localhost:6379"),
			Password:       getEnv("PULSE_REDIS_PASSWORD", ""),
			DB:             getEnvInt("PULSE_REDIS_DB", 0),
			MaxRetries:     getEnvInt("PULSE_REDIS_MAX_RETRIES", 3),
			PoolSize:       getEnvInt("PULSE_REDIS_POOL_SIZE", 10),
			RecentTTL:      getEnvDuration("PULSE_RECENT_TTL", time.Hour),
			RecentMaxLen:   getEnvInt("PULSE_RECENT_MAX_LEN", 100),
			ResponseTTL:    getEnvDuration("PULSE_RESPONSE_CACHE_TTL", 5*time.Minute),
			CacheEnabled:   getEnvBool("PULSE_CACHE_ENABLED", true),
			PublishTimeout: getEnvDuration("PULSE_CACHE_PUBLISH_TIMEOUT", 2*time.Second),
		},
		LLM: LLMConfig{
			APIKey:    getEnv("PULSE_OPENAI_API_KEY", ""),
			BaseURL:   getEnv("PULSE_OPENAI_BASE_URL", ""),
			Model:     getEnv("PULSE_OPENAI_MODEL", "gpt-4o-mini"),
			MaxTokens: getEnvInt("PULSE_OPENAI_MAX_TOKENS", 800),
			Timeout:   getEnvDuration("PULSE_OPENAI_TIMEOUT", 20*time.Second),
		},
		Ingest: IngestConfig{
			EventsPerMinute: getEnvInt("PULSE_INGEST_EVENTS_PER_MINUTE", 1000),
			MaxBatchSize:    getEnvInt("PULSE_INGEST_MAX_BATCH_SIZE", 500),
		},
		Query: QueryConfig{
			MaxQuestionLength: getEnvInt("PULSE_QUERY_MAX_QUESTION_LENGTH", 500),
			RowCap:            getEnvInt("PULSE_QUERY_ROW_CAP", 1000),
			TopEventNames:     getEnvInt("PULSE_QUERY_TOP_EVENT_NAMES", 10),
			GroundingWindow:   getEnvDuration("PULSE_QUERY_GROUNDING_WINDOW", 7*24*time.Hour),
		},
		Observability: ObservabilityConfig{
			LogLevel:       parseLogLevel(getEnv("PULSE_LOG_LEVEL", "info")),
			MetricsEnabled: getEnvBool("PULSE_METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.ClickHouse.DSN == "" {
		return fmt.Errorf("clickhouse DSN is required")
	}
	if c.Postgres.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Ingest.EventsPerMinute <= 0 {
		return fmt.Errorf("ingest events per minute must be positive")
	}
	if c.Ingest.MaxBatchSize <= 0 {
		return fmt.Errorf("ingest max batch size must be positive")
	}
	if c.Query.RowCap <= 0 {
		return fmt.Errorf("query row cap must be positive")
	}
	if c.LLM.Timeout >= c.Server.WriteTimeout {
		return fmt.Errorf("LLM timeout must be shorter than the server write timeout")
	}
	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
