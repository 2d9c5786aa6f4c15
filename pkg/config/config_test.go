package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.HealthPort != "9090" {
		t.Errorf("Expected default health port 9090, got %s", cfg.Server.HealthPort)
	}
	if cfg.Ingest.EventsPerMinute != 1000 {
		t.Errorf("Expected default event budget 1000/min, got %d", cfg.Ingest.EventsPerMinute)
	}
	if cfg.Query.RowCap != 1000 {
		t.Errorf("Expected default row cap 1000, got %d", cfg.Query.RowCap)
	}
	if cfg.Redis.RecentMaxLen != 100 {
		t.Errorf("Expected recent cache bound 100, got %d", cfg.Redis.RecentMaxLen)
	}
	if cfg.Redis.RecentTTL != time.Hour {
		t.Errorf("Expected recent cache TTL 1h, got %v", cfg.Redis.RecentTTL)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PULSE_PORT", "9999")
	t.Setenv("PULSE_INGEST_EVENTS_PER_MINUTE", "50")
	t.Setenv("PULSE_OPENAI_TIMEOUT", "5s")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Port != "9999" {
		t.Errorf("Expected port override 9999, got %s", cfg.Server.Port)
	}
	if cfg.Ingest.EventsPerMinute != 50 {
		t.Errorf("Expected rate budget override 50, got %d", cfg.Ingest.EventsPerMinute)
	}
	if cfg.LLM.Timeout != 5*time.Second {
		t.Errorf("Expected LLM timeout 5s, got %v", cfg.LLM.Timeout)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"same ports", func(c *Config) { c.Server.HealthPort = c.Server.Port }},
		{"empty clickhouse", func(c *Config) { c.ClickHouse.DSN = "" }},
		{"zero budget", func(c *Config) { c.Ingest.EventsPerMinute = 0 }},
		{"zero row cap", func(c *Config) { c.Query.RowCap = 0 }},
		{"llm timeout too long", func(c *Config) { c.LLM.Timeout = c.Server.WriteTimeout }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := LoadConfig()
			if err != nil {
				t.Fatalf("LoadConfig failed: %v", err)
			}
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}
