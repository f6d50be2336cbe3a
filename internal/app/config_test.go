package app

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("http addr = %s, want :8080", cfg.HTTPAddr)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Fatalf("metrics addr = %s, want :9090", cfg.MetricsAddr)
	}
	if cfg.PostgresDSN != "" || cfg.KafkaBrokers != "" {
		t.Fatal("external dependencies must be off by default")
	}
	if cfg.IdempotencyTTL != 24*time.Hour {
		t.Fatalf("idempotency ttl = %v, want 24h", cfg.IdempotencyTTL)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("ERP_HTTP_ADDR", ":18080")
	t.Setenv("ERP_METRICS_ADDR", ":19090")
	t.Setenv("ERP_POSTGRES_DSN", "postgres://localhost/erp")
	t.Setenv("ERP_KAFKA_BROKERS", "localhost:9092,localhost:9093")
	t.Setenv("ERP_OUTBOX_POLL_INTERVAL", "250ms")
	t.Setenv("ERP_IDEMPOTENCY_TTL", "3600")

	cfg := LoadConfig()

	if cfg.HTTPAddr != ":18080" {
		t.Fatalf("http addr = %s", cfg.HTTPAddr)
	}
	if cfg.MetricsAddr != ":19090" {
		t.Fatalf("metrics addr = %s", cfg.MetricsAddr)
	}
	if cfg.PostgresDSN != "postgres://localhost/erp" {
		t.Fatalf("dsn = %s", cfg.PostgresDSN)
	}
	if cfg.KafkaBrokers != "localhost:9092,localhost:9093" {
		t.Fatalf("brokers = %s", cfg.KafkaBrokers)
	}
	if cfg.OutboxPollInterval != 250*time.Millisecond {
		t.Fatalf("poll interval = %v", cfg.OutboxPollInterval)
	}
	// Число без суффикса трактуется как секунды.
	if cfg.IdempotencyTTL != time.Hour {
		t.Fatalf("idempotency ttl = %v", cfg.IdempotencyTTL)
	}
}

func TestLoadConfig_InvalidDurationIgnored(t *testing.T) {
	t.Setenv("ERP_OUTBOX_POLL_INTERVAL", "soon")

	cfg := LoadConfig()
	if cfg.OutboxPollInterval != DefaultConfig().OutboxPollInterval {
		t.Fatalf("poll interval = %v, want default", cfg.OutboxPollInterval)
	}
}
