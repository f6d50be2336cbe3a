package app

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config описывает настройки запуска приложения.
type Config struct {
	// HTTPAddr — адрес основного REST API.
	HTTPAddr string
	// MetricsAddr — отдельный слушатель для /metrics и health checks.
	MetricsAddr string
	// PostgresDSN пустой означает in-memory хранилище.
	PostgresDSN string
	// KafkaBrokers пустой означает работу без брокера (outbox копится).
	KafkaBrokers string
	// OutboxPollInterval — период опроса transactional outbox.
	OutboxPollInterval time.Duration
	// IdempotencyTTL — время жизни idempotency-ключей.
	IdempotencyTTL time.Duration
	// ShutdownTimeout — таймаут graceful shutdown HTTP-серверов.
	ShutdownTimeout time.Duration
}

// DefaultConfig возвращает базовые значения конфигурации.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:           ":8080",
		MetricsAddr:        ":9090",
		OutboxPollInterval: 1 * time.Second,
		IdempotencyTTL:     24 * time.Hour,
		ShutdownTimeout:    5 * time.Second,
	}
}

// LoadConfig читает конфигурацию из окружения поверх значений по умолчанию.
// Переменные из .env подхватываются, если файл существует.
func LoadConfig() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Debug("skipping .env file")
	}

	cfg := DefaultConfig()
	if v := os.Getenv("ERP_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("ERP_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("ERP_POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := os.Getenv("ERP_KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = v
	}
	if d, ok := envDuration("ERP_OUTBOX_POLL_INTERVAL"); ok {
		cfg.OutboxPollInterval = d
	}
	if d, ok := envDuration("ERP_IDEMPOTENCY_TTL"); ok {
		cfg.IdempotencyTTL = d
	}
	if d, ok := envDuration("ERP_SHUTDOWN_TIMEOUT"); ok {
		cfg.ShutdownTimeout = d
	}
	return cfg
}

// envDuration читает duration ("30s") либо число секунд ("30").
func envDuration(name string) (time.Duration, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d, true
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second, true
	}
	log.WithField("name", name).WithField("value", raw).Warn("invalid duration value, using default")
	return 0, false
}
