package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/Selbihan/Codifya-ERP-sub000/internal/health"
	"github.com/Selbihan/Codifya-ERP-sub000/internal/messaging/kafka"
	"github.com/Selbihan/Codifya-ERP-sub000/internal/metrics"
	"github.com/Selbihan/Codifya-ERP-sub000/internal/service/idempotency"
	"github.com/Selbihan/Codifya-ERP-sub000/internal/service/order"
	"github.com/Selbihan/Codifya-ERP-sub000/internal/service/outbox"
	"github.com/Selbihan/Codifya-ERP-sub000/internal/service/rest"
	"github.com/Selbihan/Codifya-ERP-sub000/internal/version"
)

const storagePingTimeout = 2 * time.Second

// Run собирает зависимости и держит сервис до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg.PostgresDSN, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := deps.Close(); closeErr != nil {
			logger.WithError(closeErr).Warn("failed to close storage")
		}
	}()

	// Kafka опционален: без брокера события копятся в outbox.
	producer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(producer, logger)

	orderMetrics := metrics.NewOrderMetrics()
	svc := order.NewService(
		deps.Orders,
		deps.Timeline,
		deps.Outbox,
		orderMetrics,
		logger.WithField("layer", "service"),
	)

	var wg sync.WaitGroup
	if producer != nil {
		publisher := kafka.NewOutboxPublisher(producer, kafka.TopicOrderEvents)
		dlq := kafka.NewDLQPublisher(producer, kafka.TopicOrderEvents, kafka.TopicDeadLetterQueue)
		worker := outbox.NewWorker(deps.Outbox, publisher,
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
			outbox.WithDLQPublisher(dlq),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(ctx)
		}()
	}

	cleanupWorker := idempotency.NewCleanupWorker(deps.Idempotency, nil, 0, 0)
	wg.Add(1)
	go func() {
		defer wg.Done()
		cleanupWorker.Run(ctx)
	}()

	v, _, _ := version.Info()
	healthHandler := healthcheck.NewHandler(v)
	healthHandler.Register(healthcheck.NewChecker("storage", func() error {
		pingCtx, cancel := context.WithTimeout(context.Background(), storagePingTimeout)
		defer cancel()
		return deps.PingStorage(pingCtx)
	}))
	// Без Kafka сервис работает в ограниченном режиме: события копятся в outbox.
	healthHandler.Register(healthcheck.NewOptionalChecker("kafka", func() error {
		if producer == nil {
			return errors.New("kafka producer is not configured")
		}
		return nil
	}))

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	restHandler := rest.NewHandler(svc, deps.Idempotency, cfg.IdempotencyTTL, logger.WithField("layer", "rest"))
	restHandler.Register(e)

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP сервер слушает %s", cfg.HTTPAddr)
		errCh <- e.Start(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("http shutdown with error")
		}
		shutdownHTTP(metricsSrv, cfg.ShutdownTimeout, logger)
		wg.Wait()
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, cfg.ShutdownTimeout, logger)
		wg.Wait()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer запускает отдельный слушатель для /metrics и health checks.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, 5*time.Second, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, timeout time.Duration, logger *log.Entry) {
	if srv == nil {
		return
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
