package idempotency

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/Selbihan/Codifya-ERP-sub000/internal/domain"
)

const (
	defaultCleanupInterval = 1 * time.Minute
	defaultCleanupBatch    = 500
)

var (
	cleanupRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "erp_idempotency_cleanup_runs_total",
		Help: "Total number of idempotency cleanup runs grouped by result.",
	}, []string{"result"})
	cleanupDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "erp_idempotency_cleanup_deleted_total",
		Help: "Total number of expired idempotency records deleted.",
	})
)

// CleanupWorker удаляет протухшие idempotency-записи по TTL.
type CleanupWorker struct {
	repo      domain.IdempotencyRepository
	logger    *log.Entry
	interval  time.Duration
	batchSize int
}

// NewCleanupWorker создаёт cleanup worker для idempotency-ключей.
func NewCleanupWorker(repo domain.IdempotencyRepository, logger *log.Entry, interval time.Duration, batchSize int) *CleanupWorker {
	if logger == nil {
		logger = log.WithField("component", "idempotency-cleanup")
	}
	if interval <= 0 {
		interval = defaultCleanupInterval
	}
	if batchSize <= 0 {
		batchSize = defaultCleanupBatch
	}
	return &CleanupWorker{
		repo:      repo,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run запускает периодическую очистку до отмены ctx.
func (w *CleanupWorker) Run(ctx context.Context) {
	if w.repo == nil {
		w.logger.Warn("idempotency cleanup is disabled: repo is nil")
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.cleanup(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.cleanup(ctx)
		}
	}
}

func (w *CleanupWorker) cleanup(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	total := 0
	for {
		deleted, err := w.repo.DeleteExpired(time.Now(), w.batchSize)
		if err != nil {
			cleanupRuns.WithLabelValues("error").Inc()
			w.logger.WithError(err).Warn("failed to delete expired idempotency records")
			return
		}
		total += deleted
		cleanupDeleted.Add(float64(deleted))
		if deleted < w.batchSize || ctx.Err() != nil {
			break
		}
	}

	cleanupRuns.WithLabelValues("ok").Inc()
	if total > 0 {
		w.logger.WithField("deleted", total).Info("expired idempotency records removed")
	}
}
