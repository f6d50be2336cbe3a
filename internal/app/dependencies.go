package app

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/Selbihan/Codifya-ERP-sub000/internal/domain"
	"github.com/Selbihan/Codifya-ERP-sub000/internal/storage/memory"
	"github.com/Selbihan/Codifya-ERP-sub000/internal/storage/postgres"
)

// Dependencies содержит хранилища приложения.
type Dependencies struct {
	Orders      domain.OrderRepository
	Outbox      domain.OutboxRepository
	Timeline    domain.TimelineRepository
	Idempotency domain.IdempotencyRepository
	Logger      *log.Entry

	store *postgres.Store
}

// NewDependencies выбирает хранилище по DSN: пустой DSN означает in-memory.
// Для postgres применяются pending-миграции.
func NewDependencies(ctx context.Context, dsn string, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	if dsn == "" {
		logger.Info("using in-memory storage")
		return &Dependencies{
			Orders:      memory.NewOrderRepository(),
			Outbox:      memory.NewOutboxRepository(),
			Timeline:    memory.NewTimelineRepository(),
			Idempotency: memory.NewIdempotencyRepository(),
			Logger:      logger,
		}, nil
	}

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	logger.Info("using postgres storage")
	return &Dependencies{
		Orders:      postgres.NewOrderRepository(store),
		Outbox:      postgres.NewOutboxRepository(store),
		Timeline:    postgres.NewTimelineRepository(store),
		Idempotency: postgres.NewIdempotencyRepository(store),
		Logger:      logger,
		store:       store,
	}, nil
}

// PingStorage проверяет доступность хранилища; для in-memory всегда nil.
func (d *Dependencies) PingStorage(ctx context.Context) error {
	if d.store == nil {
		return nil
	}
	return d.store.Ping(ctx)
}

// Close освобождает ресурсы хранилища.
func (d *Dependencies) Close() error {
	if d.store == nil {
		return nil
	}
	return d.store.Close()
}
