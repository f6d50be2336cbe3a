package memory

import (
	"sync"
	"time"

	"github.com/Selbihan/Codifya-ERP-sub000/internal/domain"
)

// idempotencyRepositoryInMemory — in-memory хранилище idempotency-ключей.
type idempotencyRepositoryInMemory struct {
	mu      sync.Mutex
	records map[string]domain.IdempotencyRecord
}

// NewIdempotencyRepository создаёт in-memory реализацию IdempotencyRepository.
func NewIdempotencyRepository() domain.IdempotencyRepository {
	return &idempotencyRepositoryInMemory{records: make(map[string]domain.IdempotencyRecord)}
}

// CreateProcessing регистрирует ключ со статусом processing.
// Занятый непросроченный ключ возвращается вместе с ErrIdempotencyConflict.
func (r *idempotencyRepositoryInMemory) CreateProcessing(key, requestHash string, expiresAt time.Time) (domain.IdempotencyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := r.records[key]; ok && existing.ExpiresAt.After(now) {
		return existing, domain.ErrIdempotencyConflict
	}

	record := domain.IdempotencyRecord{
		Key:         key,
		RequestHash: requestHash,
		Status:      domain.IdempotencyStatusProcessing,
		ExpiresAt:   expiresAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.records[key] = record
	return record, nil
}

// Get возвращает запись или ErrIdempotencyNotFound.
func (r *idempotencyRepositoryInMemory) Get(key string) (domain.IdempotencyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[key]
	if !ok {
		return domain.IdempotencyRecord{}, domain.ErrIdempotencyNotFound
	}
	return record, nil
}

// MarkDone сохраняет успешный ответ для повторной выдачи.
func (r *idempotencyRepositoryInMemory) MarkDone(key string, responseBody []byte, httpStatus int) error {
	return r.mark(key, domain.IdempotencyStatusDone, responseBody, httpStatus)
}

// MarkFailed сохраняет ответ завершившейся ошибкой обработки.
func (r *idempotencyRepositoryInMemory) MarkFailed(key string, responseBody []byte, httpStatus int) error {
	return r.mark(key, domain.IdempotencyStatusFailed, responseBody, httpStatus)
}

func (r *idempotencyRepositoryInMemory) mark(key string, status domain.IdempotencyStatus, body []byte, httpStatus int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[key]
	if !ok {
		return domain.ErrIdempotencyNotFound
	}
	record.Status = status
	record.ResponseBody = body
	record.HTTPStatus = httpStatus
	record.UpdatedAt = time.Now().UTC()
	r.records[key] = record
	return nil
}

// DeleteExpired удаляет до limit записей с expiresAt <= before.
func (r *idempotencyRepositoryInMemory) DeleteExpired(before time.Time, limit int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 {
		limit = 500
	}

	deleted := 0
	for key, record := range r.records {
		if record.ExpiresAt.After(before) {
			continue
		}
		delete(r.records, key)
		deleted++
		if deleted >= limit {
			break
		}
	}
	return deleted, nil
}

var _ domain.IdempotencyRepository = (*idempotencyRepositoryInMemory)(nil)
