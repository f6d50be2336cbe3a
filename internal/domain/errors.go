package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidOrderData — некорректные аргументы вызова (пустой id и т.п.),
	// нарушение контракта вызывающей стороны, а не бизнес-правила.
	ErrInvalidOrderData = errors.New("invalid order data")
	// ErrOrderValidation — нарушение бизнес-правила: неверные значения полей,
	// пустой список позиций, недопустимый переход статуса, запрет удаления.
	ErrOrderValidation = errors.New("order validation failed")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")
	// ErrOrderNumberTaken — номер заказа уже занят другим заказом.
	ErrOrderNumberTaken = errors.New("order number already taken")
	// ErrIdempotencyConflict — idempotency-key уже используется с другим запросом.
	ErrIdempotencyConflict = errors.New("idempotency key conflict")
	// ErrIdempotencyNotFound — запись с таким idempotency-key отсутствует.
	ErrIdempotencyNotFound = errors.New("idempotency record not found")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// ValidationErrorf оборачивает ErrOrderValidation сообщением,
// называющим конкретное поле или позицию заказа.
func ValidationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrOrderValidation, fmt.Sprintf(format, args...))
}

// InvalidDataErrorf оборачивает ErrInvalidOrderData сообщением о некорректном аргументе.
func InvalidDataErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidOrderData, fmt.Sprintf(format, args...))
}

// IsNotFound проверяет, является ли ошибка отсутствием заказа.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound)
}

// IsValidation проверяет, является ли ошибка нарушением бизнес-правила.
func IsValidation(err error) bool {
	return errors.Is(err, ErrOrderValidation)
}

// IsInvalidData проверяет, является ли ошибка нарушением контракта вызова.
func IsInvalidData(err error) bool {
	return errors.Is(err, ErrInvalidOrderData)
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}
