package domain

import "time"

// Типы событий timeline заказа.
const (
	TimelineEventOrderCreated       = "OrderCreated"
	TimelineEventOrderStatusChanged = "OrderStatusChanged"
	TimelineEventOrderDeleted       = "OrderDeleted"
)

// TimelineEvent описывает событие в жизненном цикле заказа.
type TimelineEvent struct {
	OrderID string
	Type    string
	// Status — статус заказа на момент события.
	Status OrderStatus
	// Reason хранит контекст перехода, например "PENDING -> CONFIRMED".
	Reason   string
	Occurred time.Time
}
