package domain

import "time"

// OrderStatus описывает жизненный цикл заказа в ERP.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, подтверждение ещё не получено.
	OrderStatusPending OrderStatus = "PENDING"
	// OrderStatusConfirmed — заказ подтверждён и ожидает обработки.
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	// OrderStatusProcessing — заказ комплектуется.
	OrderStatusProcessing OrderStatus = "PROCESSING"
	// OrderStatusShipped — заказ передан в доставку.
	OrderStatusShipped OrderStatus = "SHIPPED"
	// OrderStatusDelivered — заказ доставлен клиенту (терминальный статус).
	OrderStatusDelivered OrderStatus = "DELIVERED"
	// OrderStatusCancelled — заказ отменён (терминальный статус).
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// AllOrderStatuses перечисляет статусы в порядке жизненного цикла.
// Используется статистикой и проверками на границе API.
var AllOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal сообщает, допускает ли статус дальнейшие переходы.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	// ID позиции нужен для однозначной идентификации и аудита.
	ID string
	// ProductID — внешний идентификатор товара.
	ProductID string
	// Quantity — количество единиц товара.
	Quantity int32
	// Price — цена за единицу на момент оформления заказа.
	Price float64
	// Total — производное значение Quantity * Price; не принимается от клиента.
	Total float64
	// CreatedAt фиксирует момент добавления позиции в заказ.
	CreatedAt time.Time
}

// Order агрегирует состояние заказа и его позиции.
type Order struct {
	ID          string
	OrderNumber string
	CustomerID  string
	Status      OrderStatus
	Items       []OrderItem
	// TotalAmount — производная сумма: Σ(qty*price) - discount + tax.
	TotalAmount float64
	TaxAmount   float64
	Discount    float64
	Notes       string
	OrderDate   time.Time
	CreatedBy   string
	// Version используется для optimistic locking при сохранении.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}
