package domain

import "time"

const (
	// DefaultPage — страница по умолчанию при листинге заказов.
	DefaultPage = 1
	// DefaultPageLimit — размер страницы по умолчанию.
	DefaultPageLimit = 10
)

// OrderFilters описывает фильтры листинга. Фильтры компилируются в запрос
// хранилища: полная выборка с фильтрацией в памяти не допускается.
type OrderFilters struct {
	// Search матчится по номеру заказа и примечаниям (подстрока, без регистра).
	Search     string
	CustomerID string
	Status     OrderStatus
	// DateFrom/DateTo задают включительный диапазон по OrderDate.
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	Limit    int
}

// Normalize возвращает фильтры с подставленными значениями пагинации по умолчанию.
func (f OrderFilters) Normalize() OrderFilters {
	if f.Page <= 0 {
		f.Page = DefaultPage
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageLimit
	}
	return f
}

// Offset возвращает смещение выборки для нормализованных фильтров.
func (f OrderFilters) Offset() int {
	return (f.Page - 1) * f.Limit
}

// OrderPage — страница результата листинга.
type OrderPage struct {
	Items      []Order
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

// OrderStatistics агрегирует количество заказов по статусам.
type OrderStatistics struct {
	Total      int
	Pending    int
	Confirmed  int
	Processing int
	Shipped    int
	Delivered  int
	Cancelled  int
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет заказ вместе с позициями как единое целое.
	// Возвращает ErrOrderNumberTaken при коллизии номера заказа.
	Create(order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound.
	Get(id string) (Order, error)
	// GetByNumber возвращает заказ по бизнес-ключу или ErrOrderNotFound.
	GetByNumber(orderNumber string) (Order, error)
	// List возвращает страницу заказов и общее число записей под фильтрами.
	List(filters OrderFilters) ([]Order, int, error)
	// ListByCustomer возвращает заказы клиента, свежие первыми,
	// с опциональным ограничением на количество.
	ListByCustomer(customerID string, limit int) ([]Order, error)
	// Save применяет обновления к заказу с учётом optimistic locking:
	// запись с устаревшей версией отклоняется с ErrOrderVersionConflict.
	Save(order Order) error
	// Delete удаляет заказ при совпадении версии и возвращает удалённый снимок.
	Delete(id string, version int64) (Order, error)
	// CountByStatus возвращает количество заказов в разрезе статусов.
	CountByStatus() (map[OrderStatus]int, error)
}
