package memory

import (
	"sort"
	"strings"
	"sync"

	"github.com/Selbihan/Codifya-ERP-sub000/internal/domain"
)

// orderRepositoryInMemory — in-memory реализация OrderRepository
// для локальной разработки и тестов. Optimistic locking эмулируется
// сравнением версии, уникальность номера — отдельным индексом.
type orderRepositoryInMemory struct {
	mu      sync.RWMutex
	items   map[string]domain.Order
	numbers map[string]string
}

// NewOrderRepository возвращает in-memory репозиторий заказов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		items:   make(map[string]domain.Order),
		numbers: make(map[string]string),
	}
}

// Create сохраняет новый заказ, если ID и номер ещё не заняты.
func (r *orderRepositoryInMemory) Create(order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[order.ID]; exists {
		return domain.InvalidDataErrorf("order id already exists")
	}
	if _, taken := r.numbers[order.OrderNumber]; taken {
		return domain.ErrOrderNumberTaken
	}

	r.items[order.ID] = cloneOrder(order)
	r.numbers[order.OrderNumber] = order.ID
	return nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) Get(id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

// GetByNumber возвращает заказ по бизнес-ключу.
func (r *orderRepositoryInMemory) GetByNumber(orderNumber string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.numbers[orderNumber]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(r.items[id]), nil
}

// List применяет фильтры и пагинацию, свежие заказы первыми.
func (r *orderRepositoryInMemory) List(filters domain.OrderFilters) ([]domain.Order, int, error) {
	filters = filters.Normalize()

	r.mu.RLock()
	matched := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		if matchesFilters(order, filters) {
			matched = append(matched, cloneOrder(order))
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	offset := filters.Offset()
	if offset >= total {
		return []domain.Order{}, total, nil
	}
	end := offset + filters.Limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

// ListByCustomer возвращает заказы клиента, ограничивая выборку limit (если >0).
func (r *orderRepositoryInMemory) ListByCustomer(customerID string, limit int) ([]domain.Order, error) {
	r.mu.RLock()
	result := make([]domain.Order, 0)
	for _, order := range r.items {
		if order.CustomerID == customerID {
			result = append(result, cloneOrder(order))
		}
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Save применяет обновления с проверкой версии.
func (r *orderRepositoryInMemory) Save(order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if existing.Version != order.Version {
		return domain.ErrOrderVersionConflict
	}

	// Номер заказа неизменяем после создания.
	order.OrderNumber = existing.OrderNumber
	order.Version = existing.Version + 1
	r.items[order.ID] = cloneOrder(order)
	return nil
}

// Delete удаляет заказ при совпадении версии и возвращает удалённый снимок.
func (r *orderRepositoryInMemory) Delete(id string, version int64) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if existing.Version != version {
		return domain.Order{}, domain.ErrOrderVersionConflict
	}

	delete(r.items, id)
	delete(r.numbers, existing.OrderNumber)
	return cloneOrder(existing), nil
}

// CountByStatus возвращает количество заказов в разрезе статусов.
func (r *orderRepositoryInMemory) CountByStatus() (map[domain.OrderStatus]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[domain.OrderStatus]int, len(domain.AllOrderStatuses))
	for _, order := range r.items {
		counts[order.Status]++
	}
	return counts, nil
}

func matchesFilters(order domain.Order, filters domain.OrderFilters) bool {
	if filters.CustomerID != "" && order.CustomerID != filters.CustomerID {
		return false
	}
	if filters.Status != "" && order.Status != filters.Status {
		return false
	}
	if filters.Search != "" {
		needle := strings.ToLower(filters.Search)
		if !strings.Contains(strings.ToLower(order.OrderNumber), needle) &&
			!strings.Contains(strings.ToLower(order.Notes), needle) {
			return false
		}
	}
	if filters.DateFrom != nil && order.OrderDate.Before(*filters.DateFrom) {
		return false
	}
	if filters.DateTo != nil && order.OrderDate.After(*filters.DateTo) {
		return false
	}
	return true
}

// cloneOrder копирует заказ вместе с позициями, чтобы избежать мутаций извне.
func cloneOrder(order domain.Order) domain.Order {
	clone := order
	clone.Items = make([]domain.OrderItem, len(order.Items))
	copy(clone.Items, order.Items)
	return clone
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
