package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/Selbihan/Codifya-ERP-sub000/internal/domain"
	"github.com/Selbihan/Codifya-ERP-sub000/internal/metrics"
)

const (
	// orderNumberPrefix + timestamp дают сортируемый бизнес-ключ заказа.
	orderNumberPrefix      = "ORD"
	orderNumberTimeLayout  = "20060102150405"
	maxOrderNumberAttempts = 3

	eventOrderCreated       = "order.created"
	eventOrderStatusChanged = "order.status_changed"
	eventOrderDeleted       = "order.deleted"

	aggregateTypeOrder = "order"
)

// Статусы, при которых заказ не может быть удалён. Более строгое правило
// поверх таблицы переходов: PROCESSING не терминален, но удаление запрещено.
var undeletableStatuses = map[domain.OrderStatus]struct{}{
	domain.OrderStatusDelivered:  {},
	domain.OrderStatusProcessing: {},
}

// StatusEntry — одна запись истории статусов заказа.
type StatusEntry struct {
	Status   domain.OrderStatus
	Occurred time.Time
	Reason   string
}

// History объединяет заказ и историю его статусов.
type History struct {
	Order         domain.Order
	StatusHistory []StatusEntry
}

// Service — оркестратор жизненного цикла заказов: валидация входа,
// вычисление сумм, проверка переходов статуса и запись в хранилище.
type Service struct {
	repo     domain.OrderRepository
	timeline domain.TimelineRepository
	outbox   domain.OutboxRepository
	metrics  *metrics.OrderMetrics
	logger   *log.Entry
}

// NewService конструирует сервис с зависимостями. Timeline, outbox и metrics
// опциональны: без них сервис работает, но не пишет историю и события.
func NewService(
	repo domain.OrderRepository,
	timeline domain.TimelineRepository,
	outbox domain.OutboxRepository,
	m *metrics.OrderMetrics,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.WithField("component", "order-service")
	}
	return &Service{
		repo:     repo,
		timeline: timeline,
		outbox:   outbox,
		metrics:  m,
		logger:   logger,
	}
}

// CreateOrder валидирует вход, вычисляет каноничную сумму и атомарно
// сохраняет заказ вместе с позициями. Статус нового заказа всегда PENDING.
func (s *Service) CreateOrder(_ context.Context, in domain.CreateOrderInput) (domain.Order, error) {
	started := time.Now()
	defer func() { s.metrics.RecordOperationDuration("create", time.Since(started)) }()

	generated := in.OrderNumber == ""
	if generated {
		in.OrderNumber = generateOrderNumber()
	}

	if err := domain.ValidateCreate(in); err != nil {
		return domain.Order{}, err
	}

	now := time.Now().UTC()
	items := buildItems(in.Items, now)
	computed := domain.ComputeTotal(items, in.Discount, in.TaxAmount)

	// Клиентская сумма справочная: расхождение лишь логируется,
	// в хранилище всегда уходит вычисленное значение.
	// Ноль означает "сумма не передана" — такой запрос не сверяется.
	if in.TotalAmount != 0 && !domain.TotalMatches(in.TotalAmount, computed) {
		s.metrics.RecordTotalMismatch()
		s.logger.WithFields(log.Fields{
			"order_number": in.OrderNumber,
			"supplied":     in.TotalAmount,
			"computed":     computed,
		}).Warn("caller-supplied total differs from computed value, overriding")
	}

	orderDate := in.OrderDate
	if orderDate.IsZero() {
		orderDate = now
	}

	order := domain.Order{
		ID:          uuid.NewString(),
		OrderNumber: in.OrderNumber,
		CustomerID:  in.CustomerID,
		Status:      domain.OrderStatusPending,
		Items:       items,
		TotalAmount: computed,
		TaxAmount:   in.TaxAmount,
		Discount:    in.Discount,
		Notes:       in.Notes,
		OrderDate:   orderDate,
		CreatedBy:   in.CreatedBy,
		Version:     0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.createWithUniqueNumber(&order, generated); err != nil {
		return domain.Order{}, err
	}

	s.metrics.RecordOrderCreated()
	s.appendTimeline(domain.TimelineEvent{
		OrderID:  order.ID,
		Type:     domain.TimelineEventOrderCreated,
		Status:   order.Status,
		Occurred: order.CreatedAt,
	})
	s.enqueueEvent(eventOrderCreated, order)

	return order, nil
}

// createWithUniqueNumber сохраняет заказ, перегенерируя номер при коллизии,
// если номер был сгенерирован сервисом. Уникальность гарантирует хранилище.
func (s *Service) createWithUniqueNumber(order *domain.Order, generated bool) error {
	for attempt := 1; ; attempt++ {
		err := s.repo.Create(*order)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrOrderNumberTaken) {
			s.logger.WithError(err).Error("failed to create order")
			return err
		}
		if !generated {
			return domain.ValidationErrorf("Order number %s is already taken", order.OrderNumber)
		}
		if attempt >= maxOrderNumberAttempts {
			s.logger.WithField("order_number", order.OrderNumber).
				Error("order number collisions exhausted retries")
			return err
		}
		order.OrderNumber = generateOrderNumber()
	}
}

// UpdateOrder применяет частичное обновление: отсутствующие поля не трогаются.
// Позиции заменяются только целиком; любое изменение позиций, скидки или
// налога атомарно пересчитывает сумму заказа.
func (s *Service) UpdateOrder(_ context.Context, id string, patch domain.UpdateOrderInput) (domain.Order, error) {
	started := time.Now()
	defer func() { s.metrics.RecordOperationDuration("update", time.Since(started)) }()

	if strings.TrimSpace(id) == "" {
		return domain.Order{}, domain.InvalidDataErrorf("Order ID is required")
	}
	if err := domain.ValidateUpdate(patch); err != nil {
		return domain.Order{}, err
	}

	order, err := s.repo.Get(id)
	if err != nil {
		return domain.Order{}, err
	}

	now := time.Now().UTC()
	if patch.CustomerID != nil {
		order.CustomerID = *patch.CustomerID
	}
	if patch.Notes != nil {
		order.Notes = *patch.Notes
	}
	if patch.OrderDate != nil {
		order.OrderDate = *patch.OrderDate
	}
	if patch.TaxAmount != nil {
		order.TaxAmount = *patch.TaxAmount
	}
	if patch.Discount != nil {
		order.Discount = *patch.Discount
	}
	if patch.Items != nil {
		order.Items = buildItems(patch.Items, now)
	}

	order.TotalAmount = domain.ComputeTotal(order.Items, order.Discount, order.TaxAmount)
	if patch.TotalAmount != nil && !domain.TotalMatches(*patch.TotalAmount, order.TotalAmount) {
		s.metrics.RecordTotalMismatch()
		s.logger.WithFields(log.Fields{
			"order_id": order.ID,
			"supplied": *patch.TotalAmount,
			"computed": order.TotalAmount,
		}).Warn("caller-supplied total differs from computed value, overriding")
	}
	order.UpdatedAt = now

	if err := s.repo.Save(order); err != nil {
		if domain.IsVersionConflict(err) {
			s.metrics.RecordVersionConflict("update")
		}
		return domain.Order{}, err
	}

	s.metrics.RecordOrderUpdated()
	return s.repo.Get(order.ID)
}

// UpdateOrderStatus проверяет переход по таблице состояний и сохраняет только
// статус. Конкурирующая запись с устаревшей версией отклоняется хранилищем.
func (s *Service) UpdateOrderStatus(_ context.Context, id string, next domain.OrderStatus) (domain.Order, error) {
	started := time.Now()
	defer func() { s.metrics.RecordOperationDuration("update_status", time.Since(started)) }()

	if strings.TrimSpace(id) == "" {
		return domain.Order{}, domain.InvalidDataErrorf("Order ID is required")
	}

	order, err := s.repo.Get(id)
	if err != nil {
		return domain.Order{}, err
	}

	if err := domain.CheckTransition(order.Status, next); err != nil {
		s.logger.WithFields(log.Fields{
			"order_id":  order.ID,
			"status":    order.Status,
			"requested": next,
			"allowed":   domain.AllowedTransitions(order.Status),
		}).Warn("status transition rejected")
		return domain.Order{}, err
	}

	previous := order.Status
	order.Status = next
	order.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(order); err != nil {
		if domain.IsVersionConflict(err) {
			s.metrics.RecordVersionConflict("update_status")
			s.logger.WithFields(log.Fields{
				"order_id": order.ID,
				"from":     previous,
				"to":       next,
			}).Warn("status update rejected: stale version")
		}
		return domain.Order{}, err
	}

	s.metrics.RecordStatusTransition(string(previous), string(next))
	s.appendTimeline(domain.TimelineEvent{
		OrderID:  order.ID,
		Type:     domain.TimelineEventOrderStatusChanged,
		Status:   next,
		Reason:   fmt.Sprintf("%s -> %s", previous, next),
		Occurred: order.UpdatedAt,
	})
	s.enqueueEvent(eventOrderStatusChanged, order)

	return s.repo.Get(order.ID)
}

// DeleteOrder удаляет заказ, если это разрешает deletion guard,
// и возвращает удалённый снимок.
func (s *Service) DeleteOrder(_ context.Context, id string) (domain.Order, error) {
	started := time.Now()
	defer func() { s.metrics.RecordOperationDuration("delete", time.Since(started)) }()

	if strings.TrimSpace(id) == "" {
		return domain.Order{}, domain.InvalidDataErrorf("Order ID is required")
	}

	order, err := s.repo.Get(id)
	if err != nil {
		return domain.Order{}, err
	}

	if _, blocked := undeletableStatuses[order.Status]; blocked {
		s.metrics.RecordDeletionBlocked()
		return domain.Order{}, domain.ValidationErrorf("Cannot delete order with status %s", order.Status)
	}

	deleted, err := s.repo.Delete(order.ID, order.Version)
	if err != nil {
		if domain.IsVersionConflict(err) {
			s.metrics.RecordVersionConflict("delete")
		}
		return domain.Order{}, err
	}

	s.metrics.RecordOrderDeleted()
	s.appendTimeline(domain.TimelineEvent{
		OrderID:  deleted.ID,
		Type:     domain.TimelineEventOrderDeleted,
		Status:   deleted.Status,
		Occurred: time.Now().UTC(),
	})
	s.enqueueEvent(eventOrderDeleted, deleted)

	return deleted, nil
}

// GetOrderByID возвращает заказ по идентификатору.
func (s *Service) GetOrderByID(_ context.Context, id string) (domain.Order, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Order{}, domain.InvalidDataErrorf("Order ID is required")
	}
	return s.repo.Get(id)
}

// ListOrders возвращает страницу заказов под фильтрами.
// Фильтры уходят в хранилище как есть: никакой фильтрации в памяти.
func (s *Service) ListOrders(_ context.Context, filters domain.OrderFilters) (domain.OrderPage, error) {
	filters = filters.Normalize()

	orders, total, err := s.repo.List(filters)
	if err != nil {
		return domain.OrderPage{}, err
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + filters.Limit - 1) / filters.Limit
	}

	return domain.OrderPage{
		Items:      orders,
		Total:      total,
		Page:       filters.Page,
		Limit:      filters.Limit,
		TotalPages: totalPages,
	}, nil
}

// GetOrdersByCustomer возвращает все заказы клиента, свежие первыми.
func (s *Service) GetOrdersByCustomer(_ context.Context, customerID string) ([]domain.Order, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, domain.InvalidDataErrorf("Customer ID is required")
	}
	return s.repo.ListByCustomer(customerID, 0)
}

// GetOrderStatistics агрегирует количество заказов по всем шести статусам.
func (s *Service) GetOrderStatistics(_ context.Context) (domain.OrderStatistics, error) {
	counts, err := s.repo.CountByStatus()
	if err != nil {
		return domain.OrderStatistics{}, err
	}

	stats := domain.OrderStatistics{
		Pending:    counts[domain.OrderStatusPending],
		Confirmed:  counts[domain.OrderStatusConfirmed],
		Processing: counts[domain.OrderStatusProcessing],
		Shipped:    counts[domain.OrderStatusShipped],
		Delivered:  counts[domain.OrderStatusDelivered],
		Cancelled:  counts[domain.OrderStatusCancelled],
	}
	stats.Total = stats.Pending + stats.Confirmed + stats.Processing +
		stats.Shipped + stats.Delivered + stats.Cancelled
	return stats, nil
}

// GetOrderHistory возвращает заказ и историю его статусов из timeline.
// Для заказов без timeline-записей синтезируется одна запись с текущим
// статусом и временем последнего обновления.
func (s *Service) GetOrderHistory(_ context.Context, id string) (History, error) {
	if strings.TrimSpace(id) == "" {
		return History{}, domain.InvalidDataErrorf("Order ID is required")
	}

	order, err := s.repo.Get(id)
	if err != nil {
		return History{}, err
	}

	history := History{Order: order}
	if s.timeline != nil {
		events, err := s.timeline.List(order.ID)
		if err != nil {
			s.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to load order timeline")
		} else {
			for _, event := range events {
				if event.Type != domain.TimelineEventOrderCreated &&
					event.Type != domain.TimelineEventOrderStatusChanged {
					continue
				}
				history.StatusHistory = append(history.StatusHistory, StatusEntry{
					Status:   event.Status,
					Occurred: event.Occurred,
					Reason:   event.Reason,
				})
			}
		}
	}

	if len(history.StatusHistory) == 0 {
		history.StatusHistory = []StatusEntry{{
			Status:   order.Status,
			Occurred: order.UpdatedAt,
		}}
	}

	return history, nil
}

// buildItems собирает доменные позиции из входа, вычисляя итог каждой позиции.
func buildItems(inputs []domain.OrderItemInput, now time.Time) []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(inputs))
	for _, in := range inputs {
		item := domain.OrderItem{
			ID:        uuid.NewString(),
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			Price:     in.Price,
			CreatedAt: now,
		}
		item.Total = domain.ComputeItemTotal(item)
		items = append(items, item)
	}
	return items
}

// generateOrderNumber выдаёт сортируемый бизнес-ключ: ORD-<время>-<случайный суффикс>.
func generateOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s-%s-%s", orderNumberPrefix, time.Now().UTC().Format(orderNumberTimeLayout), suffix)
}

// appendTimeline пишет событие истории best-effort: сбой не прерывает операцию.
func (s *Service) appendTimeline(event domain.TimelineEvent) {
	if s.timeline == nil {
		return
	}
	if err := s.timeline.Append(event); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": event.OrderID,
			"type":     event.Type,
		}).Warn("failed to append timeline event")
		return
	}
	s.metrics.RecordTimelineEvent()
}

// enqueueEvent кладёт событие заказа в transactional outbox best-effort.
func (s *Service) enqueueEvent(eventType string, order domain.Order) {
	if s.outbox == nil {
		return
	}

	payload, err := json.Marshal(struct {
		OrderID     string             `json:"order_id"`
		OrderNumber string             `json:"order_number"`
		CustomerID  string             `json:"customer_id"`
		Status      domain.OrderStatus `json:"status"`
		TotalAmount float64            `json:"total_amount"`
		OccurredAt  time.Time          `json:"occurred_at"`
	}{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		OccurredAt:  time.Now().UTC(),
	})
	if err != nil {
		s.logger.WithError(err).Warn("failed to marshal order event payload")
		return
	}

	if _, err := s.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: aggregateTypeOrder,
		AggregateID:   order.ID,
		EventType:     eventType,
		Payload:       payload,
	}); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id":   order.ID,
			"event_type": eventType,
		}).Warn("failed to enqueue outbox event")
		return
	}
	s.metrics.RecordOutboxEvent()
}
