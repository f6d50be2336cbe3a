package order_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/Selbihan/Codifya-ERP-sub000/internal/domain"
	"github.com/Selbihan/Codifya-ERP-sub000/internal/service/order"
	"github.com/Selbihan/Codifya-ERP-sub000/internal/storage/memory"
)

type testEnv struct {
	svc      *order.Service
	repo     domain.OrderRepository
	timeline domain.TimelineRepository
	outbox   domain.OutboxRepository
}

func newTestEnv() testEnv {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	repo := memory.NewOrderRepository()
	timeline := memory.NewTimelineRepository()
	outbox := memory.NewOutboxRepository()
	svc := order.NewService(repo, timeline, outbox, nil, logger.WithField("component", "test"))

	return testEnv{svc: svc, repo: repo, timeline: timeline, outbox: outbox}
}

func createInput() domain.CreateOrderInput {
	return domain.CreateOrderInput{
		CustomerID: "customer-1",
		CreatedBy:  "user-1",
		Items: []domain.OrderItemInput{
			{ProductID: "product-1", Quantity: 2, Price: 100},
			{ProductID: "product-2", Quantity: 1, Price: 50},
		},
		Discount:  25,
		TaxAmount: 15,
	}
}

func TestCreateOrder(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.CreateOrder(ctx, createInput())
	require.NoError(t, err)

	require.Equal(t, domain.OrderStatusPending, created.Status)
	require.Equal(t, int64(0), created.Version)
	require.NotEmpty(t, created.ID)
	require.Len(t, created.Items, 2)

	// 2*100 + 1*50 - 25 + 15 = 240
	require.InDelta(t, 240, created.TotalAmount, domain.TotalEpsilon)
	require.InDelta(t, 200, created.Items[0].Total, domain.TotalEpsilon)

	require.True(t, strings.HasPrefix(created.OrderNumber, "ORD-"))
	require.False(t, created.OrderDate.IsZero())
}

func TestCreateOrder_ComputedTotalWins(t *testing.T) {
	env := newTestEnv()

	in := createInput()
	in.TotalAmount = 9999 // расходится с вычисленным итогом

	created, err := env.svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)
	require.InDelta(t, 240, created.TotalAmount, domain.TotalEpsilon)
}

func TestCreateOrder_ZeroTotalTreatedAsAbsent(t *testing.T) {
	env := newTestEnv()

	in := createInput()
	in.TotalAmount = 0

	created, err := env.svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)
	require.InDelta(t, 240, created.TotalAmount, domain.TotalEpsilon)
}

func TestCreateOrder_CallerNumberPreserved(t *testing.T) {
	env := newTestEnv()

	in := createInput()
	in.OrderNumber = "ORD-CUSTOM-0001"

	created, err := env.svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, "ORD-CUSTOM-0001", created.OrderNumber)

	// Повторное использование занятого номера — ошибка валидации, без retry.
	_, err = env.svc.CreateOrder(context.Background(), in)
	require.Error(t, err)
	require.True(t, domain.IsValidation(err))
	require.Contains(t, err.Error(), "Order number ORD-CUSTOM-0001 is already taken")
}

func TestCreateOrder_ValidationFailures(t *testing.T) {
	env := newTestEnv()

	in := createInput()
	in.Items = nil

	_, err := env.svc.CreateOrder(context.Background(), in)
	require.Error(t, err)
	require.True(t, domain.IsValidation(err))
	require.Contains(t, err.Error(), "Order must have at least one item")

	in = createInput()
	in.CustomerID = ""
	_, err = env.svc.CreateOrder(context.Background(), in)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Customer ID is required")
}

func TestCreateOrder_EmitsEvents(t *testing.T) {
	env := newTestEnv()

	created, err := env.svc.CreateOrder(context.Background(), createInput())
	require.NoError(t, err)

	events, err := env.timeline.List(created.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, domain.TimelineEventOrderCreated, events[0].Type)

	pending, err := env.outbox.PullPending(10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "order.created", pending[0].EventType)
	require.Equal(t, created.ID, pending[0].AggregateID)
}

func TestUpdateOrder(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.CreateOrder(ctx, createInput())
	require.NoError(t, err)

	notes := "leave at the door"
	updated, err := env.svc.UpdateOrder(ctx, created.ID, domain.UpdateOrderInput{Notes: &notes})
	require.NoError(t, err)
	require.Equal(t, notes, updated.Notes)
	require.Equal(t, int64(1), updated.Version)
	// Не тронутые поля сохраняются.
	require.Equal(t, created.CustomerID, updated.CustomerID)
	require.InDelta(t, created.TotalAmount, updated.TotalAmount, domain.TotalEpsilon)
}

func TestUpdateOrder_ItemsReplacedAndTotalRecomputed(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.CreateOrder(ctx, createInput())
	require.NoError(t, err)

	updated, err := env.svc.UpdateOrder(ctx, created.ID, domain.UpdateOrderInput{
		Items: []domain.OrderItemInput{
			{ProductID: "product-3", Quantity: 4, Price: 10},
		},
	})
	require.NoError(t, err)

	require.Len(t, updated.Items, 1)
	require.Equal(t, "product-3", updated.Items[0].ProductID)
	// 4*10 - 25 + 15 = 30
	require.InDelta(t, 30, updated.TotalAmount, domain.TotalEpsilon)
}

func TestUpdateOrder_BlankID(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.UpdateOrder(context.Background(), "  ", domain.UpdateOrderInput{})
	require.Error(t, err)
	require.True(t, domain.IsInvalidData(err))
	require.Contains(t, err.Error(), "Order ID is required")
}

func TestUpdateOrder_NotFound(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.UpdateOrder(context.Background(), "missing", domain.UpdateOrderInput{})
	require.True(t, domain.IsNotFound(err))
}

func TestUpdateOrderStatus_FullLifecycle(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.CreateOrder(ctx, createInput())
	require.NoError(t, err)

	path := []domain.OrderStatus{
		domain.OrderStatusConfirmed,
		domain.OrderStatusProcessing,
		domain.OrderStatusShipped,
		domain.OrderStatusDelivered,
	}

	current := created
	for _, next := range path {
		current, err = env.svc.UpdateOrderStatus(ctx, created.ID, next)
		require.NoError(t, err, "transition to %s", next)
		require.Equal(t, next, current.Status)
	}
	require.Equal(t, int64(len(path)), current.Version)
}

func TestUpdateOrderStatus_InvalidTransition(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.CreateOrder(ctx, createInput())
	require.NoError(t, err)

	_, err = env.svc.UpdateOrderStatus(ctx, created.ID, domain.OrderStatusShipped)
	require.Error(t, err)
	require.True(t, domain.IsValidation(err))
	require.Contains(t, err.Error(), "Invalid status transition from PENDING to SHIPPED")
}

func TestUpdateOrderStatus_SelfTransitionRejected(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.CreateOrder(ctx, createInput())
	require.NoError(t, err)

	_, err = env.svc.UpdateOrderStatus(ctx, created.ID, domain.OrderStatusPending)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Invalid status transition from PENDING to PENDING")
}

func TestUpdateOrderStatus_CancelFromProcessing(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.CreateOrder(ctx, createInput())
	require.NoError(t, err)

	_, err = env.svc.UpdateOrderStatus(ctx, created.ID, domain.OrderStatusConfirmed)
	require.NoError(t, err)
	_, err = env.svc.UpdateOrderStatus(ctx, created.ID, domain.OrderStatusProcessing)
	require.NoError(t, err)

	cancelled, err := env.svc.UpdateOrderStatus(ctx, created.ID, domain.OrderStatusCancelled)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusCancelled, cancelled.Status)

	// Из терминального статуса пути нет.
	_, err = env.svc.UpdateOrderStatus(ctx, created.ID, domain.OrderStatusConfirmed)
	require.Error(t, err)
}

func TestUpdateOrderStatus_ConcurrentWritersOneWins(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.CreateOrder(ctx, createInput())
	require.NoError(t, err)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.UpdateOrderStatus(ctx, created.ID, domain.OrderStatusCancelled)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded, conflicted int
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case domain.IsVersionConflict(err) || domain.IsValidation(err):
			// Проигравший либо ловит конфликт версий в хранилище, либо
			// успевает прочитать уже отменённый заказ и режется переходом.
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, 1, conflicted)

	final, err := env.svc.GetOrderByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusCancelled, final.Status)
	require.Equal(t, int64(1), final.Version)
}

func TestDeleteOrder(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.CreateOrder(ctx, createInput())
	require.NoError(t, err)

	deleted, err := env.svc.DeleteOrder(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, deleted.ID)

	_, err = env.svc.GetOrderByID(ctx, created.ID)
	require.True(t, domain.IsNotFound(err))
}

func TestDeleteOrder_Guard(t *testing.T) {
	tests := []struct {
		name string
		path []domain.OrderStatus
	}{
		{
			name: "processing order",
			path: []domain.OrderStatus{domain.OrderStatusConfirmed, domain.OrderStatusProcessing},
		},
		{
			name: "delivered order",
			path: []domain.OrderStatus{
				domain.OrderStatusConfirmed,
				domain.OrderStatusProcessing,
				domain.OrderStatusShipped,
				domain.OrderStatusDelivered,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			ctx := context.Background()

			created, err := env.svc.CreateOrder(ctx, createInput())
			require.NoError(t, err)

			var last domain.Order
			for _, next := range tt.path {
				last, err = env.svc.UpdateOrderStatus(ctx, created.ID, next)
				require.NoError(t, err)
			}

			_, err = env.svc.DeleteOrder(ctx, created.ID)
			require.Error(t, err)
			require.True(t, domain.IsValidation(err))
			require.Contains(t, err.Error(), "Cannot delete order with status "+string(last.Status))
		})
	}
}

func TestDeleteOrder_CancelledAllowed(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.CreateOrder(ctx, createInput())
	require.NoError(t, err)
	_, err = env.svc.UpdateOrderStatus(ctx, created.ID, domain.OrderStatusCancelled)
	require.NoError(t, err)

	_, err = env.svc.DeleteOrder(ctx, created.ID)
	require.NoError(t, err)
}

func TestListOrders_Pagination(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := env.svc.CreateOrder(ctx, createInput())
		require.NoError(t, err)
	}

	page, err := env.svc.ListOrders(ctx, domain.OrderFilters{Page: 1, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 5, page.Total)
	require.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Items, 2)

	last, err := env.svc.ListOrders(ctx, domain.OrderFilters{Page: 3, Limit: 2})
	require.NoError(t, err)
	require.Len(t, last.Items, 1)
}

func TestListOrders_Empty(t *testing.T) {
	env := newTestEnv()

	page, err := env.svc.ListOrders(context.Background(), domain.OrderFilters{})
	require.NoError(t, err)
	require.Equal(t, 0, page.Total)
	require.Equal(t, 0, page.TotalPages)
	require.Equal(t, domain.DefaultPage, page.Page)
	require.Equal(t, domain.DefaultPageLimit, page.Limit)
}

func TestGetOrdersByCustomer(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.svc.CreateOrder(ctx, createInput())
	require.NoError(t, err)

	other := createInput()
	other.CustomerID = "customer-2"
	_, err = env.svc.CreateOrder(ctx, other)
	require.NoError(t, err)

	orders, err := env.svc.GetOrdersByCustomer(ctx, "customer-1")
	require.NoError(t, err)
	require.Len(t, orders, 1)

	_, err = env.svc.GetOrdersByCustomer(ctx, "")
	require.Error(t, err)
	require.True(t, domain.IsInvalidData(err))
	require.Contains(t, err.Error(), "Customer ID is required")
}

func TestGetOrderByID_BlankID(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.GetOrderByID(context.Background(), "")
	require.Error(t, err)
	require.True(t, domain.IsInvalidData(err))
	require.Contains(t, err.Error(), "Order ID is required")
}

func TestGetOrderStatistics(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	first, err := env.svc.CreateOrder(ctx, createInput())
	require.NoError(t, err)
	_, err = env.svc.CreateOrder(ctx, createInput())
	require.NoError(t, err)

	_, err = env.svc.UpdateOrderStatus(ctx, first.ID, domain.OrderStatusConfirmed)
	require.NoError(t, err)

	stats, err := env.svc.GetOrderStatistics(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Total)
	require.Equal(t, 1, stats.Pending)
	require.Equal(t, 1, stats.Confirmed)
	require.Equal(t, 0, stats.Delivered)
}

func TestGetOrderHistory(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.CreateOrder(ctx, createInput())
	require.NoError(t, err)
	_, err = env.svc.UpdateOrderStatus(ctx, created.ID, domain.OrderStatusConfirmed)
	require.NoError(t, err)
	_, err = env.svc.UpdateOrderStatus(ctx, created.ID, domain.OrderStatusProcessing)
	require.NoError(t, err)

	history, err := env.svc.GetOrderHistory(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, history.Order.ID)
	require.Len(t, history.StatusHistory, 3)
	require.Equal(t, domain.OrderStatusPending, history.StatusHistory[0].Status)
	require.Equal(t, domain.OrderStatusConfirmed, history.StatusHistory[1].Status)
	require.Equal(t, domain.OrderStatusProcessing, history.StatusHistory[2].Status)
	require.Contains(t, history.StatusHistory[1].Reason, "PENDING -> CONFIRMED")
}

func TestGetOrderHistory_WithoutTimeline(t *testing.T) {
	logger := logrus.New().WithField("component", "test")
	repo := memory.NewOrderRepository()
	svc := order.NewService(repo, nil, nil, nil, logger)
	ctx := context.Background()

	created, err := svc.CreateOrder(ctx, createInput())
	require.NoError(t, err)

	history, err := svc.GetOrderHistory(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, history.StatusHistory, 1)
	require.Equal(t, domain.OrderStatusPending, history.StatusHistory[0].Status)
	require.WithinDuration(t, created.UpdatedAt, history.StatusHistory[0].Occurred, time.Second)
}

func TestUpdateOrderStatus_EmitsTimelineAndOutbox(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.CreateOrder(ctx, createInput())
	require.NoError(t, err)

	_, err = env.svc.UpdateOrderStatus(ctx, created.ID, domain.OrderStatusCancelled)
	require.NoError(t, err)

	pending, err := env.outbox.PullPending(10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, "order.status_changed", pending[1].EventType)
}
