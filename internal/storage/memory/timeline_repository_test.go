package memory_test

import (
	"testing"
	"time"

	"github.com/Selbihan/Codifya-ERP-sub000/internal/domain"
	"github.com/Selbihan/Codifya-ERP-sub000/internal/storage/memory"
)

func TestTimelineRepository_AppendOrdering(t *testing.T) {
	repo := memory.NewTimelineRepository()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	later := domain.TimelineEvent{
		OrderID:  "order-1",
		Type:     domain.TimelineEventOrderStatusChanged,
		Status:   domain.OrderStatusConfirmed,
		Occurred: base.Add(time.Minute),
	}
	earlier := domain.TimelineEvent{
		OrderID:  "order-1",
		Type:     domain.TimelineEventOrderCreated,
		Status:   domain.OrderStatusPending,
		Occurred: base,
	}

	// Записываем в обратном порядке: List обязан вернуть хронологию.
	if err := repo.Append(later); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := repo.Append(earlier); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	events, err := repo.List("order-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != domain.TimelineEventOrderCreated {
		t.Fatalf("expected created event first, got %s", events[0].Type)
	}
}

func TestTimelineRepository_ListUnknownOrder(t *testing.T) {
	repo := memory.NewTimelineRepository()

	events, err := repo.List("missing")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}

func TestTimelineRepository_ListReturnsCopy(t *testing.T) {
	repo := memory.NewTimelineRepository()
	event := domain.TimelineEvent{
		OrderID:  "order-1",
		Type:     domain.TimelineEventOrderCreated,
		Status:   domain.OrderStatusPending,
		Occurred: time.Now().UTC(),
	}
	if err := repo.Append(event); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	first, _ := repo.List("order-1")
	first[0].Status = domain.OrderStatusCancelled

	second, _ := repo.List("order-1")
	if second[0].Status != domain.OrderStatusPending {
		t.Fatal("mutation of returned slice must not affect storage")
	}
}
