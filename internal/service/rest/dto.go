package rest

import (
	"time"

	"github.com/Selbihan/Codifya-ERP-sub000/internal/domain"
	"github.com/Selbihan/Codifya-ERP-sub000/internal/service/order"
)

// orderItemPayload — позиция заказа во входящем запросе.
type orderItemPayload struct {
	ProductID string  `json:"productId"`
	Quantity  int32   `json:"quantity"`
	Price     float64 `json:"price"`
}

type createOrderRequest struct {
	OrderNumber string             `json:"orderNumber"`
	CustomerID  string             `json:"customerId"`
	Items       []orderItemPayload `json:"items"`
	TotalAmount float64            `json:"totalAmount"`
	TaxAmount   float64            `json:"taxAmount"`
	Discount    float64            `json:"discount"`
	Notes       string             `json:"notes"`
	OrderDate   *time.Time         `json:"orderDate"`
	CreatedBy   string             `json:"createdBy"`
}

// updateOrderRequest — частичное обновление: отсутствующее поле не трогается,
// items принимаются только целиком.
type updateOrderRequest struct {
	CustomerID  *string            `json:"customerId"`
	Items       []orderItemPayload `json:"items"`
	TotalAmount *float64           `json:"totalAmount"`
	TaxAmount   *float64           `json:"taxAmount"`
	Discount    *float64           `json:"discount"`
	Notes       *string            `json:"notes"`
	OrderDate   *time.Time         `json:"orderDate"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderItemResponse struct {
	ID        string    `json:"id"`
	ProductID string    `json:"productId"`
	Quantity  int32     `json:"quantity"`
	Price     float64   `json:"price"`
	Total     float64   `json:"total"`
	CreatedAt time.Time `json:"createdAt"`
}

type orderResponse struct {
	ID          string              `json:"id"`
	OrderNumber string              `json:"orderNumber"`
	CustomerID  string              `json:"customerId"`
	Status      string              `json:"status"`
	Items       []orderItemResponse `json:"items"`
	TotalAmount float64             `json:"totalAmount"`
	TaxAmount   float64             `json:"taxAmount"`
	Discount    float64             `json:"discount"`
	Notes       string              `json:"notes,omitempty"`
	OrderDate   time.Time           `json:"orderDate"`
	CreatedBy   string              `json:"createdBy"`
	Version     int64               `json:"version"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

type orderPageResponse struct {
	Items      []orderResponse `json:"items"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"totalPages"`
}

type statisticsResponse struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Confirmed  int `json:"confirmed"`
	Processing int `json:"processing"`
	Shipped    int `json:"shipped"`
	Delivered  int `json:"delivered"`
	Cancelled  int `json:"cancelled"`
}

type statusEntryResponse struct {
	Status   string    `json:"status"`
	Occurred time.Time `json:"occurred"`
	Reason   string    `json:"reason,omitempty"`
}

type historyResponse struct {
	Order         orderResponse         `json:"order"`
	StatusHistory []statusEntryResponse `json:"statusHistory"`
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func toItemInputs(items []orderItemPayload) []domain.OrderItemInput {
	if items == nil {
		return nil
	}
	out := make([]domain.OrderItemInput, len(items))
	for i, item := range items {
		out[i] = domain.OrderItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
	}
	return out
}

func toOrderResponse(o domain.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = orderItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Total:     item.Total,
			CreatedAt: item.CreatedAt,
		}
	}
	return orderResponse{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		CustomerID:  o.CustomerID,
		Status:      string(o.Status),
		Items:       items,
		TotalAmount: o.TotalAmount,
		TaxAmount:   o.TaxAmount,
		Discount:    o.Discount,
		Notes:       o.Notes,
		OrderDate:   o.OrderDate,
		CreatedBy:   o.CreatedBy,
		Version:     o.Version,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

func toOrderResponses(orders []domain.Order) []orderResponse {
	out := make([]orderResponse, len(orders))
	for i, o := range orders {
		out[i] = toOrderResponse(o)
	}
	return out
}

func toPageResponse(page domain.OrderPage) orderPageResponse {
	return orderPageResponse{
		Items:      toOrderResponses(page.Items),
		Total:      page.Total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: page.TotalPages,
	}
}

func toStatisticsResponse(stats domain.OrderStatistics) statisticsResponse {
	return statisticsResponse{
		Total:      stats.Total,
		Pending:    stats.Pending,
		Confirmed:  stats.Confirmed,
		Processing: stats.Processing,
		Shipped:    stats.Shipped,
		Delivered:  stats.Delivered,
		Cancelled:  stats.Cancelled,
	}
}

func toHistoryResponse(history order.History) historyResponse {
	entries := make([]statusEntryResponse, len(history.StatusHistory))
	for i, entry := range history.StatusHistory {
		entries[i] = statusEntryResponse{
			Status:   string(entry.Status),
			Occurred: entry.Occurred,
			Reason:   entry.Reason,
		}
	}
	return historyResponse{
		Order:         toOrderResponse(history.Order),
		StatusHistory: entries,
	}
}
