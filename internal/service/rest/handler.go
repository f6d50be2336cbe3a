package rest

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/Selbihan/Codifya-ERP-sub000/internal/domain"
	"github.com/Selbihan/Codifya-ERP-sub000/internal/service/order"
)

const dateOnlyLayout = "2006-01-02"

// Handler отдаёт OrderService поверх echo.
type Handler struct {
	orders *order.Service
	idem   domain.IdempotencyRepository
	ttl    time.Duration
	logger *log.Entry
}

// NewHandler создаёт HTTP handler. idem может быть nil: тогда заголовок
// Idempotency-Key игнорируется.
func NewHandler(orders *order.Service, idem domain.IdempotencyRepository, ttl time.Duration, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.WithField("component", "rest")
	}
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &Handler{
		orders: orders,
		idem:   idem,
		ttl:    ttl,
		logger: logger,
	}
}

// Register вешает маршруты на echo instance.
func (h *Handler) Register(e *echo.Echo) {
	api := e.Group("/api/v1")

	api.POST("/orders", h.createOrder)
	api.GET("/orders", h.listOrders)
	api.GET("/orders/stats", h.orderStatistics)
	api.GET("/orders/:id", h.getOrder)
	api.PUT("/orders/:id", h.updateOrder)
	api.PATCH("/orders/:id/status", h.updateOrderStatus)
	api.DELETE("/orders/:id", h.deleteOrder)
	api.GET("/orders/:id/history", h.orderHistory)
	api.GET("/customers/:id/orders", h.ordersByCustomer)
}

func (h *Handler) createOrder(ctx echo.Context) error {
	key := strings.TrimSpace(ctx.Request().Header.Get(idempotencyKeyHeader))
	if key != "" && h.idem != nil {
		return h.createOrderIdempotent(ctx, key)
	}

	var req createOrderRequest
	if err := ctx.Bind(&req); err != nil {
		return h.badRequest(ctx, "Invalid request body")
	}

	created, err := h.orders.CreateOrder(ctx.Request().Context(), toCreateInput(req))
	if err != nil {
		return h.writeError(ctx, err)
	}
	return ctx.JSON(http.StatusCreated, toOrderResponse(created))
}

func (h *Handler) getOrder(ctx echo.Context) error {
	found, err := h.orders.GetOrderByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return h.writeError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, toOrderResponse(found))
}

func (h *Handler) listOrders(ctx echo.Context) error {
	filters, err := parseFilters(ctx)
	if err != nil {
		return h.writeError(ctx, err)
	}

	page, err := h.orders.ListOrders(ctx.Request().Context(), filters)
	if err != nil {
		return h.writeError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, toPageResponse(page))
}

func (h *Handler) updateOrder(ctx echo.Context) error {
	var req updateOrderRequest
	if err := ctx.Bind(&req); err != nil {
		return h.badRequest(ctx, "Invalid request body")
	}

	patch := domain.UpdateOrderInput{
		CustomerID:  req.CustomerID,
		Items:       toItemInputs(req.Items),
		TotalAmount: req.TotalAmount,
		TaxAmount:   req.TaxAmount,
		Discount:    req.Discount,
		Notes:       req.Notes,
		OrderDate:   req.OrderDate,
	}

	updated, err := h.orders.UpdateOrder(ctx.Request().Context(), ctx.Param("id"), patch)
	if err != nil {
		return h.writeError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, toOrderResponse(updated))
}

func (h *Handler) updateOrderStatus(ctx echo.Context) error {
	var req updateStatusRequest
	if err := ctx.Bind(&req); err != nil {
		return h.badRequest(ctx, "Invalid request body")
	}

	status, err := parseStatus(req.Status)
	if err != nil {
		return h.writeError(ctx, err)
	}

	updated, err := h.orders.UpdateOrderStatus(ctx.Request().Context(), ctx.Param("id"), status)
	if err != nil {
		return h.writeError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, toOrderResponse(updated))
}

func (h *Handler) deleteOrder(ctx echo.Context) error {
	deleted, err := h.orders.DeleteOrder(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return h.writeError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, toOrderResponse(deleted))
}

func (h *Handler) orderHistory(ctx echo.Context) error {
	history, err := h.orders.GetOrderHistory(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return h.writeError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, toHistoryResponse(history))
}

func (h *Handler) ordersByCustomer(ctx echo.Context) error {
	orders, err := h.orders.GetOrdersByCustomer(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return h.writeError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, toOrderResponses(orders))
}

func (h *Handler) orderStatistics(ctx echo.Context) error {
	stats, err := h.orders.GetOrderStatistics(ctx.Request().Context())
	if err != nil {
		return h.writeError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, toStatisticsResponse(stats))
}

func toCreateInput(req createOrderRequest) domain.CreateOrderInput {
	in := domain.CreateOrderInput{
		OrderNumber: req.OrderNumber,
		CustomerID:  req.CustomerID,
		Items:       toItemInputs(req.Items),
		TotalAmount: req.TotalAmount,
		TaxAmount:   req.TaxAmount,
		Discount:    req.Discount,
		Notes:       req.Notes,
		CreatedBy:   req.CreatedBy,
	}
	if req.OrderDate != nil {
		in.OrderDate = *req.OrderDate
	}
	return in
}

// parseStatus отклоняет неизвестные строки статуса на границе HTTP,
// до попадания в доменную логику.
func parseStatus(raw string) (domain.OrderStatus, error) {
	status := domain.OrderStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", domain.ValidationErrorf("Invalid order status: %s", raw)
	}
	return status, nil
}

func parseFilters(ctx echo.Context) (domain.OrderFilters, error) {
	filters := domain.OrderFilters{
		Search:     ctx.QueryParam("search"),
		CustomerID: ctx.QueryParam("customerId"),
	}

	if raw := ctx.QueryParam("status"); raw != "" {
		status, err := parseStatus(raw)
		if err != nil {
			return domain.OrderFilters{}, err
		}
		filters.Status = status
	}

	var err error
	if filters.DateFrom, err = parseDateParam(ctx.QueryParam("dateFrom"), "dateFrom"); err != nil {
		return domain.OrderFilters{}, err
	}
	if filters.DateTo, err = parseDateParam(ctx.QueryParam("dateTo"), "dateTo"); err != nil {
		return domain.OrderFilters{}, err
	}
	if filters.Page, err = parseIntParam(ctx.QueryParam("page"), "page"); err != nil {
		return domain.OrderFilters{}, err
	}
	if filters.Limit, err = parseIntParam(ctx.QueryParam("limit"), "limit"); err != nil {
		return domain.OrderFilters{}, err
	}
	return filters, nil
}

func parseIntParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.ValidationErrorf("Invalid %s parameter: %s", name, raw)
	}
	return value, nil
}

// parseDateParam принимает RFC3339 или дату без времени.
func parseDateParam(raw, name string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return &parsed, nil
	}
	if parsed, err := time.Parse(dateOnlyLayout, raw); err == nil {
		return &parsed, nil
	}
	return nil, domain.ValidationErrorf("Invalid %s parameter: %s", name, raw)
}

func (h *Handler) badRequest(ctx echo.Context, message string) error {
	return ctx.JSON(http.StatusBadRequest, errorResponse{
		Code:    http.StatusBadRequest,
		Message: message,
	})
}

// writeError переводит доменные ошибки в HTTP статусы:
// not found — 404, валидация и неверные данные — 400, конфликт версии — 409.
func (h *Handler) writeError(ctx echo.Context, err error) error {
	code, message := h.errorStatus(err)
	return ctx.JSON(code, errorResponse{Code: code, Message: message})
}

func (h *Handler) errorStatus(err error) (int, string) {
	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound, err.Error()
	case domain.IsValidation(err), domain.IsInvalidData(err):
		return http.StatusBadRequest, err.Error()
	case domain.IsVersionConflict(err), errors.Is(err, domain.ErrIdempotencyConflict):
		return http.StatusConflict, err.Error()
	default:
		h.logger.WithError(err).Error("request failed")
		return http.StatusInternalServerError, "Internal server error"
	}
}
