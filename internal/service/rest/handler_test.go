package rest_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/Selbihan/Codifya-ERP-sub000/internal/service/order"
	"github.com/Selbihan/Codifya-ERP-sub000/internal/service/rest"
	"github.com/Selbihan/Codifya-ERP-sub000/internal/storage/memory"
)

func newTestServer() *echo.Echo {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	entry := logger.WithField("component", "test")

	svc := order.NewService(
		memory.NewOrderRepository(),
		memory.NewTimelineRepository(),
		memory.NewOutboxRepository(),
		nil,
		entry,
	)
	handler := rest.NewHandler(svc, memory.NewIdempotencyRepository(), time.Hour, entry)

	e := echo.New()
	handler.Register(e)
	return e
}

func doJSON(e *echo.Echo, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

const createBody = `{
	"customerId": "customer-1",
	"createdBy": "user-1",
	"items": [
		{"productId": "product-1", "quantity": 2, "price": 100},
		{"productId": "product-2", "quantity": 1, "price": 50}
	],
	"discount": 25,
	"taxAmount": 15
}`

type orderJSON struct {
	ID          string  `json:"id"`
	OrderNumber string  `json:"orderNumber"`
	Status      string  `json:"status"`
	TotalAmount float64 `json:"totalAmount"`
	Version     int64   `json:"version"`
}

type errorJSON struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func createOrderViaAPI(t *testing.T, e *echo.Echo) orderJSON {
	t.Helper()

	rec := doJSON(e, http.MethodPost, "/api/v1/orders", createBody, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created orderJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	return created
}

func TestCreateOrderEndpoint(t *testing.T) {
	e := newTestServer()

	created := createOrderViaAPI(t, e)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "PENDING", created.Status)
	require.InDelta(t, 240, created.TotalAmount, 0.01)
	require.True(t, strings.HasPrefix(created.OrderNumber, "ORD-"))
}

func TestCreateOrderEndpoint_ValidationError(t *testing.T) {
	e := newTestServer()

	body := `{"customerId": "customer-1", "createdBy": "user-1", "items": []}`
	rec := doJSON(e, http.MethodPost, "/api/v1/orders", body, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp.Message, "Order must have at least one item")
}

func TestCreateOrderEndpoint_MalformedBody(t *testing.T) {
	e := newTestServer()

	rec := doJSON(e, http.MethodPost, "/api/v1/orders", `{"customerId": `, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetOrderEndpoint_NotFound(t *testing.T) {
	e := newTestServer()

	rec := doJSON(e, http.MethodGet, "/api/v1/orders/missing", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOrderEndpoint(t *testing.T) {
	e := newTestServer()
	created := createOrderViaAPI(t, e)

	rec := doJSON(e, http.MethodGet, "/api/v1/orders/"+created.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var fetched orderJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	require.Equal(t, created.ID, fetched.ID)
}

func TestUpdateOrderEndpoint(t *testing.T) {
	e := newTestServer()
	created := createOrderViaAPI(t, e)

	body := `{"items": [{"productId": "product-9", "quantity": 1, "price": 30}]}`
	rec := doJSON(e, http.MethodPut, "/api/v1/orders/"+created.ID, body, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated orderJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	// 1*30 - 25 + 15 = 20
	require.InDelta(t, 20, updated.TotalAmount, 0.01)
	require.Equal(t, int64(1), updated.Version)
}

func TestUpdateStatusEndpoint(t *testing.T) {
	e := newTestServer()
	created := createOrderViaAPI(t, e)

	rec := doJSON(e, http.MethodPatch, "/api/v1/orders/"+created.ID+"/status", `{"status": "CONFIRMED"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated orderJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Equal(t, "CONFIRMED", updated.Status)
}

func TestUpdateStatusEndpoint_UnknownStatus(t *testing.T) {
	e := newTestServer()
	created := createOrderViaAPI(t, e)

	rec := doJSON(e, http.MethodPatch, "/api/v1/orders/"+created.ID+"/status", `{"status": "TELEPORTED"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp.Message, "Invalid order status")
}

func TestUpdateStatusEndpoint_InvalidTransition(t *testing.T) {
	e := newTestServer()
	created := createOrderViaAPI(t, e)

	rec := doJSON(e, http.MethodPatch, "/api/v1/orders/"+created.ID+"/status", `{"status": "DELIVERED"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp.Message, "Invalid status transition from PENDING to DELIVERED")
}

func TestDeleteOrderEndpoint_Guard(t *testing.T) {
	e := newTestServer()
	created := createOrderViaAPI(t, e)

	for _, status := range []string{"CONFIRMED", "PROCESSING"} {
		rec := doJSON(e, http.MethodPatch, "/api/v1/orders/"+created.ID+"/status", `{"status": "`+status+`"}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doJSON(e, http.MethodDelete, "/api/v1/orders/"+created.ID, "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp.Message, "Cannot delete order with status PROCESSING")
}

func TestDeleteOrderEndpoint(t *testing.T) {
	e := newTestServer()
	created := createOrderViaAPI(t, e)

	rec := doJSON(e, http.MethodDelete, "/api/v1/orders/"+created.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/v1/orders/"+created.ID, "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListOrdersEndpoint(t *testing.T) {
	e := newTestServer()
	for i := 0; i < 3; i++ {
		createOrderViaAPI(t, e)
	}

	rec := doJSON(e, http.MethodGet, "/api/v1/orders?page=1&limit=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page struct {
		Items      []orderJSON `json:"items"`
		Total      int         `json:"total"`
		TotalPages int         `json:"totalPages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Equal(t, 3, page.Total)
	require.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 2)
}

func TestListOrdersEndpoint_BadParams(t *testing.T) {
	e := newTestServer()

	rec := doJSON(e, http.MethodGet, "/api/v1/orders?page=abc", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/v1/orders?status=UNKNOWN", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/v1/orders?dateFrom=not-a-date", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatisticsEndpoint(t *testing.T) {
	e := newTestServer()
	createOrderViaAPI(t, e)
	createOrderViaAPI(t, e)

	rec := doJSON(e, http.MethodGet, "/api/v1/orders/stats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats struct {
		Total   int `json:"total"`
		Pending int `json:"pending"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Equal(t, 2, stats.Total)
	require.Equal(t, 2, stats.Pending)
}

func TestCustomerOrdersEndpoint(t *testing.T) {
	e := newTestServer()
	createOrderViaAPI(t, e)

	rec := doJSON(e, http.MethodGet, "/api/v1/customers/customer-1/orders", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var orders []orderJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	require.Len(t, orders, 1)
}

func TestOrderHistoryEndpoint(t *testing.T) {
	e := newTestServer()
	created := createOrderViaAPI(t, e)

	rec := doJSON(e, http.MethodPatch, "/api/v1/orders/"+created.ID+"/status", `{"status": "CONFIRMED"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/v1/orders/"+created.ID+"/history", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var history struct {
		Order         orderJSON `json:"order"`
		StatusHistory []struct {
			Status string `json:"status"`
		} `json:"statusHistory"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Equal(t, created.ID, history.Order.ID)
	require.Len(t, history.StatusHistory, 2)
	require.Equal(t, "PENDING", history.StatusHistory[0].Status)
	require.Equal(t, "CONFIRMED", history.StatusHistory[1].Status)
}

func TestCreateOrderEndpoint_IdempotencyReplay(t *testing.T) {
	e := newTestServer()
	headers := map[string]string{"Idempotency-Key": "create-1"}

	first := doJSON(e, http.MethodPost, "/api/v1/orders", createBody, headers)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	var firstOrder orderJSON
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &firstOrder))

	// Повтор с тем же ключом и телом — тот же заказ, без дубликата.
	second := doJSON(e, http.MethodPost, "/api/v1/orders", createBody, headers)
	require.Equal(t, http.StatusCreated, second.Code)

	var secondOrder orderJSON
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &secondOrder))
	require.Equal(t, firstOrder.ID, secondOrder.ID)

	list := doJSON(e, http.MethodGet, "/api/v1/orders", "", nil)
	var page struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &page))
	require.Equal(t, 1, page.Total)
}

func TestCreateOrderEndpoint_IdempotencyHashMismatch(t *testing.T) {
	e := newTestServer()
	headers := map[string]string{"Idempotency-Key": "create-1"}

	first := doJSON(e, http.MethodPost, "/api/v1/orders", createBody, headers)
	require.Equal(t, http.StatusCreated, first.Code)

	otherBody := strings.Replace(createBody, "customer-1", "customer-2", 1)
	second := doJSON(e, http.MethodPost, "/api/v1/orders", otherBody, headers)
	require.Equal(t, http.StatusConflict, second.Code)

	var resp errorJSON
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	require.Contains(t, resp.Message, "different request")
}

func TestCreateOrderEndpoint_IdempotentValidationReplay(t *testing.T) {
	e := newTestServer()
	headers := map[string]string{"Idempotency-Key": "bad-1"}
	body := `{"customerId": "customer-1", "createdBy": "user-1", "items": []}`

	first := doJSON(e, http.MethodPost, "/api/v1/orders", body, headers)
	require.Equal(t, http.StatusBadRequest, first.Code)

	second := doJSON(e, http.MethodPost, "/api/v1/orders", body, headers)
	require.Equal(t, http.StatusBadRequest, second.Code)

	var resp errorJSON
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	require.Contains(t, resp.Message, "Order must have at least one item")
}
