package rest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Selbihan/Codifya-ERP-sub000/internal/domain"
)

const (
	idempotencyKeyHeader  = "Idempotency-Key"
	defaultIdempotencyTTL = 24 * time.Hour
)

// createOrderIdempotent обрабатывает создание заказа с заголовком
// Idempotency-Key: повторный запрос с тем же ключом и телом получает
// сохранённый ответ, с другим телом — 409.
func (h *Handler) createOrderIdempotent(ctx echo.Context, key string) error {
	body, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return h.badRequest(ctx, "Invalid request body")
	}
	requestHash := hashRequest(body)

	record, err := h.idem.CreateProcessing(key, requestHash, time.Now().Add(h.ttl))
	if err != nil {
		if errors.Is(err, domain.ErrIdempotencyConflict) {
			return h.replayRecord(ctx, record, requestHash)
		}
		return h.writeError(ctx, err)
	}

	var req createOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.storeOutcome(key, http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid request body",
		}, false)
		return h.badRequest(ctx, "Invalid request body")
	}

	created, err := h.orders.CreateOrder(ctx.Request().Context(), toCreateInput(req))
	if err != nil {
		code, message := h.errorStatus(err)
		h.storeOutcome(key, code, errorResponse{Code: code, Message: message}, false)
		return ctx.JSON(code, errorResponse{Code: code, Message: message})
	}

	response := toOrderResponse(created)
	h.storeOutcome(key, http.StatusCreated, response, true)
	return ctx.JSON(http.StatusCreated, response)
}

// replayRecord отдаёт сохранённый результат для повторного запроса.
func (h *Handler) replayRecord(ctx echo.Context, record domain.IdempotencyRecord, requestHash string) error {
	if record.RequestHash != requestHash {
		return ctx.JSON(http.StatusConflict, errorResponse{
			Code:    http.StatusConflict,
			Message: "Idempotency-Key is already used with a different request",
		})
	}

	switch record.Status {
	case domain.IdempotencyStatusDone, domain.IdempotencyStatusFailed:
		return ctx.JSONBlob(record.HTTPStatus, record.ResponseBody)
	default:
		return ctx.JSON(http.StatusConflict, errorResponse{
			Code:    http.StatusConflict,
			Message: "Request with this Idempotency-Key is still being processed",
		})
	}
}

// storeOutcome сохраняет результат обработки; ошибка хранения не ломает ответ.
func (h *Handler) storeOutcome(key string, httpStatus int, payload any, success bool) {
	body, err := json.Marshal(payload)
	if err != nil {
		h.logger.WithError(err).WithField("idempotency_key", key).Warn("failed to marshal idempotency response")
		return
	}

	if success {
		err = h.idem.MarkDone(key, body, httpStatus)
	} else {
		err = h.idem.MarkFailed(key, body, httpStatus)
	}
	if err != nil {
		h.logger.WithError(err).WithField("idempotency_key", key).Warn("failed to store idempotency outcome")
	}
}

func hashRequest(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
