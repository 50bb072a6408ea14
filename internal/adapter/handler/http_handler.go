package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sony/gobreaker"

	"github.com/rl1809/stock-lookup/internal/core/domain"
	"github.com/rl1809/stock-lookup/internal/core/service"
	"github.com/rl1809/stock-lookup/internal/port"
)

const (
	maxBodyBytes = 64 << 10

	// statusClientClosedRequest is the de facto code for a caller that
	// disconnected before the response was ready.
	statusClientClosedRequest = 499
)

type HTTPHandler struct {
	lookupService *service.LookupService
	health        port.HealthChecker
	validate      *validator.Validate
}

type BatchLookupRequest struct {
	SKUs []string `json:"skus" validate:"required,min=1,max=50"`
}

type ErrorResponse struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Data    ErrorData `json:"data"`
}

type ErrorData struct {
	Status int `json:"status"`
}

func NewHTTPHandler(lookupService *service.LookupService, health port.HealthChecker) *HTTPHandler {
	return &HTTPHandler{
		lookupService: lookupService,
		health:        health,
		validate:      validator.New(),
	}
}

func (h *HTTPHandler) LookupBySKU(w http.ResponseWriter, r *http.Request) {
	record, err := h.lookupService.GetBySKU(r.Context(), chi.URLParam(r, "sku"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func (h *HTTPHandler) LookupBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchLookupRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, newErrorResponse(http.StatusBadRequest, "invalid_body", "invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		writeError(w, service.ErrBatchSize)
		return
	}

	results, err := h.lookupService.GetBySKUs(r.Context(), req.SKUs)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, results)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.health.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func newErrorResponse(status int, code, message string) ErrorResponse {
	return ErrorResponse{Code: code, Message: message, Data: ErrorData{Status: status}}
}

// mapError translates service errors into an HTTP status and a stable error code.
func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		return http.StatusNotFound, "not_found", domain.NotFoundMessage
	case errors.Is(err, service.ErrInvalidSKU):
		return http.StatusBadRequest, "invalid_sku", "sku must match [a-zA-Z0-9-_]+"
	case errors.Is(err, service.ErrBatchSize):
		return http.StatusBadRequest, "invalid_batch_size", service.ErrBatchSize.Error()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return http.StatusServiceUnavailable, "store_unavailable", "catalog store temporarily unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "store_timeout", "catalog store timed out"
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest, "request_canceled", "request canceled"
	case errors.Is(err, service.ErrStoreFailure):
		return http.StatusInternalServerError, domain.StoreFailureCode, "catalog store failure"
	default:
		return http.StatusInternalServerError, "internal_error", "internal error"
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, code, message := mapError(err)
	writeJSON(w, status, newErrorResponse(status, code, message))
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
