package handler

import (
	"net/http"

	"marketplace/internal/model"
	"marketplace/internal/service"

	"github.com/rs/zerolog"
)

// OrderHandler handles order, refund and shipment requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// GetByID handles GET /api/orders/{id} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidParameter, "invalid order ID format", h.logger)
		return
	}

	order, err := h.service.GetByID(r.Context(), orderID)
	if err != nil {
		writeDomainError(w, r, err, "failed to retrieve order", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Refund handles POST /api/transactions/{id}/refund requests.
func (h *OrderHandler) Refund(w http.ResponseWriter, r *http.Request) {
	transactionID, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidParameter, "invalid transaction ID format", h.logger)
		return
	}

	result, err := h.service.RefundTransaction(r.Context(), transactionID)
	if err != nil {
		writeDomainError(w, r, err, "failed to refund transaction", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Tracking handles GET /api/shipments/{order_id} requests.
func (h *OrderHandler) Tracking(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(r, "order_id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidParameter, "invalid order ID format", h.logger)
		return
	}

	info, err := h.service.Tracking(r.Context(), orderID)
	if err != nil {
		writeDomainError(w, r, err, "failed to retrieve tracking", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, info)
}
