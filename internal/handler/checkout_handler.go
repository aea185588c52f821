package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"marketplace/internal/model"
	"marketplace/internal/service"

	"github.com/rs/zerolog"
)

// checkoutFailed is reported for failures that carry no business message.
const checkoutFailed = "checkout failed"

// CheckoutHandler handles checkout requests.
type CheckoutHandler struct {
	service service.CheckoutService
	logger  zerolog.Logger
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(service service.CheckoutService, logger zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: service,
		logger:  logger.With().Str("handler", "checkout").Logger(),
	}
}

// Checkout handles POST /api/orders/checkout. Every failure is a 400.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req model.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	resp, err := h.service.Checkout(r.Context(), &req)
	if err != nil {
		var de *model.DomainError
		if errors.As(err, &de) {
			writeError(w, r, http.StatusBadRequest, de.Code, de.Message, h.logger)
			return
		}
		h.logger.Error().Err(err).Str("user_id", req.UserID.String()).Msg("checkout failed")
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInternalError, checkoutFailed, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
