// Package handler exposes the marketplace services over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"marketplace/internal/middleware"
	"marketplace/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func init() {
	// Money is rendered as a JSON number rather than a quoted string.
	decimal.MarshalJSONWithoutQuotes = true
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, logger zerolog.Logger) {
	requestID := middleware.GetRequestID(r.Context())
	logger.Error().
		Str("error", message).
		Str("code", code).
		Str("request_id", requestID).
		Int("status", status).
		Msg("handler error")
	writeJSON(w, status, model.ErrorResponse{Error: message, Code: code, CorrelationID: requestID})
}

// writeDomainError maps err to a response: domain errors keep their message,
// NOT_FOUND becomes 404 and other domain codes badRequest. Anything else is a 500
// with fallback as the message.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error, fallback string, logger zerolog.Logger) {
	var de *model.DomainError
	if !errors.As(err, &de) {
		logger.Error().Err(err).Msg(fallback)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, fallback, logger)
		return
	}

	status := http.StatusBadRequest
	if de.Code == model.ErrCodeNotFound {
		status = http.StatusNotFound
	}
	writeError(w, r, status, de.Code, de.Message, logger)
}

// pathID parses the named path segment as a UUID.
func pathID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
