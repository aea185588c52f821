package handler

import (
	"net/http"
	"strconv"

	"marketplace/internal/model"
	"marketplace/internal/service"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ProductHandler handles product-related HTTP requests.
type ProductHandler struct {
	service service.ProductService
	logger  zerolog.Logger
}

// NewProductHandler creates a new product handler.
func NewProductHandler(service service.ProductService, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger.With().Str("handler", "product").Logger(),
	}
}

// GetAll handles GET /api/products requests with pagination.
func (h *ProductHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	// Parse query parameters
	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")

	limit := 10 // default
	if limitStr != "" {
		var err error
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidParameter, "invalid limit parameter", h.logger)
			return
		}
	}

	offset := 0 // default
	if offsetStr != "" {
		var err error
		offset, err = strconv.Atoi(offsetStr)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidParameter, "invalid offset parameter", h.logger)
			return
		}
	}

	products, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		writeDomainError(w, r, err, "failed to retrieve products", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, products)
}

// GetByID handles GET /api/products/{id} requests.
func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidParameter, "invalid product ID format", h.logger)
		return
	}

	product, err := h.service.GetByID(r.Context(), productID)
	if err != nil {
		writeDomainError(w, r, err, "failed to retrieve product", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// Search handles GET /api/products/search requests.
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := model.SearchParams{
		Query:    q.Get("q"),
		Category: q.Get("category"),
	}

	var ok bool
	if params.MinPrice, ok = parsePrice(q.Get("min_price")); !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidParameter, "invalid min_price parameter", h.logger)
		return
	}
	if params.MaxPrice, ok = parsePrice(q.Get("max_price")); !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidParameter, "invalid max_price parameter", h.logger)
		return
	}

	results, err := h.service.Search(r.Context(), params)
	if err != nil {
		writeDomainError(w, r, err, "failed to search products", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, results)
}

// parsePrice reads an optional price bound. Empty means no bound.
func parsePrice(raw string) (*decimal.Decimal, bool) {
	if raw == "" {
		return nil, true
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return nil, false
	}
	return &d, true
}
