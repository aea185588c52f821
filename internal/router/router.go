package router

import (
	"net/http"

	"marketplace/internal/handler"
	"marketplace/internal/middleware"
	"marketplace/internal/telemetry"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// New creates a new HTTP router with all routes and middleware configured.
// A nil metrics handler leaves /metrics unregistered.
func New(
	productHandler *handler.ProductHandler,
	orderHandler *handler.OrderHandler,
	checkoutHandler *handler.CheckoutHandler,
	metrics http.Handler,
	apiKey string,
	logger zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint (no authentication required)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	mux.HandleFunc("POST /api/orders/checkout", telemetry.WithHTTPRoute(checkoutHandler.Checkout))
	mux.HandleFunc("GET /api/orders/{id}", telemetry.WithHTTPRoute(orderHandler.GetByID))
	mux.HandleFunc("POST /api/transactions/{id}/refund", telemetry.WithHTTPRoute(orderHandler.Refund))
	mux.HandleFunc("GET /api/shipments/{order_id}", telemetry.WithHTTPRoute(orderHandler.Tracking))

	mux.HandleFunc("GET /api/products", telemetry.WithHTTPRoute(productHandler.GetAll))
	mux.HandleFunc("GET /api/products/search", telemetry.WithHTTPRoute(productHandler.Search))
	mux.HandleFunc("GET /api/products/{id}", telemetry.WithHTTPRoute(productHandler.GetByID))

	traced := otelhttp.NewHandler(mux, "marketplace",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			if r.Pattern != "" {
				return r.Pattern
			}
			return r.Method + " " + r.URL.Path
		}),
	)

	// Apply middleware in order: RequestID -> Recovery -> Logging -> CORS -> APIKeyAuth
	var handler http.Handler = traced
	handler = middleware.APIKeyAuth(apiKey, logger)(handler)
	handler = middleware.CORS(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Recovery(logger)(handler)
	handler = middleware.RequestID(handler)

	return handler
}
