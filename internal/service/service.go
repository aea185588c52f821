package service

import (
	"context"

	"marketplace/internal/model"
	"marketplace/internal/shipping"

	"github.com/google/uuid"
)

// ProductService defines read operations over the catalogue.
type ProductService interface {
	// GetAll retrieves products with pagination.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)

	// Search finds active products matching params.
	Search(ctx context.Context, params model.SearchParams) ([]model.SearchResult, error)
}

// OrderService defines operations on placed orders.
type OrderService interface {
	// GetByID retrieves an order with its items and payment attempts.
	GetByID(ctx context.Context, id uuid.UUID) (*model.OrderResponse, error)

	// RefundTransaction refunds a completed payment.
	RefundTransaction(ctx context.Context, transactionID uuid.UUID) (*model.RefundResult, error)

	// Tracking reports the shipment status of an order.
	Tracking(ctx context.Context, orderID uuid.UUID) (*shipping.TrackingInfo, error)
}

// CheckoutService turns a cart into a paid order.
type CheckoutService interface {
	// Checkout validates, prices, reserves, screens and charges a cart atomically.
	Checkout(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResponse, error)
}
