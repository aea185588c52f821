package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is a state of the order lifecycle.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderPaid       OrderStatus = "paid"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
	OrderRefunded   OrderStatus = "refunded"
)

// Order represents a customer order.
type Order struct {
	ID              uuid.UUID       `json:"order_id" db:"id"`
	UserID          uuid.UUID       `json:"user_id" db:"user_id"`
	Status          OrderStatus     `json:"status" db:"status"`
	Subtotal        decimal.Decimal `json:"subtotal" db:"subtotal"`
	Tax             decimal.Decimal `json:"tax" db:"tax"`
	Shipping        decimal.Decimal `json:"shipping" db:"shipping"`
	Total           decimal.Decimal `json:"total" db:"total"`
	ShippingAddress Address         `json:"shipping_address" db:"shipping_address"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// OrderItem represents a line item in an order.
type OrderItem struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	OrderID         uuid.UUID       `json:"-" db:"order_id"`
	ProductID       uuid.UUID       `json:"product_id" db:"product_id"`
	Quantity        int             `json:"quantity" db:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase" db:"price_at_purchase"`
	DiscountAmount  decimal.Decimal `json:"discount_amount" db:"discount_amount"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// CheckoutRequest represents the request payload for a checkout.
type CheckoutRequest struct {
	UserID          uuid.UUID             `json:"user_id"`
	Items           []CheckoutItemRequest `json:"items"`
	PaymentMethod   string                `json:"payment_method"`
	ShippingAddress Address               `json:"shipping_address"`
	PromoCode       string                `json:"promo_code,omitempty"`
}

// CheckoutItemRequest represents a single item in a checkout request.
type CheckoutItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// CheckoutResponse summarises a completed checkout.
type CheckoutResponse struct {
	OrderID  uuid.UUID       `json:"order_id"`
	Status   string          `json:"status"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// OrderResponse represents an order with its lines and payment attempts.
type OrderResponse struct {
	Order
	Items        []OrderItem   `json:"items"`
	Transactions []Transaction `json:"transactions"`
}
