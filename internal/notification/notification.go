// Package notification delivers order and inventory notices to customers,
// sellers and operators. Delivery is asynchronous and never affects the
// outcome of the checkout that produced the notice.
package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind identifies what a notification is about.
type Kind string

const (
	KindOrderConfirmation Kind = "order_confirmation"
	KindSellerNewOrder    Kind = "seller_new_order"
	KindLowStock          Kind = "low_stock"
)

// Notification is a single notice handed to a Sender.
type Notification struct {
	ID        uuid.UUID      `json:"id"`
	Kind      Kind           `json:"kind"`
	Recipient string         `json:"recipient,omitempty"`
	OrderID   *uuid.UUID     `json:"order_id,omitempty"`
	SellerID  *uuid.UUID     `json:"seller_id,omitempty"`
	ProductID *uuid.UUID     `json:"product_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Key is the partitioning key used when the notification is published.
// Notices about the same order or product land on the same partition.
func (n Notification) Key() string {
	switch {
	case n.OrderID != nil:
		return n.OrderID.String()
	case n.ProductID != nil:
		return n.ProductID.String()
	default:
		return n.ID.String()
	}
}

// Sender delivers a notification.
type Sender interface {
	Send(ctx context.Context, n Notification) error
	Close() error
}

// OrderConfirmation tells the buyer their order went through.
func OrderConfirmation(orderID uuid.UUID, email string, total decimal.Decimal) Notification {
	return Notification{
		ID:        uuid.New(),
		Kind:      KindOrderConfirmation,
		Recipient: email,
		OrderID:   &orderID,
		Data:      map[string]any{"total": total.StringFixed(2)},
		CreatedAt: time.Now().UTC(),
	}
}

// SellerNewOrder tells a seller that an order contains their products.
func SellerNewOrder(sellerID, orderID uuid.UUID, items int) Notification {
	return Notification{
		ID:        uuid.New(),
		Kind:      KindSellerNewOrder,
		OrderID:   &orderID,
		SellerID:  &sellerID,
		Data:      map[string]any{"order_id": orderID.String(), "items": items},
		CreatedAt: time.Now().UTC(),
	}
}

// LowStock alerts that a product's remaining stock fell to the alert threshold.
func LowStock(productID uuid.UUID, remaining int) Notification {
	return Notification{
		ID:        uuid.New(),
		Kind:      KindLowStock,
		ProductID: &productID,
		Data:      map[string]any{"current_stock": remaining},
		CreatedAt: time.Now().UTC(),
	}
}
