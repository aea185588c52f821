package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a sellable item in the catalogue.
type Product struct {
	ID             uuid.UUID       `json:"product_id" db:"id"`
	SellerID       uuid.UUID       `json:"seller_id" db:"seller_id"`
	CategoryID     *uuid.UUID      `json:"category_id,omitempty" db:"category_id"`
	Name           string          `json:"name" db:"name"`
	Description    string          `json:"description" db:"description"`
	Price          decimal.Decimal `json:"price" db:"price"`
	Cost           decimal.Decimal `json:"cost" db:"cost"`
	InventoryCount int             `json:"inventory_count" db:"inventory_count"`
	ReservedCount  int             `json:"reserved_count" db:"reserved_count"`
	IsActive       bool            `json:"is_active" db:"is_active"`
	WeightKg       decimal.Decimal `json:"weight_kg" db:"weight_kg"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// Available returns the stock that is neither sold nor held by an in-flight order.
func (p *Product) Available() int {
	return p.InventoryCount - p.ReservedCount
}

// SearchParams filters a catalogue search. Zero values mean "no filter".
type SearchParams struct {
	Query    string           `json:"q,omitempty"`
	Category string           `json:"category,omitempty"`
	MinPrice *decimal.Decimal `json:"min_price,omitempty"`
	MaxPrice *decimal.Decimal `json:"max_price,omitempty"`
}

// SearchResult is a single row of a catalogue search.
type SearchResult struct {
	ProductID  uuid.UUID       `json:"product_id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	SellerName string          `json:"seller_name"`
	Inventory  int             `json:"inventory"`
}

// ShipmentLine is the part of an order line the shipping estimator needs.
type ShipmentLine struct {
	WeightKg decimal.Decimal
	Quantity int
}
