package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountType is how a promotion's value is interpreted.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// DefaultUsageLimit applies when a catalogue entry does not set one.
const DefaultUsageLimit = 1000

// Promotion is a seller-issued discount code.
type Promotion struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	Code              string          `json:"code" db:"code"`
	SellerID          uuid.UUID       `json:"seller_id" db:"seller_id"`
	DiscountType      DiscountType    `json:"discount_type" db:"discount_type"`
	DiscountValue     decimal.Decimal `json:"discount_value" db:"discount_value"`
	MinPurchaseAmount decimal.Decimal `json:"min_purchase_amount" db:"min_purchase_amount"`
	UsageLimit        int             `json:"usage_limit" db:"usage_limit"`
	UsageCount        int             `json:"usage_count" db:"usage_count"`
	StartDate         time.Time       `json:"start_date" db:"start_date"`
	EndDate           time.Time       `json:"end_date" db:"end_date"`
	IsActive          bool            `json:"is_active" db:"is_active"`
}

// ApplicableAt reports whether the promotion may be applied at t.
func (p *Promotion) ApplicableAt(t time.Time) bool {
	if !p.IsActive {
		return false
	}
	if t.Before(p.StartDate) || t.After(p.EndDate) {
		return false
	}
	return p.UsageCount < p.UsageLimit
}
