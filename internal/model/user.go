package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubscriptionTier drives the tier discount a user receives.
type SubscriptionTier string

const (
	TierFree     SubscriptionTier = "free"
	TierPremium  SubscriptionTier = "premium"
	TierBusiness SubscriptionTier = "business"
)

// Valid reports whether the tier is one of the known subscription levels.
func (t SubscriptionTier) Valid() bool {
	switch t {
	case TierFree, TierPremium, TierBusiness:
		return true
	}
	return false
}

// User represents a marketplace customer.
type User struct {
	ID               uuid.UUID        `json:"user_id" db:"id"`
	Username         string           `json:"username" db:"username"`
	Email            string           `json:"email" db:"email"`
	Country          string           `json:"country" db:"country"`
	SubscriptionTier SubscriptionTier `json:"subscription_tier" db:"subscription_tier"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
}

// Seller owns products and promotions.
type Seller struct {
	ID             uuid.UUID       `json:"seller_id" db:"id"`
	Name           string          `json:"name" db:"name"`
	Email          string          `json:"email" db:"email"`
	CommissionRate decimal.Decimal `json:"commission_rate" db:"commission_rate"`
	Rating         decimal.Decimal `json:"rating" db:"rating"`
	Country        string          `json:"country" db:"country"`
	IsActive       bool            `json:"is_active" db:"is_active"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}
