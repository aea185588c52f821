package model

import (
	"time"

	"github.com/google/uuid"
)

// Analytics event types written by the checkout core.
const (
	EventOrderCompleted = "order_completed"
)

// AnalyticsEvent is an append-only record of something that happened.
type AnalyticsEvent struct {
	ID        uuid.UUID      `json:"id" db:"id"`
	EventType string         `json:"event_type" db:"event_type"`
	UserID    *uuid.UUID     `json:"user_id,omitempty" db:"user_id"`
	SellerID  *uuid.UUID     `json:"seller_id,omitempty" db:"seller_id"`
	ProductID *uuid.UUID     `json:"product_id,omitempty" db:"product_id"`
	Metadata  map[string]any `json:"metadata" db:"metadata"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}
