// Package shipping estimates shipping charges and reports shipment tracking.
package shipping

import (
	"strings"
	"time"

	"marketplace/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	baseRate               = decimal.RequireFromString("5.00")
	perKgRate              = decimal.RequireFromString("2.00")
	internationalSurcharge = decimal.RequireFromString("15.00")
	expressSurcharge       = decimal.RequireFromString("20.00")
)

// Carrier is the only carrier shipments are handed to.
const Carrier = "StandardShipping"

// transitTime is the estimated delivery delay from the tracking lookup.
const transitTime = 5 * 24 * time.Hour

// Calculate prices a shipment: a base rate, a per-kilogram rate, and
// surcharges for non-US destinations and express delivery.
func Calculate(lines []model.ShipmentLine, addr model.Address) decimal.Decimal {
	weight := decimal.Zero
	for _, line := range lines {
		weight = weight.Add(line.WeightKg.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	cost := baseRate.Add(weight.Mul(perKgRate))
	if !addr.IsDomestic() {
		cost = cost.Add(internationalSurcharge)
	}
	if addr.Express() {
		cost = cost.Add(expressSurcharge)
	}

	return cost.Round(2)
}

// TrackingInfo describes where a shipment is.
type TrackingInfo struct {
	TrackingNumber    string    `json:"tracking_number"`
	Carrier           string    `json:"carrier"`
	Status            string    `json:"status"`
	EstimatedDelivery time.Time `json:"estimated_delivery"`
}

// Tracker reports shipment status.
type Tracker struct {
	now func() time.Time
}

// NewTracker creates a Tracker using now for delivery estimates. A nil now uses time.Now.
func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{now: now}
}

// GetTrackingInfo returns the tracking record for orderID.
func (t *Tracker) GetTrackingInfo(orderID uuid.UUID) TrackingInfo {
	return TrackingInfo{
		TrackingNumber:    TrackingNumber(orderID),
		Carrier:           Carrier,
		Status:            "in_transit",
		EstimatedDelivery: t.now().Add(transitTime),
	}
}

// TrackingNumber derives the carrier tracking number of an order.
func TrackingNumber(orderID uuid.UUID) string {
	return "TRK" + strings.ToUpper(orderID.String()[:8])
}
