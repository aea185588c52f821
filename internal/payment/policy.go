package payment

import (
	"math/rand/v2"

	"github.com/shopspring/decimal"
)

// Policy decides whether a charge goes through.
type Policy interface {
	Approve(amount decimal.Decimal) bool
}

var (
	highValue = decimal.NewFromInt(10000)
	midValue  = decimal.NewFromInt(5000)
)

// TieredPolicy approves with a success rate that falls as the amount grows.
type TieredPolicy struct {
	roll func() float64
}

// NewTieredPolicy returns a TieredPolicy drawing from roll, which must
// return values in [0, 1). A nil roll uses math/rand.
func NewTieredPolicy(roll func() float64) *TieredPolicy {
	if roll == nil {
		roll = rand.Float64
	}
	return &TieredPolicy{roll: roll}
}

// SuccessRate returns the approval probability for amount.
func SuccessRate(amount decimal.Decimal) float64 {
	switch {
	case amount.GreaterThan(highValue):
		return 0.70
	case amount.GreaterThan(midValue):
		return 0.85
	default:
		return 0.95
	}
}

func (p *TieredPolicy) Approve(amount decimal.Decimal) bool {
	return p.roll() < SuccessRate(amount)
}

type constantPolicy bool

func (c constantPolicy) Approve(decimal.Decimal) bool { return bool(c) }

// AlwaysApprove approves every charge.
var AlwaysApprove Policy = constantPolicy(true)

// AlwaysDecline declines every charge.
var AlwaysDecline Policy = constantPolicy(false)

// PolicyByName maps a configured policy name to a Policy.
func PolicyByName(name string) (Policy, bool) {
	switch name {
	case "", "tiered":
		return NewTieredPolicy(nil), true
	case "approve":
		return AlwaysApprove, true
	case "decline":
		return AlwaysDecline, true
	}
	return nil, false
}
