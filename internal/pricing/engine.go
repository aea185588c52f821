// Package pricing computes line prices from catalogue price, subscription
// tier and promotion codes, subject to a discount cap.
package pricing

import (
	"context"
	"fmt"
	"time"

	"marketplace/internal/model"
	"marketplace/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultMaxDiscountPercent caps the combined discount of a line.
const DefaultMaxDiscountPercent = 10

// currencyPlaces is the precision quotes are rounded to.
const currencyPlaces = 2

var (
	hundred   = decimal.NewFromInt(100)
	tierRates = map[model.SubscriptionTier]decimal.Decimal{
		model.TierPremium:  decimal.RequireFromString("0.05"),
		model.TierBusiness: decimal.RequireFromString("0.10"),
	}
)

// TierRate returns the fractional discount a tier receives.
func TierRate(tier model.SubscriptionTier) decimal.Decimal {
	if rate, ok := tierRates[tier]; ok {
		return rate
	}
	return decimal.Zero
}

// Quote is the priced result for one order line.
type Quote struct {
	// UnitPrice is the tier-discounted unit price. It is informational only.
	UnitPrice decimal.Decimal
	// Total is what the line costs after all discounts.
	Total decimal.Decimal
	// Discount is the combined, capped discount for the whole line.
	Discount decimal.Decimal
	// Promotion is the promotion consumed by this line, if any.
	Promotion *model.Promotion
}

// Engine prices order lines.
type Engine struct {
	promotions repository.PromotionRepository
	now        func() time.Time
	logger     zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time used to check promotion windows.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a pricing engine that resolves promo codes through promotions.
func NewEngine(promotions repository.PromotionRepository, logger zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		promotions: promotions,
		now:        time.Now,
		logger:     logger.With().Str("component", "pricing").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CalculatePrice prices quantity units of product. Every amount is derived
// from the catalogue price, so repeated calls never compound discounts.
// A matched promotion has its usage incremented inside tx.
func (e *Engine) CalculatePrice(
	ctx context.Context,
	tx pgx.Tx,
	product *model.Product,
	quantity int,
	tier model.SubscriptionTier,
	promoCode string,
	maxDiscountPercent decimal.Decimal,
) (*Quote, error) {
	if product == nil {
		return nil, model.ErrProductNotFound
	}
	if quantity <= 0 {
		return nil, model.ErrInvalidQuantity
	}

	original := product.Price
	qty := decimal.NewFromInt(int64(quantity))
	base := original.Mul(qty)

	rate := TierRate(tier)
	tierDiscount := original.Mul(rate)
	unitPrice := original.Sub(tierDiscount)

	promoDiscount := decimal.Zero
	var applied *model.Promotion
	if promoCode != "" {
		promo, err := e.applyPromotion(ctx, tx, promoCode)
		if err != nil {
			return nil, err
		}
		if promo != nil {
			applied = promo
			switch promo.DiscountType {
			case model.DiscountPercentage:
				promoDiscount = base.Mul(promo.DiscountValue).Div(hundred)
			case model.DiscountFixed:
				promoDiscount = promo.DiscountValue
			}
		}
	}

	discount := tierDiscount.Mul(qty).Add(promoDiscount)

	switch {
	case !base.IsPositive():
		// Nothing to discount on a free line.
		discount = decimal.Zero
	case discount.Mul(hundred).GreaterThan(maxDiscountPercent.Mul(base)):
		discount = base.Mul(maxDiscountPercent).Div(hundred)
	}

	total := base.Sub(discount)

	e.logger.Debug().
		Str("product_id", product.ID.String()).
		Int("quantity", quantity).
		Str("tier", string(tier)).
		Str("discount", discount.StringFixed(currencyPlaces)).
		Str("total", total.StringFixed(currencyPlaces)).
		Bool("promotion_applied", applied != nil).
		Msg("line priced")

	return &Quote{
		UnitPrice: unitPrice.Round(currencyPlaces),
		Total:     total.Round(currencyPlaces),
		Discount:  discount.Round(currencyPlaces),
		Promotion: applied,
	}, nil
}

// applyPromotion returns the promotion for code after consuming one use, or
// nil when there is nothing applicable.
func (e *Engine) applyPromotion(ctx context.Context, tx pgx.Tx, code string) (*model.Promotion, error) {
	promo, err := e.promotions.FindApplicable(ctx, tx, code, e.now())
	if err != nil {
		return nil, fmt.Errorf("failed to look up promotion: %w", err)
	}
	if promo == nil {
		return nil, nil
	}

	ok, err := e.promotions.IncrementUsage(ctx, tx, promo.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to consume promotion: %w", err)
	}
	if !ok {
		e.logger.Info().Str("code", code).Msg("promotion exhausted before use")
		return nil, nil
	}

	promo.UsageCount++
	return promo, nil
}
