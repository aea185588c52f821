// Package fraud scores checkouts for risk with a fixed set of heuristics.
package fraud

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

// DefaultThreshold is the score above which a checkout is refused.
const DefaultThreshold = 0.8

// DefaultLatency models the round trip to a scoring service.
const DefaultLatency = 300 * time.Millisecond

// Scores are summed in tenths so thresholds compare exactly.
const (
	baseScore          = 1
	largeAmountScore   = 3
	firstPurchaseScore = 4
	newAccountScore    = 3
	velocityScore      = 5
	maxScore           = 10

	velocityWindow = time.Hour
	velocityLimit  = 3
	newAccountAge  = 24 * time.Hour
)

var (
	largeAmount         = decimal.NewFromInt(5000)
	firstPurchaseAmount = decimal.NewFromInt(1000)
)

// Checker computes a risk score in [0, 1] for a checkout.
type Checker struct {
	history repository.OrderHistory
	latency time.Duration
	now     func() time.Time
	logger  zerolog.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithLatency sets the simulated scoring delay. Zero disables it.
func WithLatency(d time.Duration) Option {
	return func(c *Checker) {
		c.latency = d
	}
}

// WithClock overrides the time used for account age and velocity windows.
func WithClock(now func() time.Time) Option {
	return func(c *Checker) {
		c.now = now
	}
}

// NewChecker creates a Checker reading order history from history.
func NewChecker(history repository.OrderHistory, logger zerolog.Logger, opts ...Option) *Checker {
	c := &Checker{
		history: history,
		latency: DefaultLatency,
		now:     time.Now,
		logger:  logger.With().Str("component", "fraud").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckTransaction scores a checkout of amount by user. History is read in
// tx, so the order being placed counts towards velocity.
func (c *Checker) CheckTransaction(ctx context.Context, tx pgx.Tx, order *model.Order, user *model.User, amount decimal.Decimal) (float64, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}

	now := c.now()
	score := baseScore

	if amount.GreaterThan(largeAmount) {
		score += largeAmountScore
	}

	if amount.GreaterThan(firstPurchaseAmount) {
		paid, err := c.history.CountPaidOrders(ctx, tx, user.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to read purchase history: %w", err)
		}
		if paid == 0 {
			score += firstPurchaseScore
		}
	}

	if now.Sub(user.CreatedAt) < newAccountAge {
		score += newAccountScore
	}

	recent, err := c.history.CountOrdersSince(ctx, tx, user.ID, now.Add(-velocityWindow))
	if err != nil {
		return 0, fmt.Errorf("failed to read recent orders: %w", err)
	}
	if recent > velocityLimit {
		score += velocityScore
	}

	if score > maxScore {
		score = maxScore
	}
	risk := float64(score) / 10

	c.logger.Debug().
		Str("order_id", order.ID.String()).
		Str("user_id", user.ID.String()).
		Str("amount", amount.StringFixed(2)).
		Int("recent_orders", recent).
		Float64("score", risk).
		Msg("transaction scored")

	return risk, nil
}

func (c *Checker) wait(ctx context.Context) error {
	if c.latency <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(c.latency)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("fraud check interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
