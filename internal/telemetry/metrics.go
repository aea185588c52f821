package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CheckoutMetrics holds the instruments recorded by the checkout pipeline.
type CheckoutMetrics struct {
	completed metric.Int64Counter
	failed    metric.Int64Counter
	revenue   metric.Float64Counter
	duration  metric.Float64Histogram
}

// NewCheckoutMetrics registers the checkout instruments on meter.
func NewCheckoutMetrics(meter metric.Meter) (*CheckoutMetrics, error) {
	completed, err := meter.Int64Counter("checkout.completed",
		metric.WithDescription("Checkouts that committed a paid order"))
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout.completed counter: %w", err)
	}

	failed, err := meter.Int64Counter("checkout.failed",
		metric.WithDescription("Checkouts that rolled back, by reason"))
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout.failed counter: %w", err)
	}

	revenue, err := meter.Float64Counter("checkout.revenue",
		metric.WithDescription("Order totals of committed checkouts"),
		metric.WithUnit("USD"))
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout.revenue counter: %w", err)
	}

	duration, err := meter.Float64Histogram("checkout.duration",
		metric.WithDescription("Wall time of a checkout attempt"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout.duration histogram: %w", err)
	}

	return &CheckoutMetrics{
		completed: completed,
		failed:    failed,
		revenue:   revenue,
		duration:  duration,
	}, nil
}

// RecordSuccess counts a committed checkout.
func (m *CheckoutMetrics) RecordSuccess(ctx context.Context, total decimal.Decimal, elapsed time.Duration) {
	outcome := metric.WithAttributes(attribute.String("outcome", "success"))
	m.completed.Add(ctx, 1)
	m.revenue.Add(ctx, total.InexactFloat64())
	m.duration.Record(ctx, elapsed.Seconds(), outcome)
}

// RecordFailure counts a rolled back checkout under reason.
func (m *CheckoutMetrics) RecordFailure(ctx context.Context, reason string, elapsed time.Duration) {
	m.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	m.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("outcome", "failure")))
}
