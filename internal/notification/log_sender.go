package notification

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LogSender writes notifications to the log. It is used when no broker is configured.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger.With().Str("component", "notifications").Logger()}
}

func (s *LogSender) Send(_ context.Context, n Notification) error {
	event := s.logger.Info().Str("kind", string(n.Kind))

	switch n.Kind {
	case KindOrderConfirmation:
		event.Str("recipient", n.Recipient).Str("order_id", idString(n.OrderID)).Msg("sending order confirmation")
	case KindSellerNewOrder:
		event.Str("seller_id", idString(n.SellerID)).Str("order_id", idString(n.OrderID)).Msg("sending seller notification")
	case KindLowStock:
		event.Str("product_id", idString(n.ProductID)).Interface("current_stock", n.Data["current_stock"]).Msg("low inventory alert")
	default:
		event.Str("key", n.Key()).Msg("sending notification")
	}
	return nil
}

func (s *LogSender) Close() error { return nil }

func idString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
