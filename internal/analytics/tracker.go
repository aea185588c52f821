// Package analytics records business events for later reporting.
package analytics

import (
	"context"
	"time"

	"marketplace/internal/model"
	"marketplace/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Subject names the entities an event is about. Nil fields are left empty.
type Subject struct {
	UserID    *uuid.UUID
	SellerID  *uuid.UUID
	ProductID *uuid.UUID
}

// Tracker writes analytics events as part of the caller's transaction.
type Tracker struct {
	events repository.AnalyticsRepository
	now    func() time.Time
	logger zerolog.Logger
}

// NewTracker creates a Tracker.
func NewTracker(events repository.AnalyticsRepository, logger zerolog.Logger) *Tracker {
	return &Tracker{
		events: events,
		now:    time.Now,
		logger: logger.With().Str("component", "analytics").Logger(),
	}
}

// Track appends an event of eventType about subject with metadata.
func (t *Tracker) Track(ctx context.Context, tx pgx.Tx, eventType string, subject Subject, metadata map[string]any) error {
	event := &model.AnalyticsEvent{
		ID:        uuid.New(),
		EventType: eventType,
		UserID:    subject.UserID,
		SellerID:  subject.SellerID,
		ProductID: subject.ProductID,
		Metadata:  metadata,
		CreatedAt: t.now(),
	}

	if err := t.events.InsertEvent(ctx, tx, event); err != nil {
		return err
	}

	t.logger.Debug().Str("event_type", eventType).Str("event_id", event.ID.String()).Msg("event tracked")
	return nil
}

// OrderCompleted records that order was paid for.
func (t *Tracker) OrderCompleted(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	userID := order.UserID
	return t.Track(ctx, tx, model.EventOrderCompleted, Subject{UserID: &userID}, map[string]any{
		"order_id": order.ID.String(),
		"total":    order.Total.InexactFloat64(),
	})
}
