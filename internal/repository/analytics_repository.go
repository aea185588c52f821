package repository

import (
	"context"
	"fmt"

	"marketplace/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type analyticsRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewAnalyticsRepository creates a new PostgreSQL-backed analytics repository.
func NewAnalyticsRepository(pool *pgxpool.Pool, logger zerolog.Logger) AnalyticsRepository {
	return &analyticsRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "analytics").Logger(),
	}
}

func (r *analyticsRepository) InsertEvent(ctx context.Context, tx pgx.Tx, event *model.AnalyticsEvent) error {
	query := `
		INSERT INTO analytics_events (id, event_type, user_id, seller_id, product_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	metadata := event.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	_, err := tx.Exec(ctx, query,
		event.ID,
		event.EventType,
		event.UserID,
		event.SellerID,
		event.ProductID,
		metadata,
		event.CreatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).
			Str("event_type", event.EventType).
			Str("event_id", event.ID.String()).
			Msg("failed to insert analytics event")
		return fmt.Errorf("failed to insert analytics event: %w", err)
	}

	return nil
}
