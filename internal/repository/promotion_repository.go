package repository

import (
	"context"
	"fmt"
	"time"

	"marketplace/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const promotionColumns = `id, code, seller_id, discount_type, discount_value, min_purchase_amount,
		usage_limit, usage_count, start_date, end_date, is_active`

// promotionRepository implements PromotionRepository using PostgreSQL.
type promotionRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPromotionRepository creates a new PostgreSQL-backed promotion repository.
func NewPromotionRepository(pool *pgxpool.Pool, logger zerolog.Logger) PromotionRepository {
	return &promotionRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "promotion").Logger(),
	}
}

func scanPromotion(row pgx.Row) (*model.Promotion, error) {
	var p model.Promotion
	var discountType string
	err := row.Scan(
		&p.ID,
		&p.Code,
		&p.SellerID,
		&discountType,
		&p.DiscountValue,
		&p.MinPurchaseAmount,
		&p.UsageLimit,
		&p.UsageCount,
		&p.StartDate,
		&p.EndDate,
		&p.IsActive,
	)
	if err != nil {
		return nil, err
	}
	p.DiscountType = model.DiscountType(discountType)
	return &p, nil
}

// FindApplicable locks the promotion row so concurrent checkouts consume
// usage one after the other.
func (r *promotionRepository) FindApplicable(ctx context.Context, tx pgx.Tx, code string, now time.Time) (*model.Promotion, error) {
	query := `
		SELECT ` + promotionColumns + `
		FROM promotions
		WHERE code = $1
			AND is_active
			AND start_date <= $2
			AND end_date >= $2
			AND usage_count < usage_limit
		FOR UPDATE
	`

	promo, err := scanPromotion(tx.QueryRow(ctx, query, code, now))
	if err != nil {
		if isNoRows(err) {
			r.logger.Debug().Str("code", code).Msg("no applicable promotion")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("code", code).Msg("failed to query promotion")
		return nil, fmt.Errorf("failed to query promotion: %w", err)
	}

	return promo, nil
}

// IncrementUsage consumes one use unless the limit has been reached.
func (r *promotionRepository) IncrementUsage(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	query := `
		UPDATE promotions
		SET usage_count = usage_count + 1
		WHERE id = $1 AND usage_count < usage_limit
	`

	tag, err := tx.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error().Err(err).Str("promotion_id", id.String()).Msg("failed to increment promotion usage")
		return false, fmt.Errorf("failed to increment promotion usage: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// GetByCode returns nil if no promotion has code.
func (r *promotionRepository) GetByCode(ctx context.Context, code string) (*model.Promotion, error) {
	query := `
		SELECT ` + promotionColumns + `
		FROM promotions
		WHERE code = $1
	`

	promo, err := scanPromotion(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("code", code).Msg("failed to query promotion")
		return nil, fmt.Errorf("failed to query promotion: %w", err)
	}

	return promo, nil
}

// Upsert writes promotions in one transaction, matching existing rows by code.
// usage_count is never overwritten.
func (r *promotionRepository) Upsert(ctx context.Context, promotions []model.Promotion) (int, error) {
	if len(promotions) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO promotions (id, code, seller_id, discount_type, discount_value,
			min_purchase_amount, usage_limit, usage_count, start_date, end_date, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, $10)
		ON CONFLICT (code) DO UPDATE SET
			seller_id = EXCLUDED.seller_id,
			discount_type = EXCLUDED.discount_type,
			discount_value = EXCLUDED.discount_value,
			min_purchase_amount = EXCLUDED.min_purchase_amount,
			usage_limit = GREATEST(EXCLUDED.usage_limit, promotions.usage_count),
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			is_active = EXCLUDED.is_active
	`

	tx, err := beginTx(ctx, r.pool, r.logger)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, p := range promotions {
		id := p.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		batch.Queue(query,
			id,
			p.Code,
			p.SellerID,
			string(p.DiscountType),
			p.DiscountValue,
			p.MinPurchaseAmount,
			p.UsageLimit,
			p.StartDate,
			p.EndDate,
			p.IsActive,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for i := range promotions {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			r.logger.Error().Err(err).Str("code", promotions[i].Code).Msg("failed to upsert promotion")
			return 0, fmt.Errorf("failed to upsert promotion %s: %w", promotions[i].Code, err)
		}
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Error().Err(err).Msg("failed to commit promotion upsert")
		return 0, fmt.Errorf("failed to commit promotion upsert: %w", err)
	}

	r.logger.Info().Int("count", len(promotions)).Msg("promotions upserted")

	return len(promotions), nil
}
