package repository

import (
	"context"
	"fmt"

	"marketplace/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type userRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(pool *pgxpool.Pool, logger zerolog.Logger) UserRepository {
	return &userRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "user").Logger(),
	}
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `
		SELECT id, username, email, country, subscription_tier, created_at
		FROM users
		WHERE id = $1
	`

	var u model.User
	var tier string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.Country,
		&tier,
		&u.CreatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			r.logger.Debug().Str("user_id", id.String()).Msg("user not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("user_id", id.String()).Msg("failed to query user")
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	u.SubscriptionTier = model.SubscriptionTier(tier)

	return &u, nil
}
