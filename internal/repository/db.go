package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// pgCheckViolation is the SQLSTATE of a failed CHECK constraint.
const pgCheckViolation = "23514"

// ErrStockConstraint is returned when a stock adjustment would break
// 0 <= reserved_count <= inventory_count.
var ErrStockConstraint = errors.New("stock adjustment violates reserved/inventory bounds")

// beginTx starts a transaction on pool, logging failures under the caller's logger.
func beginTx(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) (pgx.Tx, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func hasPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

func isCheckViolation(err error) bool {
	return hasPgCode(err, pgCheckViolation)
}

// uuidStrings converts ids for use with ANY($1::uuid[]).
func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
