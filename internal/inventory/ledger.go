// Package inventory tracks stock reservations against product rows.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"marketplace/internal/model"
	"marketplace/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Ledger reserves, confirms and releases stock. All operations run inside the
// caller's transaction.
type Ledger interface {
	// CheckAvailability reports whether inventory minus reservations covers quantity.
	CheckAvailability(ctx context.Context, tx pgx.Tx, productID uuid.UUID, quantity int) (bool, error)

	// Reserve holds quantity units. It does not check availability.
	Reserve(ctx context.Context, tx pgx.Tx, productID uuid.UUID, quantity int) error

	// Confirm turns a reservation into a sale, decrementing both counters.
	Confirm(ctx context.Context, tx pgx.Tx, productID uuid.UUID, quantity int) error

	// Release gives back reserved units.
	Release(ctx context.Context, tx pgx.Tx, productID uuid.UUID, quantity int) error

	// Transactional reports whether the ledger's writes are undone by rolling
	// back the caller's transaction. When false the caller must Release
	// reservations itself on failure.
	Transactional() bool
}

// ledger is the PostgreSQL-backed Ledger.
type ledger struct {
	products repository.ProductRepository
	logger   zerolog.Logger
}

// NewLedger creates a Ledger that adjusts counters through products.
func NewLedger(products repository.ProductRepository, logger zerolog.Logger) Ledger {
	return &ledger{
		products: products,
		logger:   logger.With().Str("component", "inventory").Logger(),
	}
}

func (l *ledger) CheckAvailability(ctx context.Context, tx pgx.Tx, productID uuid.UUID, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, model.ErrInvalidQuantity
	}

	level, err := l.products.GetStock(ctx, tx, productID)
	if err != nil {
		return false, err
	}

	return level.Available() >= quantity, nil
}

func (l *ledger) Reserve(ctx context.Context, tx pgx.Tx, productID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return model.ErrInvalidQuantity
	}

	level, err := l.products.AdjustStock(ctx, tx, productID, 0, quantity)
	if err != nil {
		if errors.Is(err, repository.ErrStockConstraint) {
			return model.ErrOutOfStock
		}
		return err
	}

	l.logger.Debug().
		Str("product_id", productID.String()).
		Int("quantity", quantity).
		Int("reserved", level.Reserved).
		Msg("stock reserved")

	return nil
}

func (l *ledger) Confirm(ctx context.Context, tx pgx.Tx, productID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return model.ErrInvalidQuantity
	}

	level, err := l.products.AdjustStock(ctx, tx, productID, -quantity, -quantity)
	if err != nil {
		return fmt.Errorf("failed to confirm reservation: %w", err)
	}

	l.logger.Debug().
		Str("product_id", productID.String()).
		Int("quantity", quantity).
		Int("inventory", level.Inventory).
		Msg("reservation confirmed")

	return nil
}

func (l *ledger) Release(ctx context.Context, tx pgx.Tx, productID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return model.ErrInvalidQuantity
	}

	if _, err := l.products.AdjustStock(ctx, tx, productID, 0, -quantity); err != nil {
		return fmt.Errorf("failed to release reservation: %w", err)
	}

	l.logger.Debug().
		Str("product_id", productID.String()).
		Int("quantity", quantity).
		Msg("reservation released")

	return nil
}

func (l *ledger) Transactional() bool {
	return true
}
