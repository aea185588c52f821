package repository

import (
	"context"
	"fmt"

	"marketplace/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const transactionColumns = `id, order_id, amount, currency, status, payment_method,
		gateway_response, created_at, updated_at`

// transactionRepository implements TransactionRepository using PostgreSQL.
type transactionRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewTransactionRepository creates a new PostgreSQL-backed transaction repository.
func NewTransactionRepository(pool *pgxpool.Pool, logger zerolog.Logger) TransactionRepository {
	return &transactionRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "transaction").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *transactionRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return beginTx(ctx, r.pool, r.logger)
}

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var t model.Transaction
	var status string
	err := row.Scan(
		&t.ID,
		&t.OrderID,
		&t.Amount,
		&t.Currency,
		&status,
		&t.PaymentMethod,
		&t.GatewayResponse,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Status = model.TransactionStatus(status)
	return &t, nil
}

// Create inserts a new payment attempt.
func (r *transactionRepository) Create(ctx context.Context, tx pgx.Tx, txn *model.Transaction) error {
	query := `
		INSERT INTO transactions (id, order_id, amount, currency, status, payment_method,
			gateway_response, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := tx.Exec(ctx, query,
		txn.ID,
		txn.OrderID,
		txn.Amount,
		txn.Currency,
		string(txn.Status),
		txn.PaymentMethod,
		txn.GatewayResponse,
		txn.CreatedAt,
		txn.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).
			Str("transaction_id", txn.ID.String()).
			Str("order_id", txn.OrderID.String()).
			Msg("failed to create transaction")
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// UpdateStatus records the outcome of a payment attempt.
func (r *transactionRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.TransactionStatus, gatewayResponse map[string]string) error {
	query := `
		UPDATE transactions
		SET status = $2,
			gateway_response = COALESCE($3, gateway_response),
			updated_at = NOW()
		WHERE id = $1
	`

	var response any
	if gatewayResponse != nil {
		response = gatewayResponse
	}

	tag, err := tx.Exec(ctx, query, id, string(status), response)
	if err != nil {
		r.logger.Error().Err(err).
			Str("transaction_id", id.String()).
			Str("status", string(status)).
			Msg("failed to update transaction")
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrTransactionMissing
	}

	r.logger.Debug().
		Str("transaction_id", id.String()).
		Str("status", string(status)).
		Msg("transaction updated")

	return nil
}

// GetForUpdate loads and locks a payment attempt. Returns nil if absent.
func (r *transactionRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = $1
		FOR UPDATE
	`

	txn, err := scanTransaction(tx.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("transaction_id", id.String()).Msg("failed to query transaction")
		return nil, fmt.Errorf("failed to query transaction: %w", err)
	}

	return txn, nil
}

// ListByOrder returns every attempt for the order, oldest first.
func (r *transactionRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE order_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to query transactions")
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	txns := []model.Transaction{}
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan transaction row")
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, *txn)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating transaction rows")
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txns, nil
}
