// Package payment simulates a card processor. Charges and refunds are
// recorded as transaction rows; declines are reported outcomes, not errors.
package payment

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"marketplace/internal/model"
	"marketplace/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultLatency models the round trip to a processor.
const DefaultLatency = 2 * time.Second

// Outcome values reported by the processor.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusError   = "error"
)

// DeclineReason is the error reported for a declined charge.
const DeclineReason = "Payment declined"

// Result is the outcome of a charge.
type Result struct {
	Status        string
	TransactionID uuid.UUID
	Error         string
}

// Succeeded reports whether the charge went through.
func (r *Result) Succeeded() bool {
	return r.Status == StatusSuccess
}

// Processor charges and refunds orders.
type Processor struct {
	transactions repository.TransactionRepository
	policy       Policy
	latency      time.Duration
	now          func() time.Time
	logger       zerolog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithLatency sets the simulated processor delay. Zero disables it.
func WithLatency(d time.Duration) Option {
	return func(p *Processor) {
		p.latency = d
	}
}

// WithClock overrides the timestamps written to transaction rows.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		p.now = now
	}
}

// NewProcessor creates a Processor deciding charges with policy.
func NewProcessor(transactions repository.TransactionRepository, policy Policy, logger zerolog.Logger, opts ...Option) *Processor {
	p := &Processor{
		transactions: transactions,
		policy:       policy,
		latency:      DefaultLatency,
		now:          time.Now,
		logger:       logger.With().Str("component", "payment").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessPayment charges amount for order inside tx.
// A declined charge returns a failed Result and a nil error.
func (p *Processor) ProcessPayment(ctx context.Context, tx pgx.Tx, order *model.Order, amount decimal.Decimal, method string) (*Result, error) {
	now := p.now()
	txn := &model.Transaction{
		ID:            uuid.New(),
		OrderID:       order.ID,
		Amount:        amount,
		Currency:      model.DefaultCurrency,
		Status:        model.TransactionProcessing,
		PaymentMethod: method,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := p.transactions.Create(ctx, tx, txn); err != nil {
		return nil, err
	}

	if err := p.wait(ctx); err != nil {
		return nil, err
	}

	if !p.policy.Approve(amount) {
		response := map[string]string{
			"error_code":    "DECLINED",
			"response_code": "05",
		}
		if err := p.transactions.UpdateStatus(ctx, tx, txn.ID, model.TransactionFailed, response); err != nil {
			return nil, err
		}

		p.logger.Info().
			Str("order_id", order.ID.String()).
			Str("transaction_id", txn.ID.String()).
			Str("amount", amount.StringFixed(2)).
			Msg("payment declined")

		return &Result{Status: StatusFailed, TransactionID: txn.ID, Error: DeclineReason}, nil
	}

	response := map[string]string{
		"auth_code":     AuthCode(txn.ID),
		"response_code": "00",
	}
	if err := p.transactions.UpdateStatus(ctx, tx, txn.ID, model.TransactionCompleted, response); err != nil {
		return nil, err
	}

	p.logger.Info().
		Str("order_id", order.ID.String()).
		Str("transaction_id", txn.ID.String()).
		Str("amount", amount.StringFixed(2)).
		Msg("payment completed")

	return &Result{Status: StatusSuccess, TransactionID: txn.ID}, nil
}

// ProcessRefund refunds a completed transaction in its own database transaction.
// Refunding any other state is reported in the result; an unknown id is an error.
func (p *Processor) ProcessRefund(ctx context.Context, transactionID uuid.UUID) (*model.RefundResult, error) {
	tx, err := p.transactions.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			p.logger.Error().Err(rbErr).Msg("failed to rollback refund transaction")
		}
	}()

	txn, err := p.transactions.GetForUpdate(ctx, tx, transactionID)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, model.ErrTransactionMissing
	}

	if txn.Status != model.TransactionCompleted {
		p.logger.Info().
			Str("transaction_id", transactionID.String()).
			Str("status", string(txn.Status)).
			Msg("refund refused")
		return &model.RefundResult{Status: StatusError, Error: model.ErrInvalidRefundState.Message}, nil
	}

	if err := p.transactions.UpdateStatus(ctx, tx, transactionID, model.TransactionRefunded, nil); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		p.logger.Error().Err(err).Str("transaction_id", transactionID.String()).Msg("failed to commit refund")
		return nil, fmt.Errorf("failed to commit refund: %w", err)
	}

	p.logger.Info().
		Str("transaction_id", transactionID.String()).
		Str("order_id", txn.OrderID.String()).
		Msg("transaction refunded")

	return &model.RefundResult{Status: StatusSuccess}, nil
}

// AuthCode derives the authorisation code reported for a transaction.
func AuthCode(transactionID uuid.UUID) string {
	sum := md5.Sum([]byte(transactionID.String()))
	return hex.EncodeToString(sum[:])[:8]
}

func (p *Processor) wait(ctx context.Context) error {
	if p.latency <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(p.latency)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("payment interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
