package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionStatus is the state of a payment attempt.
type TransactionStatus string

const (
	TransactionPending    TransactionStatus = "pending"
	TransactionProcessing TransactionStatus = "processing"
	TransactionCompleted  TransactionStatus = "completed"
	TransactionFailed     TransactionStatus = "failed"
	TransactionRefunded   TransactionStatus = "refunded"
)

// DefaultCurrency is the only currency the simulator charges in.
const DefaultCurrency = "USD"

// Transaction records one payment attempt against an order.
type Transaction struct {
	ID              uuid.UUID         `json:"transaction_id" db:"id"`
	OrderID         uuid.UUID         `json:"order_id" db:"order_id"`
	Amount          decimal.Decimal   `json:"amount" db:"amount"`
	Currency        string            `json:"currency" db:"currency"`
	Status          TransactionStatus `json:"status" db:"status"`
	PaymentMethod   string            `json:"payment_method" db:"payment_method"`
	GatewayResponse map[string]string `json:"gateway_response,omitempty" db:"gateway_response"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" db:"updated_at"`
}

// RefundResult is the reported outcome of a refund request.
type RefundResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Succeeded reports whether the refund went through.
func (r *RefundResult) Succeeded() bool {
	return r.Status == "success"
}
