package model

import "fmt"

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Code          string `json:"code,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON        = "INVALID_JSON"
	ErrCodeMissingField       = "MISSING_FIELD"
	ErrCodeInvalidQuantity    = "INVALID_QUANTITY"
	ErrCodeInvalidParameter   = "INVALID_PARAMETER"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeOutOfStock         = "OUT_OF_STOCK"
	ErrCodeFraudSuspected     = "FRAUD_SUSPECTED"
	ErrCodePaymentDeclined    = "PAYMENT_DECLINED"
	ErrCodeInvalidRefundState = "INVALID_REFUND_STATE"
	ErrCodeUnauthorised       = "UNAUTHORIZED"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// DomainError is a business rule failure carrying a stable code.
// Two domain errors match under errors.Is when their codes are equal,
// so callers can test a per-product OutOfStock error against ErrOutOfStock.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound           = NewDomainError(ErrCodeNotFound, "Resource not found")
	ErrProductNotFound    = NewDomainError(ErrCodeNotFound, "Product not found")
	ErrUserNotFound       = NewDomainError(ErrCodeNotFound, "User not found")
	ErrOrderNotFound      = NewDomainError(ErrCodeNotFound, "Order not found")
	ErrTransactionMissing = NewDomainError(ErrCodeNotFound, "Transaction not found")
	ErrInvalidQuantity    = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrOutOfStock         = NewDomainError(ErrCodeOutOfStock, "Product out of stock")
	ErrFraudSuspected     = NewDomainError(ErrCodeFraudSuspected, "Transaction flagged as fraudulent")
	ErrPaymentDeclined    = NewDomainError(ErrCodePaymentDeclined, "Payment failed")
	ErrInvalidRefundState = NewDomainError(ErrCodeInvalidRefundState, "Cannot refund non-completed transaction")
)

// NewOutOfStockError names the product that could not be reserved.
func NewOutOfStockError(productName string) *DomainError {
	return NewDomainError(ErrCodeOutOfStock, fmt.Sprintf("Product %s out of stock", productName))
}

// NewPaymentDeclinedError carries the reason reported by the payment processor.
func NewPaymentDeclinedError(reason string) *DomainError {
	return NewDomainError(ErrCodePaymentDeclined, fmt.Sprintf("Payment failed: %s", reason))
}

// NewMissingFieldError reports a required request field that was empty.
func NewMissingFieldError(field string) *DomainError {
	return NewDomainError(ErrCodeMissingField, fmt.Sprintf("%s is required", field))
}
