package repository

import (
	"context"
	"time"

	"marketplace/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TxBeginner starts database transactions.
type TxBeginner interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)
}

// ProductRepository defines the interface for product data access operations.
type ProductRepository interface {
	// GetAll retrieves all products with pagination support.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by its ID. Returns nil if absent.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)

	// LockForUpdate takes row locks on the given products in ascending id
	// order and returns them keyed by id. Missing ids are simply absent.
	LockForUpdate(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) (map[uuid.UUID]*model.Product, error)

	// GetStock reads the stock counters of a product inside tx.
	GetStock(ctx context.Context, tx pgx.Tx, id uuid.UUID) (StockLevel, error)

	// AdjustStock adds the deltas to inventory_count and reserved_count in a
	// single statement and returns the new levels.
	AdjustStock(ctx context.Context, tx pgx.Tx, id uuid.UUID, inventoryDelta, reservedDelta int) (StockLevel, error)

	// Search filters active products for the catalogue search.
	Search(ctx context.Context, params model.SearchParams, limit int) ([]model.SearchResult, error)
}

// StockLevel is a snapshot of a product's stock counters.
type StockLevel struct {
	Inventory int
	Reserved  int
}

// Available returns stock that can still be reserved.
func (s StockLevel) Available() int {
	return s.Inventory - s.Reserved
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	TxBeginner

	// CreateOrder inserts a new order within the provided transaction.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts multiple order items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// UpdateTotals persists the monetary fields of the order.
	UpdateTotals(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// UpdateStatus moves the order to status.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.OrderStatus) error

	// GetByID retrieves an order by its ID along with its items.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error)

	OrderHistory
}

// OrderHistory answers questions about a user's past orders.
type OrderHistory interface {
	// CountPaidOrders counts the user's orders that reached a paid state.
	CountPaidOrders(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (int, error)

	// CountOrdersSince counts orders the user created at or after since.
	CountOrdersSince(ctx context.Context, tx pgx.Tx, userID uuid.UUID, since time.Time) (int, error)
}

// UserRepository reads marketplace users.
type UserRepository interface {
	// GetByID returns nil if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// PromotionRepository defines promotion lookups and usage accounting.
type PromotionRepository interface {
	// FindApplicable returns the promotion with code if it can be applied at
	// now, locking its row; nil when there is none.
	FindApplicable(ctx context.Context, tx pgx.Tx, code string, now time.Time) (*model.Promotion, error)

	// IncrementUsage consumes one use. It reports false when the usage limit
	// was already reached.
	IncrementUsage(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error)

	// GetByCode returns nil if no promotion has code.
	GetByCode(ctx context.Context, code string) (*model.Promotion, error)

	// Upsert inserts promotions or updates them by code, leaving usage counts untouched.
	Upsert(ctx context.Context, promotions []model.Promotion) (int, error)
}

// TransactionRepository stores payment attempts.
type TransactionRepository interface {
	TxBeginner

	// Create inserts a new payment attempt.
	Create(ctx context.Context, tx pgx.Tx, txn *model.Transaction) error

	// UpdateStatus records the outcome of a payment attempt.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.TransactionStatus, gatewayResponse map[string]string) error

	// GetForUpdate loads and locks a payment attempt. Returns nil if absent.
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Transaction, error)

	// ListByOrder returns every attempt for the order, oldest first.
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.Transaction, error)
}

// AnalyticsRepository appends analytics events.
type AnalyticsRepository interface {
	// InsertEvent writes event within tx.
	InsertEvent(ctx context.Context, tx pgx.Tx, event *model.AnalyticsEvent) error
}
