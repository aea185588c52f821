// Package repotest provides testify mocks of the repository interfaces and
// a pgx.Tx stand-in for unit tests that never reach PostgreSQL.
package repotest

import (
	"context"
	"time"

	"marketplace/internal/model"
	"marketplace/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
)

// MockTx is a minimal mock implementation of pgx.Tx. Only Commit and
// Rollback are recorded; everything else is a no-op.
type MockTx struct {
	mock.Mock
	Committed  bool
	RolledBack bool
}

// NewMockTx returns a MockTx whose Commit and Rollback succeed.
func NewMockTx() *MockTx {
	tx := &MockTx{}
	tx.On("Commit", mock.Anything).Return(nil).Maybe()
	tx.On("Rollback", mock.Anything).Return(nil).Maybe()
	return tx
}

func (m *MockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	m.Committed = true
	return args.Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	if !m.Committed {
		m.RolledBack = true
	}
	return args.Error(0)
}

func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (m *MockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (m *MockTx) Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error) {
	return
}
func (m *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (m *MockTx) Conn() *pgx.Conn                                               { return nil }

var _ pgx.Tx = (*MockTx)(nil)

// MockProductRepository is a mock implementation of repository.ProductRepository.
type MockProductRepository struct {
	mock.Mock
}

var _ repository.ProductRepository = (*MockProductRepository)(nil)

func (m *MockProductRepository) GetAll(ctx context.Context, limit, offset int) ([]model.Product, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductRepository) LockForUpdate(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) (map[uuid.UUID]*model.Product, error) {
	args := m.Called(ctx, tx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]*model.Product), args.Error(1)
}

func (m *MockProductRepository) GetStock(ctx context.Context, tx pgx.Tx, id uuid.UUID) (repository.StockLevel, error) {
	args := m.Called(ctx, tx, id)
	return args.Get(0).(repository.StockLevel), args.Error(1)
}

func (m *MockProductRepository) AdjustStock(ctx context.Context, tx pgx.Tx, id uuid.UUID, inventoryDelta, reservedDelta int) (repository.StockLevel, error) {
	args := m.Called(ctx, tx, id, inventoryDelta, reservedDelta)
	return args.Get(0).(repository.StockLevel), args.Error(1)
}

func (m *MockProductRepository) Search(ctx context.Context, params model.SearchParams, limit int) ([]model.SearchResult, error) {
	args := m.Called(ctx, params, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SearchResult), args.Error(1)
}

// MockOrderRepository is a mock implementation of repository.OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

var _ repository.OrderRepository = (*MockOrderRepository)(nil)

func (m *MockOrderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	args := m.Called(ctx, tx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	args := m.Called(ctx, tx, items)
	return args.Error(0)
}

func (m *MockOrderRepository) UpdateTotals(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	args := m.Called(ctx, tx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.OrderStatus) error {
	args := m.Called(ctx, tx, id, status)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*model.Order), args.Get(1).([]model.OrderItem), args.Error(2)
}

func (m *MockOrderRepository) CountPaidOrders(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, tx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockOrderRepository) CountOrdersSince(ctx context.Context, tx pgx.Tx, userID uuid.UUID, since time.Time) (int, error) {
	args := m.Called(ctx, tx, userID, since)
	return args.Int(0), args.Error(1)
}

// MockUserRepository is a mock implementation of repository.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

var _ repository.UserRepository = (*MockUserRepository)(nil)

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

// MockPromotionRepository is a mock implementation of repository.PromotionRepository.
type MockPromotionRepository struct {
	mock.Mock
}

var _ repository.PromotionRepository = (*MockPromotionRepository)(nil)

func (m *MockPromotionRepository) FindApplicable(ctx context.Context, tx pgx.Tx, code string, now time.Time) (*model.Promotion, error) {
	args := m.Called(ctx, tx, code, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Promotion), args.Error(1)
}

func (m *MockPromotionRepository) IncrementUsage(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, tx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockPromotionRepository) GetByCode(ctx context.Context, code string) (*model.Promotion, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Promotion), args.Error(1)
}

func (m *MockPromotionRepository) Upsert(ctx context.Context, promotions []model.Promotion) (int, error) {
	args := m.Called(ctx, promotions)
	return args.Int(0), args.Error(1)
}

// MockTransactionRepository is a mock implementation of repository.TransactionRepository.
type MockTransactionRepository struct {
	mock.Mock
}

var _ repository.TransactionRepository = (*MockTransactionRepository)(nil)

func (m *MockTransactionRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx pgx.Tx, txn *model.Transaction) error {
	args := m.Called(ctx, tx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.TransactionStatus, gatewayResponse map[string]string) error {
	args := m.Called(ctx, tx, id, status, gatewayResponse)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Transaction, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.Transaction, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Transaction), args.Error(1)
}

// MockAnalyticsRepository is a mock implementation of repository.AnalyticsRepository.
type MockAnalyticsRepository struct {
	mock.Mock
}

var _ repository.AnalyticsRepository = (*MockAnalyticsRepository)(nil)

func (m *MockAnalyticsRepository) InsertEvent(ctx context.Context, tx pgx.Tx, event *model.AnalyticsEvent) error {
	args := m.Called(ctx, tx, event)
	return args.Error(0)
}
