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

// paidStatuses are the order states that count as a completed purchase.
var paidStatuses = []string{
	string(model.OrderPaid),
	string(model.OrderShipped),
	string(model.OrderDelivered),
}

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return beginTx(ctx, r.pool, r.logger)
}

// CreateOrder inserts a new order within the provided transaction.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (id, user_id, status, subtotal, tax, shipping, total,
			shipping_address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := tx.Exec(ctx, query,
		order.ID,
		order.UserID,
		string(order.Status),
		order.Subtotal,
		order.Tax,
		order.Shipping,
		order.Total,
		order.ShippingAddress,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Str("user_id", order.UserID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Msg("order created successfully")

	return nil
}

// CreateOrderItems inserts multiple order items within the provided transaction.
func (r *orderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (id, order_id, product_id, quantity,
			price_at_purchase, discount_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.Quantity,
			item.PriceAtPurchase,
			item.DiscountAmount,
			item.CreatedAt,
		)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		if _, err := results.Exec(); err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", items[i].OrderID.String()).
				Str("product_id", items[i].ProductID.String()).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created successfully")

	return nil
}

// UpdateTotals persists the monetary fields of the order.
func (r *orderRepository) UpdateTotals(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		UPDATE orders
		SET subtotal = $2, tax = $3, shipping = $4, total = $5, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query, order.ID, order.Subtotal, order.Tax, order.Shipping, order.Total)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to update order totals")
		return fmt.Errorf("failed to update order totals: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}

	return nil
}

// UpdateStatus moves the order to status.
func (r *orderRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.OrderStatus) error {
	query := `
		UPDATE orders
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query, id, string(status))
	if err != nil {
		r.logger.Error().Err(err).
			Str("order_id", id.String()).
			Str("status", string(status)).
			Msg("failed to update order status")
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}

	r.logger.Debug().
		Str("order_id", id.String()).
		Str("status", string(status)).
		Msg("order status updated")

	return nil
}

// GetByID retrieves an order by its ID along with its items.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error) {
	orderQuery := `
		SELECT id, user_id, status, subtotal, tax, shipping, total,
			shipping_address, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	var order model.Order
	var status string
	err := r.pool.QueryRow(ctx, orderQuery, id).Scan(
		&order.ID,
		&order.UserID,
		&status,
		&order.Subtotal,
		&order.Tax,
		&order.Shipping,
		&order.Total,
		&order.ShippingAddress,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, nil, fmt.Errorf("failed to query order: %w", err)
	}
	order.Status = model.OrderStatus(status)

	itemsQuery := `
		SELECT id, order_id, product_id, quantity, price_at_purchase, discount_amount, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.pool.Query(ctx, itemsQuery, id)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id.String()).
			Msg("failed to query order items")
		return nil, nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	items := []model.OrderItem{}
	for rows.Next() {
		var item model.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.PriceAtPurchase,
			&item.DiscountAmount,
			&item.CreatedAt,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return &order, items, nil
}

// CountPaidOrders counts the user's orders that reached a paid state.
func (r *orderRepository) CountPaidOrders(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM orders
		WHERE user_id = $1 AND status = ANY($2::text[])
	`

	var count int
	if err := tx.QueryRow(ctx, query, userID, paidStatuses).Scan(&count); err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to count paid orders")
		return 0, fmt.Errorf("failed to count paid orders: %w", err)
	}

	return count, nil
}

// CountOrdersSince counts orders the user created at or after since.
// Running inside tx means the order being checked out is included.
func (r *orderRepository) CountOrdersSince(ctx context.Context, tx pgx.Tx, userID uuid.UUID, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM orders
		WHERE user_id = $1 AND created_at >= $2
	`

	var count int
	if err := tx.QueryRow(ctx, query, userID, since).Scan(&count); err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to count recent orders")
		return 0, fmt.Errorf("failed to count recent orders: %w", err)
	}

	return count, nil
}
