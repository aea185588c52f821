package repository

import (
	"context"
	"fmt"
	"strings"

	"marketplace/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const productColumns = `id, seller_id, category_id, name, description, price, cost,
		inventory_count, reserved_count, is_active, weight_kg, created_at, updated_at`

// productRepository implements the ProductRepository interface using PostgreSQL.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

func scanProduct(row pgx.Row, p *model.Product) error {
	return row.Scan(
		&p.ID,
		&p.SellerID,
		&p.CategoryID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Cost,
		&p.InventoryCount,
		&p.ReservedCount,
		&p.IsActive,
		&p.WeightKg,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

// GetAll retrieves all products with pagination support.
func (r *productRepository) GetAll(ctx context.Context, limit, offset int) ([]model.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		ORDER BY name
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).
			Int("limit", limit).
			Int("offset", offset).
			Msg("failed to query products")
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		var p model.Product
		if err := scanProduct(rows, &p); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// GetByID retrieves a single product by its ID.
func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = $1
	`

	var p model.Product
	if err := scanProduct(r.pool.QueryRow(ctx, query, id), &p); err != nil {
		if isNoRows(err) {
			r.logger.Debug().Str("product_id", id.String()).Msg("product not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("product_id", id.String()).Msg("failed to query product")
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return &p, nil
}

// LockForUpdate takes row locks in ascending id order. PostgreSQL applies
// FOR UPDATE after the sort, so concurrent checkouts over overlapping
// products always queue on the same first row.
func (r *productRepository) LockForUpdate(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) (map[uuid.UUID]*model.Product, error) {
	locked := make(map[uuid.UUID]*model.Product, len(ids))
	if len(ids) == 0 {
		return locked, nil
	}

	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = ANY($1::uuid[])
		ORDER BY id
		FOR UPDATE
	`

	rows, err := tx.Query(ctx, query, uuidStrings(ids))
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to lock products")
		return nil, fmt.Errorf("failed to lock products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p := &model.Product{}
		if err := scanProduct(rows, p); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan locked product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		locked[p.ID] = p
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating locked product rows")
		return nil, fmt.Errorf("error iterating locked products: %w", err)
	}

	r.logger.Debug().
		Int("requested", len(ids)).
		Int("locked", len(locked)).
		Msg("product rows locked")

	return locked, nil
}

// GetStock reads the stock counters of a product inside tx.
func (r *productRepository) GetStock(ctx context.Context, tx pgx.Tx, id uuid.UUID) (StockLevel, error) {
	query := `
		SELECT inventory_count, reserved_count
		FROM products
		WHERE id = $1
	`

	var level StockLevel
	err := tx.QueryRow(ctx, query, id).Scan(&level.Inventory, &level.Reserved)
	if err != nil {
		if isNoRows(err) {
			return StockLevel{}, model.ErrProductNotFound
		}
		r.logger.Error().Err(err).Str("product_id", id.String()).Msg("failed to read stock")
		return StockLevel{}, fmt.Errorf("failed to read stock: %w", err)
	}

	return level, nil
}

// AdjustStock applies both deltas in one UPDATE so the change is atomic
// with respect to other writers of the row.
func (r *productRepository) AdjustStock(ctx context.Context, tx pgx.Tx, id uuid.UUID, inventoryDelta, reservedDelta int) (StockLevel, error) {
	query := `
		UPDATE products
		SET inventory_count = inventory_count + $2,
			reserved_count = reserved_count + $3,
			updated_at = NOW()
		WHERE id = $1
		RETURNING inventory_count, reserved_count
	`

	var level StockLevel
	err := tx.QueryRow(ctx, query, id, inventoryDelta, reservedDelta).Scan(&level.Inventory, &level.Reserved)
	if err != nil {
		if isNoRows(err) {
			return StockLevel{}, model.ErrProductNotFound
		}
		if isCheckViolation(err) {
			r.logger.Warn().
				Str("product_id", id.String()).
				Int("inventory_delta", inventoryDelta).
				Int("reserved_delta", reservedDelta).
				Msg("stock adjustment rejected by constraint")
			return StockLevel{}, ErrStockConstraint
		}
		r.logger.Error().Err(err).Str("product_id", id.String()).Msg("failed to adjust stock")
		return StockLevel{}, fmt.Errorf("failed to adjust stock: %w", err)
	}

	r.logger.Debug().
		Str("product_id", id.String()).
		Int("inventory", level.Inventory).
		Int("reserved", level.Reserved).
		Msg("stock adjusted")

	return level, nil
}

// Search filters active products by free text, category name and price bounds.
func (r *productRepository) Search(ctx context.Context, params model.SearchParams, limit int) ([]model.SearchResult, error) {
	query := `
		SELECT p.id, p.name, p.price, s.name, p.inventory_count
		FROM products p
		JOIN sellers s ON s.id = p.seller_id
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.is_active
			AND ($1::text = '' OR p.name ILIKE '%' || $1 || '%' OR p.description ILIKE '%' || $1 || '%')
			AND ($2::text = '' OR c.name = $2)
			AND ($3::numeric IS NULL OR p.price >= $3)
			AND ($4::numeric IS NULL OR p.price <= $4)
		ORDER BY p.name
		LIMIT $5
	`

	rows, err := r.pool.Query(ctx, query,
		escapeLike(params.Query),
		params.Category,
		params.MinPrice,
		params.MaxPrice,
		limit,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("query", params.Query).Msg("failed to search products")
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	defer rows.Close()

	results := []model.SearchResult{}
	for rows.Next() {
		var res model.SearchResult
		if err := rows.Scan(&res.ProductID, &res.Name, &res.Price, &res.SellerName, &res.Inventory); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan search row")
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, res)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating search rows")
		return nil, fmt.Errorf("error iterating search results: %w", err)
	}

	return results, nil
}

// escapeLike makes user text match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
