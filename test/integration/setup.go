package integration

import (
	"context"
	"testing"
	"time"

	"marketplace/internal/config"
	"marketplace/internal/database"
	"marketplace/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB starts a PostgreSQL container, applies the migrations and opens a pool.
// It skips the test in short mode.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()

	// Create PostgreSQL container
	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	// Get connection string
	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	logger := zerolog.Nop()
	if err := database.MigrateUp(connStr, logger); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	dbConfig := config.DatabaseConfig{
		MaxConnections:  10,
		MinConnections:  2,
		MaxConnLifetime: 300,
	}
	pool, err := database.NewPoolFromURL(ctx, connStr, dbConfig, false, logger)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}
	t.Cleanup(pool.Close)

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// SeedUser inserts a year-old user on tier.
func SeedUser(t *testing.T, pool *pgxpool.Pool, tier model.SubscriptionTier) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO users (id, username, email, subscription_tier, created_at) VALUES ($1, $2, $3, $4, $5)`,
		id, "user-"+id.String()[:8], "buyer@example.com", string(tier), time.Now().AddDate(-1, 0, 0))
	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return id
}

// SeedSeller inserts a seller named name.
func SeedSeller(t *testing.T, pool *pgxpool.Pool, name string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO sellers (id, name, email) VALUES ($1, $2, $3)`, id, name, "seller@example.com")
	if err != nil {
		t.Fatalf("failed to seed seller: %v", err)
	}
	return id
}

// SeedProduct inserts an active 1kg product with inventory units in stock.
func SeedProduct(t *testing.T, pool *pgxpool.Pool, sellerID uuid.UUID, name, price string, inventory int) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO products (id, seller_id, name, description, price, inventory_count, weight_kg)
		VALUES ($1, $2, $3, $4, $5, $6, 1.0)`,
		id, sellerID, name, name+" description", decimal.RequireFromString(price), inventory)
	if err != nil {
		t.Fatalf("failed to seed product %s: %v", name, err)
	}
	return id
}

// SeedPromotion inserts a percentage promotion valid around now.
func SeedPromotion(t *testing.T, pool *pgxpool.Pool, sellerID uuid.UUID, code string, percent int64) uuid.UUID {
	t.Helper()

	id := uuid.New()
	now := time.Now()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO promotions (id, code, seller_id, discount_type, discount_value, usage_limit, start_date, end_date)
		VALUES ($1, $2, $3, 'percentage', $4, 100, $5, $6)`,
		id, code, sellerID, decimal.NewFromInt(percent), now.AddDate(0, 0, -1), now.AddDate(0, 0, 30))
	if err != nil {
		t.Fatalf("failed to seed promotion %s: %v", code, err)
	}
	return id
}

// StockLevel reads the inventory and reserved counts of a product.
func StockLevel(t *testing.T, pool *pgxpool.Pool, productID uuid.UUID) (inventory, reserved int) {
	t.Helper()

	err := pool.QueryRow(context.Background(),
		`SELECT inventory_count, reserved_count FROM products WHERE id = $1`, productID).Scan(&inventory, &reserved)
	if err != nil {
		t.Fatalf("failed to read stock: %v", err)
	}
	return inventory, reserved
}

// Count returns the number of rows in table.
func Count(t *testing.T, pool *pgxpool.Pool, table string) int {
	t.Helper()

	var n int
	if err := pool.QueryRow(context.Background(), "SELECT count(*) FROM "+table).Scan(&n); err != nil {
		t.Fatalf("failed to count %s: %v", table, err)
	}
	return n
}
