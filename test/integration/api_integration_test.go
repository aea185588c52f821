package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"marketplace/internal/analytics"
	"marketplace/internal/fraud"
	"marketplace/internal/handler"
	"marketplace/internal/inventory"
	"marketplace/internal/model"
	"marketplace/internal/notification"
	"marketplace/internal/payment"
	"marketplace/internal/pricing"
	"marketplace/internal/repository"
	"marketplace/internal/router"
	"marketplace/internal/search"
	"marketplace/internal/service"
	"marketplace/internal/shipping"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-api-key"

// collectingSender keeps every delivered notification.
type collectingSender struct {
	mu   sync.Mutex
	sent []notification.Notification
}

func (s *collectingSender) Send(_ context.Context, n notification.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, n)
	return nil
}

func (s *collectingSender) Close() error { return nil }

func (s *collectingSender) kinds() []notification.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	kinds := make([]notification.Kind, 0, len(s.sent))
	for _, n := range s.sent {
		kinds = append(kinds, n.Kind)
	}
	return kinds
}

type testServer struct {
	handler    http.Handler
	dispatcher *notification.Dispatcher
	sender     *collectingSender
}

type serverOptions struct {
	latency time.Duration
}

type serverOption func(*serverOptions)

// withLatency makes the fraud check and the payment each take d, keeping
// row locks held long enough for concurrent checkouts to overlap.
func withLatency(d time.Duration) serverOption {
	return func(o *serverOptions) {
		o.latency = d
	}
}

func setupTestServer(t *testing.T, testDB *TestDB, policy payment.Policy, opts ...serverOption) *testServer {
	t.Helper()

	var o serverOptions
	for _, opt := range opts {
		opt(&o)
	}

	logger := zerolog.Nop()
	pool := testDB.Pool

	// Initialize repositories
	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	userRepo := repository.NewUserRepository(pool, logger)
	promotionRepo := repository.NewPromotionRepository(pool, logger)
	transactionRepo := repository.NewTransactionRepository(pool, logger)
	analyticsRepo := repository.NewAnalyticsRepository(pool, logger)

	sender := &collectingSender{}
	dispatcher := notification.NewDispatcher(sender, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = dispatcher.Close(ctx)
	})

	processor := payment.NewProcessor(transactionRepo, policy, logger, payment.WithLatency(o.latency))

	// Initialize services
	checkoutService := service.NewCheckoutService(service.CheckoutDependencies{
		Orders:    orderRepo,
		Products:  productRepo,
		Users:     userRepo,
		Ledger:    inventory.NewLedger(productRepo, logger),
		Pricer:    pricing.NewEngine(promotionRepo, logger),
		Fraud:     fraud.NewChecker(orderRepo, logger, fraud.WithLatency(o.latency)),
		Payments:  processor,
		Analytics: analytics.NewTracker(analyticsRepo, logger),
		Notifier:  dispatcher,
	}, service.DefaultCheckoutSettings(), logger)
	productService := service.NewProductService(productRepo, search.NewSearcher(productRepo, logger), logger)
	orderService := service.NewOrderService(orderRepo, transactionRepo, processor, shipping.NewTracker(nil), logger)

	// Create router
	h := router.New(
		handler.NewProductHandler(productService, logger),
		handler.NewOrderHandler(orderService, logger),
		handler.NewCheckoutHandler(checkoutService, logger),
		nil,
		testAPIKey,
		logger,
	)

	return &testServer{handler: h, dispatcher: dispatcher, sender: sender}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testAPIKey)

	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func checkoutBody(userID uuid.UUID, promo string, items ...model.CheckoutItemRequest) model.CheckoutRequest {
	return model.CheckoutRequest{
		UserID:          userID,
		Items:           items,
		PaymentMethod:   "credit_card",
		ShippingAddress: model.Address{Street: "1 Main St", City: "Springfield", State: "IL", Country: "US"},
		PromoCode:       promo,
	}
}

func TestCheckoutAPI_BusinessTierWithPromotion(t *testing.T) {
	testDB := SetupTestDB(t)
	srv := setupTestServer(t, testDB, payment.AlwaysApprove)
	pool := testDB.Pool

	sellerID := SeedSeller(t, pool, "Acme")
	productID := SeedProduct(t, pool, sellerID, "Laptop", "100.00", 10)
	userID := SeedUser(t, pool, model.TierBusiness)
	promoID := SeedPromotion(t, pool, sellerID, "SAVE10", 10)

	w := srv.do(t, http.MethodPost, "/api/orders/checkout",
		checkoutBody(userID, "SAVE10", model.CheckoutItemRequest{ProductID: productID, Quantity: 1}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp model.CheckoutResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "90.00", resp.Subtotal.StringFixed(2))
	assert.Equal(t, "7.20", resp.Tax.StringFixed(2))
	assert.Equal(t, "7.00", resp.Shipping.StringFixed(2))
	assert.Equal(t, "104.20", resp.Total.StringFixed(2))

	inv, reserved := StockLevel(t, pool, productID)
	assert.Equal(t, 9, inv)
	assert.Equal(t, 0, reserved)

	var usage int
	require.NoError(t, pool.QueryRow(context.Background(),
		`SELECT usage_count FROM promotions WHERE id = $1`, promoID).Scan(&usage))
	assert.Equal(t, 1, usage)

	// The order is readable back with its payment
	w = srv.do(t, http.MethodGet, "/api/orders/"+resp.OrderID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var order model.OrderResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&order))
	assert.Equal(t, model.OrderPaid, order.Status)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "90.00", order.Items[0].PriceAtPurchase.StringFixed(2))
	require.Len(t, order.Transactions, 1)
	assert.Equal(t, model.TransactionCompleted, order.Transactions[0].Status)
	assert.Equal(t, "IL", order.ShippingAddress.State)

	assert.Equal(t, 1, Count(t, pool, "analytics_events"))

	// Notifications go out after commit
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.dispatcher.Close(ctx))
	assert.ElementsMatch(t,
		[]notification.Kind{notification.KindOrderConfirmation, notification.KindSellerNewOrder},
		srv.sender.kinds())
}

func TestCheckoutAPI_PremiumCappedMultiLine(t *testing.T) {
	testDB := SetupTestDB(t)
	srv := setupTestServer(t, testDB, payment.AlwaysApprove)
	pool := testDB.Pool

	sellerID := SeedSeller(t, pool, "Acme")
	monitor := SeedProduct(t, pool, sellerID, "Monitor", "100.00", 10)
	cable := SeedProduct(t, pool, sellerID, "Cable", "50.00", 10)
	userID := SeedUser(t, pool, model.TierPremium)
	SeedPromotion(t, pool, sellerID, "SAVE10", 10)

	w := srv.do(t, http.MethodPost, "/api/orders/checkout", checkoutBody(userID, "SAVE10",
		model.CheckoutItemRequest{ProductID: monitor, Quantity: 2},
		model.CheckoutItemRequest{ProductID: cable, Quantity: 1},
	))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp model.CheckoutResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "225.00", resp.Subtotal.StringFixed(2))

	inv, _ := StockLevel(t, pool, monitor)
	assert.Equal(t, 8, inv)
	inv, _ = StockLevel(t, pool, cable)
	assert.Equal(t, 9, inv)
}

func TestCheckoutAPI_OutOfStockCommitsNothing(t *testing.T) {
	testDB := SetupTestDB(t)
	srv := setupTestServer(t, testDB, payment.AlwaysApprove)
	pool := testDB.Pool

	sellerID := SeedSeller(t, pool, "Acme")
	plenty := SeedProduct(t, pool, sellerID, "Plenty", "10.00", 50)
	scarce := SeedProduct(t, pool, sellerID, "Scarce", "10.00", 1)
	userID := SeedUser(t, pool, model.TierFree)
	promoID := SeedPromotion(t, pool, sellerID, "SAVE10", 10)

	w := srv.do(t, http.MethodPost, "/api/orders/checkout", checkoutBody(userID, "SAVE10",
		model.CheckoutItemRequest{ProductID: plenty, Quantity: 3},
		model.CheckoutItemRequest{ProductID: scarce, Quantity: 2},
	))
	require.Equal(t, http.StatusBadRequest, w.Code)

	var errResp model.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&errResp))
	assert.Equal(t, "Product Scarce out of stock", errResp.Error)

	for _, id := range []uuid.UUID{plenty, scarce} {
		_, reserved := StockLevel(t, pool, id)
		assert.Equal(t, 0, reserved)
	}
	inv, _ := StockLevel(t, pool, plenty)
	assert.Equal(t, 50, inv)

	assert.Equal(t, 0, Count(t, pool, "orders"))
	assert.Equal(t, 0, Count(t, pool, "order_items"))
	assert.Equal(t, 0, Count(t, pool, "transactions"))

	var usage int
	require.NoError(t, pool.QueryRow(context.Background(),
		`SELECT usage_count FROM promotions WHERE id = $1`, promoID).Scan(&usage))
	assert.Equal(t, 0, usage)
}

func TestCheckoutAPI_PaymentDeclined(t *testing.T) {
	testDB := SetupTestDB(t)
	srv := setupTestServer(t, testDB, payment.AlwaysDecline)
	pool := testDB.Pool

	sellerID := SeedSeller(t, pool, "Acme")
	productID := SeedProduct(t, pool, sellerID, "Laptop", "100.00", 10)
	userID := SeedUser(t, pool, model.TierFree)

	w := srv.do(t, http.MethodPost, "/api/orders/checkout",
		checkoutBody(userID, "", model.CheckoutItemRequest{ProductID: productID, Quantity: 1}))
	require.Equal(t, http.StatusBadRequest, w.Code)

	var errResp model.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&errResp))
	assert.Equal(t, "Payment failed: Payment declined", errResp.Error)

	inv, reserved := StockLevel(t, pool, productID)
	assert.Equal(t, 10, inv)
	assert.Equal(t, 0, reserved)
	assert.Equal(t, 0, Count(t, pool, "orders"))
}

func TestRefundAPI_Integration(t *testing.T) {
	testDB := SetupTestDB(t)
	srv := setupTestServer(t, testDB, payment.AlwaysApprove)
	pool := testDB.Pool

	sellerID := SeedSeller(t, pool, "Acme")
	productID := SeedProduct(t, pool, sellerID, "Laptop", "100.00", 10)
	userID := SeedUser(t, pool, model.TierFree)

	w := srv.do(t, http.MethodPost, "/api/orders/checkout",
		checkoutBody(userID, "", model.CheckoutItemRequest{ProductID: productID, Quantity: 1}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp model.CheckoutResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))

	var transactionID uuid.UUID
	require.NoError(t, pool.QueryRow(context.Background(),
		`SELECT id FROM transactions WHERE order_id = $1`, resp.OrderID).Scan(&transactionID))

	refundPath := "/api/transactions/" + transactionID.String() + "/refund"

	w = srv.do(t, http.MethodPost, refundPath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success"}`, w.Body.String())

	// A refunded transaction cannot be refunded again
	w = srv.do(t, http.MethodPost, refundPath, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, http.MethodPost, "/api/transactions/"+uuid.NewString()+"/refund", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = srv.do(t, http.MethodGet, "/api/shipments/"+resp.OrderID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var info shipping.TrackingInfo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&info))
	assert.Equal(t, shipping.TrackingNumber(resp.OrderID), info.TrackingNumber)
}

func TestProductAPI_Integration(t *testing.T) {
	testDB := SetupTestDB(t)
	srv := setupTestServer(t, testDB, payment.AlwaysApprove)
	pool := testDB.Pool

	acme := SeedSeller(t, pool, "Acme")
	widget := SeedProduct(t, pool, acme, "Blue Widget", "45.00", 3)
	SeedProduct(t, pool, acme, "Red Gadget", "120.00", 7)

	t.Run("Get all products", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, "/api/products", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var products []model.Product
		require.NoError(t, json.NewDecoder(w.Body).Decode(&products))
		assert.Len(t, products, 2)
	})

	t.Run("Get product by ID", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, "/api/products/"+widget.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)

		var product model.Product
		require.NoError(t, json.NewDecoder(w.Body).Decode(&product))
		assert.Equal(t, "Blue Widget", product.Name)
	})

	t.Run("Unknown product", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, "/api/products/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Search", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, "/api/products/search?q=widget&max_price=50", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var results []model.SearchResult
		require.NoError(t, json.NewDecoder(w.Body).Decode(&results))
		require.Len(t, results, 1)
		assert.Equal(t, widget, results[0].ProductID)
		assert.Equal(t, "Acme", results[0].SellerName)
		assert.Equal(t, 3, results[0].Inventory)
	})

	t.Run("Missing API key", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestCORS_Integration(t *testing.T) {
	testDB := SetupTestDB(t)
	srv := setupTestServer(t, testDB, payment.AlwaysApprove)

	req := httptest.NewRequest(http.MethodOptions, "/api/orders/checkout", nil)
	w := httptest.NewRecorder()
	srv.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
