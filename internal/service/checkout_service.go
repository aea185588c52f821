package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"marketplace/internal/inventory"
	"marketplace/internal/model"
	"marketplace/internal/notification"
	"marketplace/internal/payment"
	"marketplace/internal/pricing"
	"marketplace/internal/repository"
	"marketplace/internal/shipping"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var checkoutTracer = otel.Tracer("service/checkout")

// Pricer prices a single order line.
type Pricer interface {
	CalculatePrice(ctx context.Context, tx pgx.Tx, product *model.Product, quantity int,
		tier model.SubscriptionTier, promoCode string, maxDiscountPercent decimal.Decimal) (*pricing.Quote, error)
}

// FraudScorer rates how risky a checkout is, from 0 to 1.
type FraudScorer interface {
	CheckTransaction(ctx context.Context, tx pgx.Tx, order *model.Order, user *model.User, amount decimal.Decimal) (float64, error)
}

// PaymentProcessor charges an order.
type PaymentProcessor interface {
	ProcessPayment(ctx context.Context, tx pgx.Tx, order *model.Order, amount decimal.Decimal, method string) (*payment.Result, error)
}

// EventTracker records analytics events inside the checkout transaction.
type EventTracker interface {
	OrderCompleted(ctx context.Context, tx pgx.Tx, order *model.Order) error
}

// Notifier queues notifications without blocking.
type Notifier interface {
	Dispatch(n notification.Notification) bool
}

// CheckoutRecorder records checkout outcomes.
type CheckoutRecorder interface {
	RecordSuccess(ctx context.Context, total decimal.Decimal, elapsed time.Duration)
	RecordFailure(ctx context.Context, reason string, elapsed time.Duration)
}

// CheckoutSettings tunes the checkout pipeline.
type CheckoutSettings struct {
	TaxRate            decimal.Decimal
	MaxDiscountPercent decimal.Decimal
	FraudThreshold     float64
	// ExternalTimeout bounds the fraud check and the payment call separately.
	ExternalTimeout   time.Duration
	LowStockThreshold int
}

// DefaultCheckoutSettings returns the production defaults.
func DefaultCheckoutSettings() CheckoutSettings {
	return CheckoutSettings{
		TaxRate:            decimal.RequireFromString("0.08"),
		MaxDiscountPercent: decimal.NewFromInt(pricing.DefaultMaxDiscountPercent),
		FraudThreshold:     0.8,
		ExternalTimeout:    10 * time.Second,
		LowStockThreshold:  5,
	}
}

// CheckoutDependencies are the collaborators of the checkout service.
// Notifier and Metrics may be nil.
type CheckoutDependencies struct {
	Orders    repository.OrderRepository
	Products  repository.ProductRepository
	Users     repository.UserRepository
	Ledger    inventory.Ledger
	Pricer    Pricer
	Fraud     FraudScorer
	Payments  PaymentProcessor
	Analytics EventTracker
	Notifier  Notifier
	Metrics   CheckoutRecorder
}

type checkoutService struct {
	deps     CheckoutDependencies
	settings CheckoutSettings
	now      func() time.Time
	logger   zerolog.Logger
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(deps CheckoutDependencies, settings CheckoutSettings, logger zerolog.Logger) CheckoutService {
	return &checkoutService{
		deps:     deps,
		settings: settings,
		now:      time.Now,
		logger:   logger.With().Str("service", "checkout").Logger(),
	}
}

type reservation struct {
	productID uuid.UUID
	quantity  int
}

// checkout carries what one attempt has done so far.
type checkout struct {
	req          *model.CheckoutRequest
	user         *model.User
	order        *model.Order
	products     map[uuid.UUID]*model.Product
	reservations []reservation
	sellerItems  map[uuid.UUID]int
	lowStock     map[uuid.UUID]int
}

// Checkout places an order, charges it and commits the stock movement, all in
// one database transaction. Any failure leaves no trace in the database.
func (s *checkoutService) Checkout(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("checkout request is nil")
	}
	start := s.now()

	ctx, span := checkoutTracer.Start(ctx, "checkout", trace.WithAttributes(
		attribute.Int("checkout.items", len(req.Items)),
		attribute.Bool("checkout.promo_code", req.PromoCode != ""),
	))
	defer span.End()

	resp, err := s.checkout(ctx, req)
	elapsed := s.now().Sub(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if s.deps.Metrics != nil {
			s.deps.Metrics.RecordFailure(ctx, failureReason(err), elapsed)
		}
		return nil, err
	}

	span.SetAttributes(attribute.String("order.id", resp.OrderID.String()))
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordSuccess(ctx, resp.Total, elapsed)
	}
	return resp, nil
}

func (s *checkoutService) checkout(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResponse, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	// The buyer is read on its own connection before the transaction takes one.
	user, err := s.deps.Users.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.logger.Warn().Str("user_id", req.UserID.String()).Msg("checkout for unknown user")
		return nil, model.ErrUserNotFound
	}

	tx, err := s.deps.Orders.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin checkout: %w", err)
	}

	c := &checkout{
		req:         req,
		user:        user,
		sellerItems: make(map[uuid.UUID]int),
		lowStock:    make(map[uuid.UUID]int),
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		s.compensate(ctx, tx, c.reservations)
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
		}
	}()

	if err := s.placeOrder(ctx, tx, c); err != nil {
		s.logFailure(c, err)
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", c.order.ID.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to commit checkout: %w", err)
	}
	committed = true

	s.notify(c)

	s.logger.Info().
		Str("order_id", c.order.ID.String()).
		Str("user_id", c.user.ID.String()).
		Int("item_count", len(req.Items)).
		Str("total", c.order.Total.StringFixed(2)).
		Msg("checkout completed")

	return &model.CheckoutResponse{
		OrderID:  c.order.ID,
		Status:   "success",
		Subtotal: c.order.Subtotal,
		Tax:      c.order.Tax,
		Shipping: c.order.Shipping,
		Total:    c.order.Total,
	}, nil
}

func (s *checkoutService) placeOrder(ctx context.Context, tx pgx.Tx, c *checkout) error {
	if err := s.lockProducts(ctx, tx, c); err != nil {
		return err
	}

	now := s.now()
	c.order = &model.Order{
		ID:              uuid.New(),
		UserID:          c.user.ID,
		Status:          model.OrderPending,
		Subtotal:        decimal.Zero,
		Tax:             decimal.Zero,
		Shipping:        decimal.Zero,
		Total:           decimal.Zero,
		ShippingAddress: c.req.ShippingAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.deps.Orders.CreateOrder(ctx, tx, c.order); err != nil {
		return err
	}

	subtotal, lines, err := s.addItems(ctx, tx, c)
	if err != nil {
		return err
	}

	shippingCost := shipping.Calculate(lines, c.req.ShippingAddress)
	tax := subtotal.Mul(s.settings.TaxRate).Round(2)
	c.order.Subtotal = subtotal
	c.order.Shipping = shippingCost
	c.order.Tax = tax
	c.order.Total = subtotal.Add(shippingCost).Add(tax)
	if err := s.deps.Orders.UpdateTotals(ctx, tx, c.order); err != nil {
		return err
	}

	if err := s.screen(ctx, tx, c); err != nil {
		return err
	}
	if err := s.charge(ctx, tx, c); err != nil {
		return err
	}

	if err := s.deps.Orders.UpdateStatus(ctx, tx, c.order.ID, model.OrderPaid); err != nil {
		return err
	}
	c.order.Status = model.OrderPaid

	if err := s.confirmReservations(ctx, tx, c); err != nil {
		return err
	}

	return s.deps.Analytics.OrderCompleted(ctx, tx, c.order)
}

// lockProducts locks every product of the request in ascending id order,
// so concurrent checkouts cannot deadlock on each other.
func (s *checkoutService) lockProducts(ctx context.Context, tx pgx.Tx, c *checkout) error {
	ids := distinctProductIDs(c.req.Items)
	products, err := s.deps.Products.LockForUpdate(ctx, tx, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			s.logger.Warn().Str("product_id", id.String()).Msg("checkout references unknown product")
			return model.ErrProductNotFound
		}
	}
	c.products = products
	return nil
}

// addItems prices, records and reserves every line in request order.
func (s *checkoutService) addItems(ctx context.Context, tx pgx.Tx, c *checkout) (decimal.Decimal, []model.ShipmentLine, error) {
	subtotal := decimal.Zero
	items := make([]model.OrderItem, 0, len(c.req.Items))
	lines := make([]model.ShipmentLine, 0, len(c.req.Items))

	for _, item := range c.req.Items {
		product := c.products[item.ProductID]

		available, err := s.deps.Ledger.CheckAvailability(ctx, tx, product.ID, item.Quantity)
		if err != nil {
			return decimal.Zero, nil, err
		}
		if !available {
			return decimal.Zero, nil, model.NewOutOfStockError(product.Name)
		}

		quote, err := s.deps.Pricer.CalculatePrice(ctx, tx, product, item.Quantity,
			c.user.SubscriptionTier, c.req.PromoCode, s.settings.MaxDiscountPercent)
		if err != nil {
			return decimal.Zero, nil, err
		}

		qty := decimal.NewFromInt(int64(item.Quantity))
		items = append(items, model.OrderItem{
			ID:              uuid.New(),
			OrderID:         c.order.ID,
			ProductID:       product.ID,
			Quantity:        item.Quantity,
			PriceAtPurchase: quote.Total.Div(qty).Round(2),
			DiscountAmount:  quote.Discount.Div(qty).Round(2),
			CreatedAt:       c.order.CreatedAt,
		})

		if err := s.deps.Ledger.Reserve(ctx, tx, product.ID, item.Quantity); err != nil {
			if errors.Is(err, model.ErrOutOfStock) {
				return decimal.Zero, nil, model.NewOutOfStockError(product.Name)
			}
			return decimal.Zero, nil, err
		}
		c.reservations = append(c.reservations, reservation{productID: product.ID, quantity: item.Quantity})

		subtotal = subtotal.Add(quote.Total)
		lines = append(lines, model.ShipmentLine{WeightKg: product.WeightKg, Quantity: item.Quantity})
		c.sellerItems[product.SellerID] += item.Quantity
	}

	if err := s.deps.Orders.CreateOrderItems(ctx, tx, items); err != nil {
		return decimal.Zero, nil, err
	}

	return subtotal, lines, nil
}

func (s *checkoutService) screen(ctx context.Context, tx pgx.Tx, c *checkout) error {
	ctx, cancel := context.WithTimeout(ctx, s.settings.ExternalTimeout)
	defer cancel()

	ctx, span := checkoutTracer.Start(ctx, "checkout.fraud_check")
	defer span.End()

	score, err := s.deps.Fraud.CheckTransaction(ctx, tx, c.order, c.user, c.order.Total)
	if err != nil {
		span.RecordError(err)
		return err
	}
	span.SetAttributes(attribute.Float64("fraud.score", score))

	if score > s.settings.FraudThreshold {
		s.logger.Warn().
			Str("order_id", c.order.ID.String()).
			Str("user_id", c.user.ID.String()).
			Float64("score", score).
			Msg("checkout flagged as fraudulent")
		return model.ErrFraudSuspected
	}
	return nil
}

func (s *checkoutService) charge(ctx context.Context, tx pgx.Tx, c *checkout) error {
	ctx, cancel := context.WithTimeout(ctx, s.settings.ExternalTimeout)
	defer cancel()

	ctx, span := checkoutTracer.Start(ctx, "checkout.payment")
	defer span.End()

	result, err := s.deps.Payments.ProcessPayment(ctx, tx, c.order, c.order.Total, c.req.PaymentMethod)
	if err != nil {
		span.RecordError(err)
		return err
	}
	span.SetAttributes(
		attribute.String("payment.status", result.Status),
		attribute.String("payment.transaction_id", result.TransactionID.String()),
	)

	if !result.Succeeded() {
		return model.NewPaymentDeclinedError(result.Error)
	}
	return nil
}

// confirmReservations turns every reservation into a sale and notes the
// products left at or below the low-stock threshold.
func (s *checkoutService) confirmReservations(ctx context.Context, tx pgx.Tx, c *checkout) error {
	for _, r := range c.reservations {
		if err := s.deps.Ledger.Confirm(ctx, tx, r.productID, r.quantity); err != nil {
			return err
		}
	}

	for id := range c.products {
		level, err := s.deps.Products.GetStock(ctx, tx, id)
		if err != nil {
			return err
		}
		if level.Available() <= s.settings.LowStockThreshold {
			c.lowStock[id] = level.Available()
		}
	}
	return nil
}

// compensate releases reservations when rolling back the transaction will
// not undo them.
func (s *checkoutService) compensate(ctx context.Context, tx pgx.Tx, reservations []reservation) {
	if len(reservations) == 0 || s.deps.Ledger.Transactional() {
		return
	}

	for _, r := range reservations {
		if err := s.deps.Ledger.Release(ctx, tx, r.productID, r.quantity); err != nil {
			s.logger.Error().Err(err).
				Str("product_id", r.productID.String()).
				Int("quantity", r.quantity).
				Msg("failed to release reservation")
		}
	}
}

func (s *checkoutService) notify(c *checkout) {
	if s.deps.Notifier == nil {
		return
	}

	s.deps.Notifier.Dispatch(notification.OrderConfirmation(c.order.ID, c.user.Email, c.order.Total))
	for sellerID, items := range c.sellerItems {
		s.deps.Notifier.Dispatch(notification.SellerNewOrder(sellerID, c.order.ID, items))
	}
	for productID, remaining := range c.lowStock {
		s.deps.Notifier.Dispatch(notification.LowStock(productID, remaining))
	}
}

func (s *checkoutService) validateRequest(req *model.CheckoutRequest) error {
	if req.UserID == uuid.Nil {
		return model.NewMissingFieldError("user_id")
	}
	if len(req.Items) == 0 {
		return model.NewMissingFieldError("items")
	}
	if strings.TrimSpace(req.PaymentMethod) == "" {
		return model.NewMissingFieldError("payment_method")
	}

	for i, item := range req.Items {
		if item.ProductID == uuid.Nil {
			return model.NewMissingFieldError(fmt.Sprintf("items[%d].product_id", i))
		}
		if item.Quantity <= 0 {
			s.logger.Warn().
				Int("item_index", i).
				Str("product_id", item.ProductID.String()).
				Int("quantity", item.Quantity).
				Msg("invalid quantity")
			return model.ErrInvalidQuantity
		}
	}

	return nil
}

func (s *checkoutService) logFailure(c *checkout, err error) {
	event := s.logger.Warn()
	var domainErr *model.DomainError
	if !errors.As(err, &domainErr) {
		event = s.logger.Error()
	}

	event = event.Err(err).Str("user_id", c.req.UserID.String())
	if c.order != nil {
		event = event.Str("order_id", c.order.ID.String())
	}
	event.Int("reservations", len(c.reservations)).Msg("checkout rolled back")
}

// distinctProductIDs returns the products of items once each, in ascending
// byte order, which matches PostgreSQL's uuid ordering.
func distinctProductIDs(items []model.CheckoutItemRequest) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})
	return slices.Compact(ids)
}

func failureReason(err error) string {
	var domainErr *model.DomainError
	if errors.As(err, &domainErr) {
		return strings.ToLower(domainErr.Code)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "internal"
}
