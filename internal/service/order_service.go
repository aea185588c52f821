package service

import (
	"context"
	"fmt"

	"marketplace/internal/model"
	"marketplace/internal/repository"
	"marketplace/internal/shipping"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Refunder refunds payment transactions.
type Refunder interface {
	ProcessRefund(ctx context.Context, transactionID uuid.UUID) (*model.RefundResult, error)
}

// orderService implements OrderService.
type orderService struct {
	orderRepo       repository.OrderRepository
	transactionRepo repository.TransactionRepository
	refunder        Refunder
	tracker         *shipping.Tracker
	logger          zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	transactionRepo repository.TransactionRepository,
	refunder Refunder,
	tracker *shipping.Tracker,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo:       orderRepo,
		transactionRepo: transactionRepo,
		refunder:        refunder,
		tracker:         tracker,
		logger:          logger.With().Str("service", "order").Logger(),
	}
}

// GetByID retrieves an order by its ID with all items and transactions.
func (s *orderService) GetByID(ctx context.Context, id uuid.UUID) (*model.OrderResponse, error) {
	order, items, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if order == nil {
		s.logger.Debug().Str("order_id", id.String()).Msg("order not found")
		return nil, model.ErrOrderNotFound
	}

	transactions, err := s.transactionRepo.ListByOrder(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to retrieve transactions")
		return nil, fmt.Errorf("failed to retrieve transactions: %w", err)
	}

	if items == nil {
		items = []model.OrderItem{}
	}
	if transactions == nil {
		transactions = []model.Transaction{}
	}

	return &model.OrderResponse{
		Order:        *order,
		Items:        items,
		Transactions: transactions,
	}, nil
}

// RefundTransaction refunds a completed transaction. Any other state is
// reported as ErrInvalidRefundState.
func (s *orderService) RefundTransaction(ctx context.Context, transactionID uuid.UUID) (*model.RefundResult, error) {
	result, err := s.refunder.ProcessRefund(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	if !result.Succeeded() {
		s.logger.Info().
			Str("transaction_id", transactionID.String()).
			Str("reason", result.Error).
			Msg("refund rejected")
		return nil, model.ErrInvalidRefundState
	}

	return result, nil
}

// Tracking returns the shipment tracking record of an existing order.
func (s *orderService) Tracking(ctx context.Context, orderID uuid.UUID) (*shipping.TrackingInfo, error) {
	order, _, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	info := s.tracker.GetTrackingInfo(order.ID)
	return &info, nil
}
