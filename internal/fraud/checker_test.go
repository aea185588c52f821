package fraud

import (
	"context"
	"errors"
	"testing"
	"time"

	"marketplace/internal/model"
	"marketplace/internal/repository/repotest"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestCheckTransaction(t *testing.T) {
	tests := []struct {
		name       string
		amount     string
		accountAge time.Duration
		paid       int
		recent     int
		want       float64
	}{
		{name: "baseline", amount: "90.00", accountAge: 30 * 24 * time.Hour, recent: 1, want: 0.1},
		{name: "large amount with history", amount: "5000.01", accountAge: 30 * 24 * time.Hour, paid: 2, recent: 1, want: 0.4},
		{name: "first purchase above 1000", amount: "1500", accountAge: 30 * 24 * time.Hour, recent: 1, want: 0.5},
		{name: "first purchase at 1000 is not flagged", amount: "1000", accountAge: 30 * 24 * time.Hour, recent: 1, want: 0.1},
		{name: "large first purchase sits on the threshold", amount: "6000", accountAge: 30 * 24 * time.Hour, recent: 1, want: 0.8},
		{name: "new account", amount: "50", accountAge: time.Hour, recent: 1, want: 0.4},
		{name: "three recent orders is fine", amount: "50", accountAge: 30 * 24 * time.Hour, recent: 3, want: 0.1},
		{name: "velocity", amount: "50", accountAge: 30 * 24 * time.Hour, recent: 4, want: 0.6},
		{name: "everything clamps to one", amount: "9000", accountAge: time.Minute, recent: 5, want: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			tx := repotest.NewMockTx()
			user := &model.User{ID: uuid.New(), CreatedAt: now.Add(-tt.accountAge)}
			order := &model.Order{ID: uuid.New(), UserID: user.ID}

			history := new(repotest.MockOrderRepository)
			history.On("CountPaidOrders", ctx, tx, user.ID).Return(tt.paid, nil).Maybe()
			history.On("CountOrdersSince", ctx, tx, user.ID, now.Add(-time.Hour)).Return(tt.recent, nil)

			checker := NewChecker(history, zerolog.Nop(), WithLatency(0), WithClock(func() time.Time { return now }))
			score, err := checker.CheckTransaction(ctx, tx, order, user, decimal.RequireFromString(tt.amount))

			require.NoError(t, err)
			assert.Equal(t, tt.want, score)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
			history.AssertExpectations(t)
		})
	}
}

func TestCheckTransaction_SkipsPurchaseHistoryForSmallAmounts(t *testing.T) {
	ctx := context.Background()
	user := &model.User{ID: uuid.New(), CreatedAt: now.Add(-48 * time.Hour)}

	history := new(repotest.MockOrderRepository)
	history.On("CountOrdersSince", ctx, mock.Anything, user.ID, mock.Anything).Return(1, nil)

	checker := NewChecker(history, zerolog.Nop(), WithLatency(0), WithClock(func() time.Time { return now }))
	_, err := checker.CheckTransaction(ctx, nil, &model.Order{ID: uuid.New()}, user, decimal.NewFromInt(10))

	require.NoError(t, err)
	history.AssertNotCalled(t, "CountPaidOrders", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckTransaction_HistoryError(t *testing.T) {
	ctx := context.Background()
	user := &model.User{ID: uuid.New(), CreatedAt: now.Add(-48 * time.Hour)}
	boom := errors.New("connection reset")

	history := new(repotest.MockOrderRepository)
	history.On("CountOrdersSince", ctx, mock.Anything, user.ID, mock.Anything).Return(0, boom)

	checker := NewChecker(history, zerolog.Nop(), WithLatency(0))
	_, err := checker.CheckTransaction(ctx, nil, &model.Order{ID: uuid.New()}, user, decimal.NewFromInt(10))

	assert.ErrorIs(t, err, boom)
}

func TestCheckTransaction_LatencyHonoursContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	history := new(repotest.MockOrderRepository)
	checker := NewChecker(history, zerolog.Nop(), WithLatency(time.Minute))

	start := time.Now()
	_, err := checker.CheckTransaction(ctx, nil, &model.Order{}, &model.User{}, decimal.NewFromInt(10))

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Empty(t, history.Calls)
}

func TestCheckTransaction_DefaultLatencyApplies(t *testing.T) {
	ctx := context.Background()
	user := &model.User{ID: uuid.New(), CreatedAt: now.Add(-48 * time.Hour)}

	history := new(repotest.MockOrderRepository)
	history.On("CountOrdersSince", ctx, mock.Anything, user.ID, mock.Anything).Return(0, nil)

	checker := NewChecker(history, zerolog.Nop(), WithLatency(20*time.Millisecond))

	start := time.Now()
	_, err := checker.CheckTransaction(ctx, nil, &model.Order{ID: uuid.New()}, user, decimal.NewFromInt(10))

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
