package payment

import (
	"context"
	"crypto/md5"
	"encoding/hex"
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

func TestSuccessRate(t *testing.T) {
	tests := []struct {
		amount string
		want   float64
	}{
		{"0.01", 0.95},
		{"5000", 0.95},
		{"5000.01", 0.85},
		{"10000", 0.85},
		{"10000.01", 0.70},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.want, SuccessRate(decimal.RequireFromString(tt.amount)))
		})
	}
}

func TestTieredPolicy(t *testing.T) {
	roll := func(v float64) func() float64 { return func() float64 { return v } }

	assert.True(t, NewTieredPolicy(roll(0.94)).Approve(decimal.NewFromInt(100)))
	assert.False(t, NewTieredPolicy(roll(0.95)).Approve(decimal.NewFromInt(100)))
	assert.True(t, NewTieredPolicy(roll(0.84)).Approve(decimal.NewFromInt(6000)))
	assert.False(t, NewTieredPolicy(roll(0.85)).Approve(decimal.NewFromInt(6000)))
	assert.False(t, NewTieredPolicy(roll(0.70)).Approve(decimal.NewFromInt(20000)))
}

func TestPolicyByName(t *testing.T) {
	for _, name := range []string{"", "tiered", "approve", "decline"} {
		p, ok := PolicyByName(name)
		assert.True(t, ok, name)
		assert.NotNil(t, p, name)
	}

	approve, _ := PolicyByName("approve")
	assert.True(t, approve.Approve(decimal.NewFromInt(1_000_000)))
	decline, _ := PolicyByName("decline")
	assert.False(t, decline.Approve(decimal.NewFromInt(1)))

	_, ok := PolicyByName("coinflip")
	assert.False(t, ok)
}

func TestAuthCode(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	sum := md5.Sum([]byte("6ba7b810-9dad-11d1-80b4-00c04fd430c8"))

	code := AuthCode(id)

	assert.Len(t, code, 8)
	assert.Equal(t, hex.EncodeToString(sum[:])[:8], code)
	assert.Equal(t, code, AuthCode(id))
}

func TestProcessPayment_Success(t *testing.T) {
	ctx := context.Background()
	tx := repotest.NewMockTx()
	order := &model.Order{ID: uuid.New()}
	amount := decimal.RequireFromString("97.20")

	var created *model.Transaction
	repo := new(repotest.MockTransactionRepository)
	repo.On("Create", ctx, tx, mock.AnythingOfType("*model.Transaction")).
		Run(func(args mock.Arguments) { created = args.Get(2).(*model.Transaction) }).
		Return(nil)
	repo.On("UpdateStatus", ctx, tx, mock.AnythingOfType("uuid.UUID"), model.TransactionCompleted, mock.Anything).Return(nil)

	p := NewProcessor(repo, AlwaysApprove, zerolog.Nop(), WithLatency(0))
	result, err := p.ProcessPayment(ctx, tx, order, amount, "credit_card")

	require.NoError(t, err)
	require.True(t, result.Succeeded())
	require.NotNil(t, created)

	assert.Equal(t, created.ID, result.TransactionID)
	assert.Equal(t, model.TransactionProcessing, created.Status)
	assert.Equal(t, "USD", created.Currency)
	assert.Equal(t, order.ID, created.OrderID)
	assert.True(t, amount.Equal(created.Amount))

	response := repo.Calls[1].Arguments.Get(4).(map[string]string)
	assert.Equal(t, "00", response["response_code"])
	assert.Equal(t, AuthCode(created.ID), response["auth_code"])
	repo.AssertExpectations(t)
}

func TestProcessPayment_Declined(t *testing.T) {
	ctx := context.Background()
	tx := repotest.NewMockTx()

	repo := new(repotest.MockTransactionRepository)
	repo.On("Create", ctx, tx, mock.Anything).Return(nil)
	repo.On("UpdateStatus", ctx, tx, mock.Anything, model.TransactionFailed, map[string]string{
		"error_code":    "DECLINED",
		"response_code": "05",
	}).Return(nil)

	p := NewProcessor(repo, AlwaysDecline, zerolog.Nop(), WithLatency(0))
	result, err := p.ProcessPayment(ctx, tx, &model.Order{ID: uuid.New()}, decimal.NewFromInt(10), "credit_card")

	require.NoError(t, err)
	assert.False(t, result.Succeeded())
	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, "Payment declined", result.Error)
	repo.AssertExpectations(t)
}

func TestProcessPayment_Errors(t *testing.T) {
	ctx := context.Background()
	tx := repotest.NewMockTx()
	boom := errors.New("insert failed")

	repo := new(repotest.MockTransactionRepository)
	repo.On("Create", ctx, tx, mock.Anything).Return(boom)

	p := NewProcessor(repo, AlwaysApprove, zerolog.Nop(), WithLatency(0))
	_, err := p.ProcessPayment(ctx, tx, &model.Order{ID: uuid.New()}, decimal.NewFromInt(10), "credit_card")
	assert.ErrorIs(t, err, boom)

	timeoutCtx, cancel := context.WithTimeout(ctx, 5*time.Millisecond)
	defer cancel()

	slowRepo := new(repotest.MockTransactionRepository)
	slowRepo.On("Create", timeoutCtx, tx, mock.Anything).Return(nil)

	slow := NewProcessor(slowRepo, AlwaysApprove, zerolog.Nop(), WithLatency(time.Minute))
	_, err = slow.ProcessPayment(timeoutCtx, tx, &model.Order{ID: uuid.New()}, decimal.NewFromInt(10), "credit_card")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	slowRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessRefund(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	tests := []struct {
		name       string
		status     model.TransactionStatus
		wantStatus string
		wantError  string
	}{
		{name: "completed is refunded", status: model.TransactionCompleted, wantStatus: "success"},
		{name: "failed is refused", status: model.TransactionFailed, wantStatus: "error", wantError: "Cannot refund non-completed transaction"},
		{name: "refunded is refused", status: model.TransactionRefunded, wantStatus: "error", wantError: "Cannot refund non-completed transaction"},
		{name: "processing is refused", status: model.TransactionProcessing, wantStatus: "error", wantError: "Cannot refund non-completed transaction"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := repotest.NewMockTx()
			repo := new(repotest.MockTransactionRepository)
			repo.On("BeginTx", ctx).Return(tx, nil)
			repo.On("GetForUpdate", ctx, tx, id).Return(&model.Transaction{ID: id, Status: tt.status}, nil)
			repo.On("UpdateStatus", ctx, tx, id, model.TransactionRefunded, map[string]string(nil)).Return(nil).Maybe()

			result, err := NewProcessor(repo, AlwaysApprove, zerolog.Nop()).ProcessRefund(ctx, id)

			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, result.Status)
			assert.Equal(t, tt.wantError, result.Error)
			assert.Equal(t, tt.status == model.TransactionCompleted, tx.Committed)
			if tt.status != model.TransactionCompleted {
				repo.AssertNotCalled(t, "UpdateStatus", ctx, tx, id, model.TransactionRefunded, map[string]string(nil))
			}
		})
	}
}

func TestProcessRefund_UnknownTransaction(t *testing.T) {
	ctx := context.Background()
	tx := repotest.NewMockTx()
	id := uuid.New()

	repo := new(repotest.MockTransactionRepository)
	repo.On("BeginTx", ctx).Return(tx, nil)
	repo.On("GetForUpdate", ctx, tx, id).Return(nil, nil)

	_, err := NewProcessor(repo, AlwaysApprove, zerolog.Nop()).ProcessRefund(ctx, id)

	assert.ErrorIs(t, err, model.ErrTransactionMissing)
	assert.True(t, tx.RolledBack)
}
