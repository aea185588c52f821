package repository

import (
	"context"
	"testing"
	"time"

	"marketplace/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromotionRepository(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewPromotionRepository(pool, zerolog.Nop())
	sellerID := seedSeller(t, pool, "Acme")

	now := time.Now().UTC().Truncate(time.Second)
	promos := []model.Promotion{
		{
			Code:          "SAVE10",
			SellerID:      sellerID,
			DiscountType:  model.DiscountPercentage,
			DiscountValue: decimal.NewFromInt(10),
			UsageLimit:    2,
			StartDate:     now.Add(-time.Hour),
			EndDate:       now.Add(time.Hour),
			IsActive:      true,
		},
		{
			Code:          "EXPIRED",
			SellerID:      sellerID,
			DiscountType:  model.DiscountFixed,
			DiscountValue: decimal.NewFromInt(5),
			UsageLimit:    model.DefaultUsageLimit,
			StartDate:     now.Add(-48 * time.Hour),
			EndDate:       now.Add(-24 * time.Hour),
			IsActive:      true,
		},
		{
			Code:          "PAUSED",
			SellerID:      sellerID,
			DiscountType:  model.DiscountFixed,
			DiscountValue: decimal.NewFromInt(5),
			UsageLimit:    model.DefaultUsageLimit,
			StartDate:     now.Add(-time.Hour),
			EndDate:       now.Add(time.Hour),
			IsActive:      false,
		},
	}

	n, err := repo.Upsert(ctx, promos)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	t.Run("FindApplicable honours window and active flag", func(t *testing.T) {
		tx, err := pool.Begin(ctx)
		require.NoError(t, err)
		defer func() { _ = tx.Rollback(ctx) }()

		p, err := repo.FindApplicable(ctx, tx, "SAVE10", now)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, model.DiscountPercentage, p.DiscountType)
		assert.True(t, decimal.NewFromInt(10).Equal(p.DiscountValue))

		for _, code := range []string{"EXPIRED", "PAUSED", "UNKNOWN"} {
			p, err := repo.FindApplicable(ctx, tx, code, now)
			require.NoError(t, err)
			assert.Nil(t, p, code)
		}
	})

	t.Run("IncrementUsage stops at the limit", func(t *testing.T) {
		existing, err := repo.GetByCode(ctx, "SAVE10")
		require.NoError(t, err)
		require.NotNil(t, existing)

		tx, err := pool.Begin(ctx)
		require.NoError(t, err)
		defer func() { _ = tx.Rollback(ctx) }()

		for i := 0; i < 2; i++ {
			ok, err := repo.IncrementUsage(ctx, tx, existing.ID)
			require.NoError(t, err)
			assert.True(t, ok)
		}

		ok, err := repo.IncrementUsage(ctx, tx, existing.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		p, err := repo.FindApplicable(ctx, tx, "SAVE10", now)
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("Upsert updates by code and keeps usage", func(t *testing.T) {
		before, err := repo.GetByCode(ctx, "SAVE10")
		require.NoError(t, err)
		require.NotNil(t, before)

		tx, err := pool.Begin(ctx)
		require.NoError(t, err)
		_, err = repo.IncrementUsage(ctx, tx, before.ID)
		require.NoError(t, err)
		require.NoError(t, tx.Commit(ctx))

		updated := promos[0]
		updated.ID = uuid.New()
		updated.DiscountValue = decimal.NewFromInt(15)
		updated.UsageLimit = 50
		_, err = repo.Upsert(ctx, []model.Promotion{updated})
		require.NoError(t, err)

		after, err := repo.GetByCode(ctx, "SAVE10")
		require.NoError(t, err)
		require.NotNil(t, after)
		assert.Equal(t, before.ID, after.ID)
		assert.True(t, decimal.NewFromInt(15).Equal(after.DiscountValue))
		assert.Equal(t, 50, after.UsageLimit)
		assert.Equal(t, 1, after.UsageCount)
	})

	t.Run("GetByCode unknown", func(t *testing.T) {
		p, err := repo.GetByCode(ctx, "NOPE")
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("Upsert with nothing", func(t *testing.T) {
		n, err := repo.Upsert(ctx, nil)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
