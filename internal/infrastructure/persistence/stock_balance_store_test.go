package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kitchenledger/backend/internal/domain/inventory"
	"github.com/kitchenledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormStockBalanceStore_UpsertDelta(t *testing.T) {
	ctx := context.Background()
	warehouseID, productID := uuid.New(), uuid.New()
	key := inventory.NewBalanceKey(warehouseID, productID, "")

	t.Run("creates batch on positive delta", func(t *testing.T) {
		store := NewGormStockBalanceStore(newTestDB(t), inventory.NegativeStockReject)
		expiry := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)

		change, err := store.UpsertDelta(ctx, key, decimal.NewFromInt(10), decimal.NewFromFloat(2.5), &expiry)
		require.NoError(t, err)
		assert.True(t, change.Created)
		assert.True(t, change.NewQuantity.Equal(decimal.NewFromInt(10)))

		batch, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, inventory.DefaultBatchNumber, batch.BatchNumber)
		assert.True(t, batch.Quantity.Equal(decimal.NewFromInt(10)))
		assert.True(t, batch.CostPerUnit.Equal(decimal.NewFromFloat(2.5)))
		require.NotNil(t, batch.ExpiryDate)
	})

	t.Run("keeps cost of existing batch", func(t *testing.T) {
		store := NewGormStockBalanceStore(newTestDB(t), inventory.NegativeStockReject)

		_, err := store.UpsertDelta(ctx, key, decimal.NewFromInt(5), decimal.NewFromInt(3), nil)
		require.NoError(t, err)
		change, err := store.UpsertDelta(ctx, key, decimal.NewFromInt(5), decimal.NewFromInt(99), nil)
		require.NoError(t, err)
		assert.False(t, change.Created)

		batch, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, batch.Quantity.Equal(decimal.NewFromInt(10)))
		assert.True(t, batch.CostPerUnit.Equal(decimal.NewFromInt(3)))
	})

	t.Run("reject policy refuses to go negative", func(t *testing.T) {
		store := NewGormStockBalanceStore(newTestDB(t), inventory.NegativeStockReject)

		_, err := store.UpsertDelta(ctx, key, decimal.NewFromInt(2), decimal.Zero, nil)
		require.NoError(t, err)

		_, err = store.UpsertDelta(ctx, key, decimal.NewFromInt(-3), decimal.Zero, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrInsufficientStock))

		batch, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, batch.Quantity.Equal(decimal.NewFromInt(2)))
	})

	t.Run("clamp policy floors at zero", func(t *testing.T) {
		store := NewGormStockBalanceStore(newTestDB(t), inventory.NegativeStockClamp)

		_, err := store.UpsertDelta(ctx, key, decimal.NewFromInt(2), decimal.Zero, nil)
		require.NoError(t, err)

		change, err := store.UpsertDelta(ctx, key, decimal.NewFromInt(-3), decimal.Zero, nil)
		require.NoError(t, err)
		assert.True(t, change.Clamped)
		assert.True(t, change.Applied.Equal(decimal.NewFromInt(-2)))

		batch, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, batch.Quantity.IsZero())
	})

	t.Run("negative delta on missing batch under clamp creates nothing", func(t *testing.T) {
		store := NewGormStockBalanceStore(newTestDB(t), inventory.NegativeStockClamp)

		change, err := store.UpsertDelta(ctx, key, decimal.NewFromInt(-1), decimal.Zero, nil)
		require.NoError(t, err)
		assert.True(t, change.Clamped)

		_, err = store.Get(ctx, key)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormStockBalanceStore_Sums(t *testing.T) {
	ctx := context.Background()
	store := NewGormStockBalanceStore(newTestDB(t), inventory.NegativeStockReject)

	productID := uuid.New()
	wh1, wh2 := uuid.New(), uuid.New()

	for _, tc := range []struct {
		wh    uuid.UUID
		batch string
		qty   string
	}{
		{wh1, "A", "1.25"},
		{wh1, "B", "0.75"},
		{wh2, "", "3.1"},
	} {
		_, err := store.UpsertDelta(ctx, inventory.NewBalanceKey(tc.wh, productID, tc.batch),
			decimal.RequireFromString(tc.qty), decimal.NewFromInt(1), nil)
		require.NoError(t, err)
	}

	total, err := store.SumByProduct(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, "5.1", total.String())

	inWh1, err := store.SumByProductWarehouse(ctx, productID, wh1)
	require.NoError(t, err)
	assert.Equal(t, "2", inWh1.String())

	batches, err := store.ListByProductWarehouse(ctx, productID, wh1)
	require.NoError(t, err)
	assert.Len(t, batches, 2)

	all, err := store.ListByWarehouse(ctx, wh2)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, inventory.DefaultBatchNumber, all[0].BatchNumber)

	none, err := store.SumByProduct(ctx, uuid.New())
	require.NoError(t, err)
	assert.True(t, none.IsZero())
}
