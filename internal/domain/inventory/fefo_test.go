package inventory

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func testBatch(number string, qty int64, cost string, expiry *time.Time) *StockBatch {
	key := NewBalanceKey(uuid.New(), uuid.New(), number)
	return NewStockBatch(key, decimal.NewFromInt(qty), decimal.RequireFromString(cost), expiry)
}

func TestSortFEFO(t *testing.T) {
	march := testBatch("B-03", 5, "1", date("2024-03-01"))
	jan := testBatch("B-01", 3, "1", date("2024-01-01"))
	never := testBatch("B-NONE", 10, "1", nil)
	empty := testBatch("B-EMPTY", 0, "1", date("2023-12-01"))

	sorted := SortFEFO([]*StockBatch{march, never, empty, jan})

	require.Len(t, sorted, 3)
	assert.Equal(t, []string{"B-01", "B-03", "B-NONE"}, []string{
		sorted[0].BatchNumber, sorted[1].BatchNumber, sorted[2].BatchNumber,
	})
}

func TestSortFEFO_TieBreaks(t *testing.T) {
	exp := date("2024-05-01")
	older := testBatch("Z", 1, "1", exp)
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := testBatch("A", 1, "1", exp)

	sameTimeA := testBatch("A2", 1, "1", nil)
	sameTimeB := testBatch("B2", 1, "1", nil)
	sameTimeB.CreatedAt = sameTimeA.CreatedAt

	sorted := SortFEFO([]*StockBatch{sameTimeB, newer, sameTimeA, older})

	assert.Equal(t, "Z", sorted[0].BatchNumber)
	assert.Equal(t, "A", sorted[1].BatchNumber)
	assert.Equal(t, "A2", sorted[2].BatchNumber)
	assert.Equal(t, "B2", sorted[3].BatchNumber)
}

func TestFEFOAllocator_SelectBatchForWriteoff(t *testing.T) {
	a := NewFEFOAllocator()

	assert.Nil(t, a.SelectBatchForWriteoff(nil))
	assert.Nil(t, a.SelectBatchForWriteoff([]*StockBatch{testBatch("X", 0, "1", nil)}))

	soon := testBatch("SOON", 1, "1", date("2024-02-01"))
	got := a.SelectBatchForWriteoff([]*StockBatch{testBatch("LATE", 1, "1", date("2024-06-01")), soon})
	assert.Same(t, soon, got)
}

func TestFEFOAllocator_Allocate(t *testing.T) {
	a := NewFEFOAllocator()

	t.Run("splits demand across batches in expiry order", func(t *testing.T) {
		march := testBatch("MAR", 5, "2", date("2024-03-01"))
		jan := testBatch("JAN", 3, "1", date("2024-01-01"))
		never := testBatch("NONE", 10, "3", nil)

		result, err := a.Allocate(decimal.NewFromInt(4), []*StockBatch{march, jan, never})
		require.NoError(t, err)

		require.Len(t, result.Allocations, 2)
		assert.Same(t, jan, result.Allocations[0].Batch)
		assert.Equal(t, "3", result.Allocations[0].Quantity.String())
		assert.Equal(t, "0", result.Allocations[0].Remaining.String())
		assert.Same(t, march, result.Allocations[1].Batch)
		assert.Equal(t, "1", result.Allocations[1].Quantity.String())
		assert.Equal(t, "4", result.Allocations[1].Remaining.String())
		assert.True(t, result.Fulfilled)
		assert.Equal(t, "5", result.TotalCost.String())

		// allocation is a plan, batches are untouched
		assert.Equal(t, "3", jan.Quantity.String())
		assert.Equal(t, "5", march.Quantity.String())
	})

	t.Run("reports shortfall", func(t *testing.T) {
		result, err := a.Allocate(decimal.NewFromInt(7), []*StockBatch{testBatch("ONLY", 5, "1", nil)})
		require.NoError(t, err)
		assert.False(t, result.Fulfilled)
		assert.Equal(t, "5", result.Allocated.String())
		assert.Equal(t, "2", result.Shortfall.String())
	})

	t.Run("no stock", func(t *testing.T) {
		result, err := a.Allocate(decimal.NewFromInt(1), nil)
		require.NoError(t, err)
		assert.Empty(t, result.Allocations)
		assert.Equal(t, "1", result.Shortfall.String())
	})

	t.Run("rejects non-positive demand", func(t *testing.T) {
		_, err := a.Allocate(decimal.Zero, nil)
		assert.Error(t, err)
	})
}
