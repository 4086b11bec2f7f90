package inventory

import (
	"sort"

	"github.com/kitchenledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SortFEFO returns the batches with positive quantity ordered for
// consumption: earliest expiry first, batches without expiry last, ties by
// creation time and then batch number. The input slice is not modified.
func SortFEFO(batches []*StockBatch) []*StockBatch {
	sorted := make([]*StockBatch, 0, len(batches))
	for _, b := range batches {
		if b != nil && b.HasStock() {
			sorted = append(sorted, b)
		}
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		switch {
		case a.ExpiryDate != nil && b.ExpiryDate != nil:
			if !a.ExpiryDate.Equal(*b.ExpiryDate) {
				return a.ExpiryDate.Before(*b.ExpiryDate)
			}
		case a.ExpiryDate != nil:
			return true
		case b.ExpiryDate != nil:
			return false
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.BatchNumber < b.BatchNumber
	})
	return sorted
}

// Allocation is the share of a demand taken from one batch
type Allocation struct {
	Batch     *StockBatch
	Quantity  decimal.Decimal
	Cost      decimal.Decimal
	Remaining decimal.Decimal // left in the batch after this allocation
}

// AllocationResult is the outcome of a FEFO allocation
type AllocationResult struct {
	Allocations []Allocation
	Allocated   decimal.Decimal
	Shortfall   decimal.Decimal
	TotalCost   decimal.Decimal
	Fulfilled   bool
}

// FEFOAllocator picks batches to deplete, soonest expiry first.
// It never mutates the batches it is given.
type FEFOAllocator struct{}

// NewFEFOAllocator creates an allocator
func NewFEFOAllocator() *FEFOAllocator {
	return &FEFOAllocator{}
}

// SelectBatchForWriteoff returns the first batch in FEFO order or nil when
// no batch has stock.
func (a *FEFOAllocator) SelectBatchForWriteoff(batches []*StockBatch) *StockBatch {
	sorted := SortFEFO(batches)
	if len(sorted) == 0 {
		return nil
	}
	return sorted[0]
}

// Allocate walks the FEFO order and splits demand across batches.
// Demand that no batch can cover is reported as Shortfall.
func (a *FEFOAllocator) Allocate(demand decimal.Decimal, batches []*StockBatch) (AllocationResult, error) {
	if !demand.IsPositive() {
		return AllocationResult{}, shared.NewDomainError(shared.CodeInvalidQuantity, "requested quantity must be positive")
	}

	result := AllocationResult{
		Allocations: make([]Allocation, 0),
		Allocated:   decimal.Zero,
		TotalCost:   decimal.Zero,
	}

	remaining := demand
	for _, batch := range SortFEFO(batches) {
		if !remaining.IsPositive() {
			break
		}
		take := decimal.Min(remaining, batch.Quantity)
		cost := take.Mul(batch.CostPerUnit)

		result.Allocations = append(result.Allocations, Allocation{
			Batch:     batch,
			Quantity:  take,
			Cost:      cost,
			Remaining: batch.Quantity.Sub(take),
		})
		result.Allocated = result.Allocated.Add(take)
		result.TotalCost = result.TotalCost.Add(cost)
		remaining = remaining.Sub(take)
	}

	result.Shortfall = remaining
	result.Fulfilled = remaining.IsZero()
	return result, nil
}
