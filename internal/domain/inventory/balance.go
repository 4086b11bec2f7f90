package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/kitchenledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// NegativeStockPolicy decides what happens when a delta would drive a
// batch below zero.
type NegativeStockPolicy string

const (
	// NegativeStockReject fails the mutation with an InsufficientStockError
	NegativeStockReject NegativeStockPolicy = "reject"
	// NegativeStockClamp floors the batch at zero and reports a warning
	NegativeStockClamp NegativeStockPolicy = "clamp"
)

// ParseNegativeStockPolicy parses a configured policy name. Empty means reject.
func ParseNegativeStockPolicy(s string) (NegativeStockPolicy, error) {
	switch NegativeStockPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", NegativeStockReject:
		return NegativeStockReject, nil
	case NegativeStockClamp:
		return NegativeStockClamp, nil
	}
	return "", fmt.Errorf("unknown negative stock policy %q", s)
}

// InsufficientStockError is returned when a batch cannot cover a deduction
type InsufficientStockError struct {
	Key       BalanceKey
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for batch %s: available %s, requested %s",
		e.Key.BatchNumber, e.Available.String(), e.Requested.String())
}

// Unwrap lets errors.Is match shared.ErrInsufficientStock
func (e *InsufficientStockError) Unwrap() error {
	return shared.ErrInsufficientStock
}

// BalanceChange describes the effect of one delta on one batch
type BalanceChange struct {
	Key         BalanceKey
	OldQuantity decimal.Decimal
	NewQuantity decimal.Decimal
	Requested   decimal.Decimal
	Applied     decimal.Decimal
	CostPerUnit decimal.Decimal
	ExpiryDate  *time.Time
	Created     bool
	// Clamped is set when part of a negative delta could not be applied
	Clamped bool
}

// Changed reports whether the batch quantity moved
func (c BalanceChange) Changed() bool {
	return !c.Applied.IsZero()
}

// Warning describes a clamped change for the posting result
func (c BalanceChange) Warning() shared.Warning {
	return shared.NewWarning(shared.CodeInsufficientStock, fmt.Sprintf(
		"batch %s of product %s in warehouse %s: requested %s, applied %s, stock clamped to %s",
		c.Key.BatchNumber, c.Key.ProductID, c.Key.WarehouseID,
		c.Requested.String(), c.Applied.String(), c.NewQuantity.String(),
	))
}

// ApplyDelta applies a signed quantity to an existing batch (or nil when
// there is none) and returns the batch to persist, if any.
//
//   - existing batch: quantity += delta, a negative result is handled by policy
//   - no batch and delta > 0: a new batch is created with cost and expiry
//   - no batch and delta <= 0: nothing to deplete; under reject a negative
//     delta is an InsufficientStockError
func ApplyDelta(
	existing *StockBatch,
	key BalanceKey,
	delta, costPerUnit decimal.Decimal,
	expiryDate *time.Time,
	policy NegativeStockPolicy,
) (*StockBatch, BalanceChange, error) {
	key.BatchNumber = NormalizeBatchNumber(key.BatchNumber)
	change := BalanceChange{
		Key:         key,
		OldQuantity: decimal.Zero,
		NewQuantity: decimal.Zero,
		Requested:   delta,
		Applied:     decimal.Zero,
		CostPerUnit: costPerUnit,
		ExpiryDate:  expiryDate,
	}

	if existing == nil {
		switch {
		case delta.IsPositive():
			batch := NewStockBatch(key, delta, costPerUnit, expiryDate)
			change.NewQuantity = delta
			change.Applied = delta
			change.Created = true
			return batch, change, nil
		case delta.IsNegative() && policy != NegativeStockClamp:
			return nil, change, &InsufficientStockError{Key: key, Available: decimal.Zero, Requested: delta.Neg()}
		case delta.IsNegative():
			change.Clamped = true
		}
		return nil, change, nil
	}

	change.OldQuantity = existing.Quantity
	change.CostPerUnit = existing.CostPerUnit
	change.ExpiryDate = existing.ExpiryDate

	next := existing.Quantity.Add(delta)
	if next.IsNegative() {
		if policy != NegativeStockClamp {
			return nil, change, &InsufficientStockError{Key: key, Available: existing.Quantity, Requested: delta.Neg()}
		}
		next = decimal.Zero
		change.Clamped = true
	}

	change.NewQuantity = next
	change.Applied = next.Sub(existing.Quantity)
	existing.Quantity = next
	existing.Touch()
	return existing, change, nil
}
