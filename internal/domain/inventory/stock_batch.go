package inventory

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kitchenledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DefaultBatchNumber is used when a document line carries no batch number.
// All untracked stock of a product in a warehouse collapses into this batch.
const DefaultBatchNumber = "DEFAULT"

// NormalizeBatchNumber trims the batch number and substitutes the default
func NormalizeBatchNumber(batchNumber string) string {
	batchNumber = strings.TrimSpace(batchNumber)
	if batchNumber == "" {
		return DefaultBatchNumber
	}
	return batchNumber
}

// BalanceKey identifies one batch balance
type BalanceKey struct {
	WarehouseID uuid.UUID
	ProductID   uuid.UUID
	BatchNumber string
}

// NewBalanceKey builds a key with a normalised batch number
func NewBalanceKey(warehouseID, productID uuid.UUID, batchNumber string) BalanceKey {
	return BalanceKey{
		WarehouseID: warehouseID,
		ProductID:   productID,
		BatchNumber: NormalizeBatchNumber(batchNumber),
	}
}

// LockKey returns the serialization key guarding this balance
func (k BalanceKey) LockKey() string {
	return StockLockKey(k.WarehouseID, k.ProductID)
}

func (k BalanceKey) String() string {
	return k.WarehouseID.String() + "/" + k.ProductID.String() + "/" + k.BatchNumber
}

// StockLockKey is the per (warehouse, product) key under which balance
// mutations and FEFO allocation are serialized.
func StockLockKey(warehouseID, productID uuid.UUID) string {
	return "stock:" + warehouseID.String() + ":" + productID.String()
}

// StockBatch is the quantity of one product batch held in one warehouse.
// Quantities are in the product's base unit and CostPerUnit is per base unit.
type StockBatch struct {
	shared.BaseEntity
	WarehouseID uuid.UUID
	ProductID   uuid.UUID
	BatchNumber string
	Quantity    decimal.Decimal
	CostPerUnit decimal.Decimal
	ExpiryDate  *time.Time
}

// NewStockBatch creates a batch for the key
func NewStockBatch(key BalanceKey, quantity, costPerUnit decimal.Decimal, expiryDate *time.Time) *StockBatch {
	return &StockBatch{
		BaseEntity:  shared.NewBaseEntity(),
		WarehouseID: key.WarehouseID,
		ProductID:   key.ProductID,
		BatchNumber: NormalizeBatchNumber(key.BatchNumber),
		Quantity:    quantity,
		CostPerUnit: costPerUnit,
		ExpiryDate:  expiryDate,
	}
}

// Key returns the balance key of the batch
func (b *StockBatch) Key() BalanceKey {
	return BalanceKey{WarehouseID: b.WarehouseID, ProductID: b.ProductID, BatchNumber: b.BatchNumber}
}

// HasStock returns true if the batch has available quantity
func (b *StockBatch) HasStock() bool {
	return b.Quantity.IsPositive()
}

// IsExpired returns true if the batch expired before now
func (b *StockBatch) IsExpired(now time.Time) bool {
	if b.ExpiryDate == nil {
		return false
	}
	return b.ExpiryDate.Before(now)
}

// TotalValue returns quantity times cost
func (b *StockBatch) TotalValue() decimal.Decimal {
	return b.Quantity.Mul(b.CostPerUnit)
}

// Revalue is the only way to change the cost basis of an existing batch
func (b *StockBatch) Revalue(costPerUnit decimal.Decimal) error {
	if costPerUnit.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidInput, "cost per unit cannot be negative")
	}
	b.CostPerUnit = costPerUnit
	b.Touch()
	return nil
}
