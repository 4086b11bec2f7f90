package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kitchenledger/backend/internal/domain/inventory"
	"github.com/kitchenledger/backend/internal/domain/shared"
	"github.com/kitchenledger/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockBalanceStore implements inventory.StockBalanceStore using GORM.
// Callers serialize writers per (warehouse, product); the row lock taken in
// UpsertDelta additionally guards writers that bypass the stock locker.
type GormStockBalanceStore struct {
	db     *gorm.DB
	policy inventory.NegativeStockPolicy
}

// NewGormStockBalanceStore creates a new GormStockBalanceStore
func NewGormStockBalanceStore(db *gorm.DB, policy inventory.NegativeStockPolicy) *GormStockBalanceStore {
	if policy == "" {
		policy = inventory.NegativeStockReject
	}
	return &GormStockBalanceStore{db: db, policy: policy}
}

// Get finds a batch by its key
func (s *GormStockBalanceStore) Get(ctx context.Context, key inventory.BalanceKey) (*inventory.StockBatch, error) {
	m, err := s.find(ctx, key, false)
	if err != nil {
		return nil, err
	}
	return m.ToDomain(), nil
}

func (s *GormStockBalanceStore) find(ctx context.Context, key inventory.BalanceKey, forUpdate bool) (*models.StockBatchModel, error) {
	query := s.db.WithContext(ctx)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var m models.StockBatchModel
	err := query.
		Where("warehouse_id = ? AND product_id = ? AND batch_number = ?",
			key.WarehouseID, key.ProductID, inventory.NormalizeBatchNumber(key.BatchNumber)).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// UpsertDelta applies a signed quantity to the batch under the store policy
func (s *GormStockBalanceStore) UpsertDelta(
	ctx context.Context,
	key inventory.BalanceKey,
	delta, costPerUnit decimal.Decimal,
	expiryDate *time.Time,
) (inventory.BalanceChange, error) {
	var existing *inventory.StockBatch
	m, err := s.find(ctx, key, true)
	switch {
	case err == nil:
		existing = m.ToDomain()
	case !errors.Is(err, shared.ErrNotFound):
		return inventory.BalanceChange{}, err
	}

	batch, change, err := inventory.ApplyDelta(existing, key, delta, costPerUnit, expiryDate, s.policy)
	if err != nil {
		return change, err
	}
	if batch == nil {
		return change, nil
	}

	if change.Created {
		if err := s.db.WithContext(ctx).Create(models.StockBatchModelFromDomain(batch)).Error; err != nil {
			return change, err
		}
		return change, nil
	}

	if !change.Changed() {
		return change, nil
	}
	err = s.db.WithContext(ctx).
		Model(&models.StockBatchModel{}).
		Where("id = ?", batch.ID).
		Updates(map[string]any{
			"quantity":   batch.Quantity,
			"updated_at": batch.UpdatedAt,
		}).Error
	return change, err
}

// ListByProductWarehouse returns every batch of the product in the warehouse
func (s *GormStockBalanceStore) ListByProductWarehouse(ctx context.Context, productID, warehouseID uuid.UUID) ([]*inventory.StockBatch, error) {
	var rows []models.StockBatchModel
	if err := s.db.WithContext(ctx).
		Where("product_id = ? AND warehouse_id = ?", productID, warehouseID).
		Order("created_at ASC, batch_number ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toBatches(rows), nil
}

// ListByWarehouse returns every batch held in the warehouse
func (s *GormStockBalanceStore) ListByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]*inventory.StockBatch, error) {
	var rows []models.StockBatchModel
	if err := s.db.WithContext(ctx).
		Where("warehouse_id = ?", warehouseID).
		Order("product_id ASC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toBatches(rows), nil
}

// SumByProduct returns the product quantity across all warehouses
func (s *GormStockBalanceStore) SumByProduct(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	return s.sum(ctx, s.db.WithContext(ctx).Where("product_id = ?", productID))
}

// SumByProductWarehouse returns the product quantity held in one warehouse
func (s *GormStockBalanceStore) SumByProductWarehouse(ctx context.Context, productID, warehouseID uuid.UUID) (decimal.Decimal, error) {
	return s.sum(ctx, s.db.WithContext(ctx).Where("product_id = ? AND warehouse_id = ?", productID, warehouseID))
}

// sum adds quantities in Go so the result keeps decimal precision on every dialect
func (s *GormStockBalanceStore) sum(_ context.Context, query *gorm.DB) (decimal.Decimal, error) {
	var quantities []decimal.Decimal
	if err := query.Model(&models.StockBatchModel{}).Pluck("quantity", &quantities).Error; err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, q := range quantities {
		total = total.Add(q)
	}
	return total, nil
}

func toBatches(rows []models.StockBatchModel) []*inventory.StockBatch {
	out := make([]*inventory.StockBatch, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

// Ensure GormStockBalanceStore implements StockBalanceStore
var _ inventory.StockBalanceStore = (*GormStockBalanceStore)(nil)
