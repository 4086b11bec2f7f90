package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/kitchenledger/backend/internal/domain/inventory"
	"github.com/kitchenledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// StockQueryService answers read-only balance questions
type StockQueryService struct {
	balances  inventory.StockBalanceStore
	allocator *inventory.FEFOAllocator
}

// NewStockQueryService creates a new StockQueryService
func NewStockQueryService(balances inventory.StockBalanceStore) *StockQueryService {
	return &StockQueryService{balances: balances, allocator: inventory.NewFEFOAllocator()}
}

// Balances lists the batches of a warehouse, optionally for one product
func (s *StockQueryService) Balances(ctx context.Context, q BalanceQuery) (*BalanceResponse, error) {
	if q.WarehouseID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "warehouse id is required")
	}

	var (
		batches []*inventory.StockBatch
		err     error
	)
	if q.ProductID != nil {
		batches, err = s.balances.ListByProductWarehouse(ctx, *q.ProductID, q.WarehouseID)
	} else {
		batches, err = s.balances.ListByWarehouse(ctx, q.WarehouseID)
	}
	if err != nil {
		return nil, err
	}

	return &BalanceResponse{
		WarehouseID: q.WarehouseID,
		ProductID:   q.ProductID,
		Batches:     batches,
		Total:       sumQuantity(batches),
	}, nil
}

// FEFOOrder returns the batches of a product in the order write-offs consume them
func (s *StockQueryService) FEFOOrder(ctx context.Context, warehouseID, productID uuid.UUID) (*FEFOResponse, error) {
	if warehouseID == uuid.Nil || productID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "warehouse id and product id are required")
	}
	batches, err := s.balances.ListByProductWarehouse(ctx, productID, warehouseID)
	if err != nil {
		return nil, err
	}
	sorted := inventory.SortFEFO(batches)
	return &FEFOResponse{
		WarehouseID: warehouseID,
		ProductID:   productID,
		Next:        s.allocator.SelectBatchForWriteoff(batches),
		Batches:     sorted,
		Total:       sumQuantity(sorted),
	}, nil
}

func sumQuantity(batches []*inventory.StockBatch) decimal.Decimal {
	total := decimal.Zero
	for _, b := range batches {
		total = total.Add(b.Quantity)
	}
	return total
}
