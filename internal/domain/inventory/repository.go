package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockBalanceStore holds batch balances. Get returns shared.ErrNotFound
// for a missing batch. UpsertDelta applies ApplyDelta under the store's
// negative stock policy.
type StockBalanceStore interface {
	Get(ctx context.Context, key BalanceKey) (*StockBatch, error)
	UpsertDelta(ctx context.Context, key BalanceKey, delta, costPerUnit decimal.Decimal, expiryDate *time.Time) (BalanceChange, error)
	ListByProductWarehouse(ctx context.Context, productID, warehouseID uuid.UUID) ([]*StockBatch, error)
	ListByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]*StockBatch, error)
	SumByProduct(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error)
	SumByProductWarehouse(ctx context.Context, productID, warehouseID uuid.UUID) (decimal.Decimal, error)
}

// DocumentFilter narrows document listings
type DocumentFilter struct {
	Type     DocumentType
	Status   DocumentStatus
	Limit    int
	OrderBy  string
	OrderDir string
}

// DocumentRepository persists documents with their lines
type DocumentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Document, error)
	FindAll(ctx context.Context, filter DocumentFilter) ([]*Document, error)
	Save(ctx context.Context, doc *Document) error
	// CountByNumberPrefix counts documents whose number starts with prefix
	CountByNumberPrefix(ctx context.Context, prefix string) (int64, error)
	// DeleteSyncedBefore removes synced documents dated before the cutoff
	DeleteSyncedBefore(ctx context.Context, before time.Time) (int64, error)
}
