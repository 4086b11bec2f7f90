package persistence

import (
	"context"

	appinv "github.com/kitchenledger/backend/internal/application/inventory"
	"github.com/kitchenledger/backend/internal/domain/catalog"
	"github.com/kitchenledger/backend/internal/domain/inventory"
	"github.com/kitchenledger/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// Balance mutations, document status, the product stock cache and outbox
// rows commit or roll back together.
type GormTransactionScope struct {
	db     *gorm.DB
	policy inventory.NegativeStockPolicy
	outbox shared.OutboxWriter
}

// NewGormTransactionScope creates a new GormTransactionScope.
// outbox may be nil, in which case recorded events are dropped.
func NewGormTransactionScope(db *gorm.DB, policy inventory.NegativeStockPolicy, outbox shared.OutboxWriter) *GormTransactionScope {
	return &GormTransactionScope{db: db, policy: policy, outbox: outbox}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx, policy: s.policy, outbox: s.outbox})
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx     *gorm.DB
	policy inventory.NegativeStockPolicy
	outbox shared.OutboxWriter
}

// Balances returns the stock balance store scoped to the current transaction.
func (r *gormTransactionalRepositories) Balances() inventory.StockBalanceStore {
	return NewGormStockBalanceStore(r.tx, r.policy)
}

// Documents returns the document repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Documents() inventory.DocumentRepository {
	return NewGormDocumentRepository(r.tx)
}

// Products returns the product repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Products() catalog.ProductRepository {
	return NewGormProductRepository(r.tx)
}

// Events returns a recorder writing to the outbox inside the current transaction.
func (r *gormTransactionalRepositories) Events() appinv.EventRecorder {
	return &outboxRecorder{tx: r.tx, outbox: r.outbox}
}

type outboxRecorder struct {
	tx     *gorm.DB
	outbox shared.OutboxWriter
}

func (r *outboxRecorder) Record(ctx context.Context, events ...shared.DomainEvent) error {
	if r.outbox == nil || len(events) == 0 {
		return nil
	}
	return r.outbox.SaveEvents(ctx, r.tx, events...)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appinv.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appinv.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
