package inventory

import (
	"context"

	"github.com/kitchenledger/backend/internal/domain/catalog"
	"github.com/kitchenledger/backend/internal/domain/inventory"
	"github.com/kitchenledger/backend/internal/domain/shared"
)

// TransactionScope provides transactional access to the ledger repositories.
// All repository operations made inside fn are committed or rolled back together.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories gives access to repositories sharing one
// database transaction.
type TransactionalRepositories interface {
	// Balances returns the stock balance store, applying the configured
	// negative stock policy
	Balances() inventory.StockBalanceStore
	Documents() inventory.DocumentRepository
	// Products is used to refresh the product stock cache
	Products() catalog.ProductRepository
	// Events stores domain events in the transactional outbox
	Events() EventRecorder
}

// EventRecorder stores domain events so they commit with the transaction
type EventRecorder interface {
	Record(ctx context.Context, events ...shared.DomainEvent) error
}

// StockLocker serializes mutations per (warehouse, product) key.
// Lock acquires every key in the given order and returns a release func.
type StockLocker interface {
	Lock(ctx context.Context, keys []string) (release func(), err error)
}
