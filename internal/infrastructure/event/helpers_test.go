package event

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/kitchenledger/backend/internal/domain/inventory"
	"github.com/kitchenledger/backend/internal/domain/shared"
	"github.com/kitchenledger/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testEvent implements DomainEvent for testing
type testEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", uuid.New()),
		Data:            "test data",
	}
}

func newStockChanged() *inventory.StockChangedEvent {
	return &inventory.StockChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(inventory.EventTypeStockChanged, inventory.AggregateTypeDocument, uuid.New()),
		ProductID:       uuid.New(),
		ProductName:     "Flour",
		WarehouseID:     uuid.New(),
		BatchNumber:     inventory.DefaultBatchNumber,
		OldQuantity:     decimal.NewFromInt(10),
		NewQuantity:     decimal.RequireFromString("9.76"),
		Change:          decimal.RequireFromString("-0.24"),
		DocumentType:    inventory.DocumentTypeWriteoff,
		Reason:          inventory.ReasonSale,
	}
}

// testHandler records the events it receives
type testHandler struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

func (h *testHandler) EventTypes() []string { return h.eventTypes }

func (h *testHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func (h *testHandler) setErr(err error) {
	h.mu.Lock()
	h.err = err
	h.mu.Unlock()
}

// newOutboxDB opens an in-memory SQLite database with the outbox table
func newOutboxDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.OutboxEntryModel{}))
	return db
}
