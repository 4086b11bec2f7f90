package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	appaudit "github.com/kitchenledger/backend/internal/application/audit"
	appinv "github.com/kitchenledger/backend/internal/application/inventory"
	"github.com/kitchenledger/backend/internal/domain/audit"
	"github.com/kitchenledger/backend/internal/domain/catalog"
	"github.com/kitchenledger/backend/internal/domain/inventory"
	"github.com/kitchenledger/backend/internal/domain/shared"
	"github.com/kitchenledger/backend/internal/infrastructure/event"
	"github.com/kitchenledger/backend/internal/infrastructure/lock"
	"github.com/kitchenledger/backend/internal/infrastructure/persistence"
	"github.com/kitchenledger/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertQty(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "want %s, got %s", want, got.String())
}

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) byType(eventType string) []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.DomainEvent
	for _, e := range p.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

type failingAudit struct{}

func (failingAudit) Append(context.Context, audit.Action, string, map[string]any) error {
	return errors.New("audit store unavailable")
}

// ledgerEnv wires the posting stack over an in-memory SQLite database
type ledgerEnv struct {
	db         *gorm.DB
	products   *persistence.GormProductRepository
	recipes    *persistence.GormRecipeRepository
	documents  *persistence.GormDocumentRepository
	balances   *persistence.GormStockBalanceStore
	audit      *appaudit.AuditService
	publisher  *recordingPublisher
	posting    *appinv.PostingService
	sales      *appinv.SaleWriteoffService
	docService *appinv.DocumentService

	mainWH    uuid.UUID
	kitchenWH uuid.UUID
}

func newLedgerEnv(t *testing.T, policy inventory.NegativeStockPolicy) *ledgerEnv {
	t.Helper()

	database, err := persistence.Open(sqlite.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared"))
	require.NoError(t, err)
	sqlDB, err := database.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate())

	db := database.DB
	env := &ledgerEnv{
		db:        db,
		products:  persistence.NewGormProductRepository(db),
		recipes:   persistence.NewGormRecipeRepository(db),
		documents: persistence.NewGormDocumentRepository(db),
		balances:  persistence.NewGormStockBalanceStore(db, policy),
		audit:     appaudit.NewAuditService(persistence.NewGormAuditRepository(db), 0, zap.NewNop()),
		publisher: &recordingPublisher{},
		mainWH:    uuid.New(),
		kitchenWH: uuid.New(),
	}

	outbox := event.NewOutboxPublisher(event.NewLedgerSerializer(), 0)
	scope := persistence.NewGormTransactionScope(db, policy, outbox)
	numbers := appinv.NewDocumentNumberer()

	env.posting = appinv.NewPostingService(scope, env.documents, lock.NewKeyedLocker(), nil, numbers, zap.NewNop())
	env.posting.SetEventPublisher(env.publisher)
	env.posting.SetAuditRecorder(env.audit)
	env.sales = appinv.NewSaleWriteoffService(env.posting, env.recipes, zap.NewNop())
	env.docService = appinv.NewDocumentService(env.documents, numbers, zap.NewNop())
	return env
}

func (e *ledgerEnv) product(t *testing.T, name, unit, cost string) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(name, catalog.ProductTypeIngredient, unit)
	require.NoError(t, err)
	_, err = p.SetUnitCost(d(cost))
	require.NoError(t, err)
	require.NoError(t, e.products.Save(context.Background(), p))
	return p
}

func (e *ledgerEnv) dish(t *testing.T, name string, ingredients ...catalog.RecipeIngredient) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(name, catalog.ProductTypeDish, "pcs")
	require.NoError(t, err)
	require.NoError(t, e.products.Save(context.Background(), p))

	r, err := catalog.NewRecipe(p.ID, name, decimal.NewFromInt(1), "pcs", ingredients)
	require.NoError(t, err)
	require.NoError(t, e.recipes.Save(context.Background(), r))
	return p
}

func (e *ledgerEnv) post(t *testing.T, body inventory.DocumentBody) *appinv.PostingResult {
	t.Helper()
	doc, err := inventory.NewDocument(body, time.Now(), "tester")
	require.NoError(t, err)
	result, err := e.posting.PostDocument(context.Background(), doc, "tester")
	require.NoError(t, err)
	return result
}

func (e *ledgerEnv) receive(t *testing.T, warehouseID uuid.UUID, lines ...inventory.DocumentLine) *appinv.PostingResult {
	t.Helper()
	return e.post(t, &inventory.ArrivalDoc{WarehouseID: warehouseID, SupplierName: "Fresh Co", Lines: lines})
}

func (e *ledgerEnv) batchQty(t *testing.T, warehouseID, productID uuid.UUID, batch string) decimal.Decimal {
	t.Helper()
	b, err := e.balances.Get(context.Background(), inventory.NewBalanceKey(warehouseID, productID, batch))
	if errors.Is(err, shared.ErrNotFound) {
		return decimal.Zero
	}
	require.NoError(t, err)
	return b.Quantity
}

func (e *ledgerEnv) currentStock(t *testing.T, productID uuid.UUID) decimal.Decimal {
	t.Helper()
	p, err := e.products.FindByID(context.Background(), productID)
	require.NoError(t, err)
	return p.CurrentStock
}

func (e *ledgerEnv) outboxCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.OutboxEntryModel{}).Count(&n).Error)
	return n
}

func (e *ledgerEnv) auditCount(t *testing.T) int64 {
	t.Helper()
	n, err := e.audit.Count(context.Background())
	require.NoError(t, err)
	return n
}
