package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appaudit "github.com/kitchenledger/backend/internal/application/audit"
	appcatalog "github.com/kitchenledger/backend/internal/application/catalog"
	appinv "github.com/kitchenledger/backend/internal/application/inventory"
	"github.com/kitchenledger/backend/internal/domain/catalog"
	"github.com/kitchenledger/backend/internal/domain/inventory"
	"github.com/kitchenledger/backend/internal/infrastructure/event"
	"github.com/kitchenledger/backend/internal/infrastructure/lock"
	"github.com/kitchenledger/backend/internal/infrastructure/persistence"
	"github.com/kitchenledger/backend/internal/interfaces/http/dto"
	"github.com/kitchenledger/backend/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "want %s, got %s", want, got.String())
}

// apiEnv serves the ledger API over an in-memory SQLite database
type apiEnv struct {
	engine     *gin.Engine
	db         *gorm.DB
	products   *persistence.GormProductRepository
	recipes    *persistence.GormRecipeRepository
	warehouses *persistence.GormWarehouseRepository
	database   *persistence.Database

	mainWH uuid.UUID
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	database, err := persistence.Open(sqlite.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared"))
	require.NoError(t, err)
	sqlDB, err := database.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate())

	db := database.DB
	env := &apiEnv{
		db:         db,
		database:   database,
		products:   persistence.NewGormProductRepository(db),
		recipes:    persistence.NewGormRecipeRepository(db),
		warehouses: persistence.NewGormWarehouseRepository(db),
		mainWH:     uuid.New(),
	}

	policy := inventory.NegativeStockReject
	documents := persistence.NewGormDocumentRepository(db)
	auditService := appaudit.NewAuditService(persistence.NewGormAuditRepository(db), 0, zap.NewNop())
	scope := persistence.NewGormTransactionScope(db, policy, event.NewOutboxPublisher(event.NewLedgerSerializer(), 0))
	numbers := appinv.NewDocumentNumberer()

	posting := appinv.NewPostingService(scope, documents, lock.NewKeyedLocker(), nil, numbers, zap.NewNop())
	posting.SetAuditRecorder(auditService)
	catalogService := appcatalog.NewCatalogService(env.products, env.recipes, env.warehouses, nil, zap.NewNop())
	catalogService.SetAuditRecorder(auditService)

	documentHandler := NewDocumentHandler(appinv.NewDocumentService(documents, numbers, zap.NewNop()), posting)
	saleHandler := NewSaleHandler(appinv.NewSaleWriteoffService(posting, env.recipes, zap.NewNop()))
	stockHandler := NewStockHandler(appinv.NewStockQueryService(persistence.NewGormStockBalanceStore(db, policy)), posting)
	catalogHandler := NewCatalogHandler(catalogService)
	auditHandler := NewAuditHandler(auditService)
	systemHandler := NewSystemHandler("kitchen-ledger", "test", database, posting)

	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.UserIdentity())
	engine.GET("/health", systemHandler.Health)

	api := engine.Group("/api/v1")
	api.POST("/documents", documentHandler.Create)
	api.GET("/documents", documentHandler.List)
	api.GET("/documents/:id", documentHandler.Get)
	api.POST("/documents/:id/post", documentHandler.Post)
	api.POST("/documents/:id/sync", documentHandler.Sync)
	api.POST("/sales/writeoff", saleHandler.Writeoff)
	api.GET("/stock/balances", stockHandler.Balances)
	api.GET("/stock/fefo", stockHandler.FEFO)
	api.POST("/stock/products/:id/reconcile", stockHandler.Reconcile)
	api.GET("/products/:id", catalogHandler.GetProduct)
	api.PUT("/products/:id", catalogHandler.SaveProduct)
	api.POST("/recipes", catalogHandler.CreateRecipe)
	api.PUT("/recipes/:id", catalogHandler.UpdateRecipe)
	api.GET("/recipes/:id/cost", catalogHandler.RecipeCost)
	api.GET("/warehouses", catalogHandler.ListWarehouses)
	api.PUT("/warehouses/:id", catalogHandler.SaveWarehouse)
	api.GET("/audit", auditHandler.Query)
	api.POST("/maintenance/clear-old-documents", systemHandler.ClearOldDocuments)

	env.engine = engine
	return env
}

// do sends a request as user "chef" and returns the recorder
func (e *apiEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.UserHeader, "chef")
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

// decode unmarshals the data field of a success envelope into out
func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var resp APIResponse[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	require.True(t, resp.Success, w.Body.String())
	return resp.Data
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) *dto.ErrorInfo {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	return resp.Error
}

func (e *apiEnv) product(t *testing.T, name, unit, cost string) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(name, catalog.ProductTypeIngredient, unit)
	require.NoError(t, err)
	_, err = p.SetUnitCost(d(cost))
	require.NoError(t, err)
	require.NoError(t, e.products.Save(context.Background(), p))
	return p
}

func (e *apiEnv) dish(t *testing.T, name string, ingredients ...catalog.RecipeIngredient) (*catalog.Product, *catalog.Recipe) {
	t.Helper()
	p, err := catalog.NewProduct(name, catalog.ProductTypeDish, "pcs")
	require.NoError(t, err)
	require.NoError(t, e.products.Save(context.Background(), p))

	r, err := catalog.NewRecipe(p.ID, name, decimal.NewFromInt(1), "pcs", ingredients)
	require.NoError(t, err)
	require.NoError(t, e.recipes.Save(context.Background(), r))
	return p, r
}

// receive creates and posts an arrival through the API
func (e *apiEnv) receive(t *testing.T, lines ...DocumentLineRequest) DocumentResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/documents", CreateDocumentRequest{
		Type:         "arrival",
		WarehouseID:  e.mainWH.String(),
		SupplierName: "Fresh Co",
		Lines:        lines,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	doc := decode[DocumentResponse](t, w)

	w = e.do(t, http.MethodPost, "/api/v1/documents/"+doc.ID.String()+"/post", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[PostingResponse](t, w).Document
}
