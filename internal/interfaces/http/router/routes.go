package router

import (
	"github.com/kitchenledger/backend/internal/interfaces/http/handler"
)

// Handlers holds every HTTP handler of the ledger API. A nil handler leaves
// its routes unregistered.
type Handlers struct {
	Documents *handler.DocumentHandler
	Sales     *handler.SaleHandler
	Stock     *handler.StockHandler
	Catalog   *handler.CatalogHandler
	Audit     *handler.AuditHandler
	Outbox    *handler.OutboxHandler
	System    *handler.SystemHandler
}

// RegisterLedgerRoutes adds the ledger route groups to r. The health probe
// is mounted on the engine root, outside the versioned prefix.
func RegisterLedgerRoutes(r *Router, h Handlers) *Router {
	if h.Documents != nil {
		documents := NewDomainGroup("documents", "/documents")
		documents.POST("", h.Documents.Create).
			GET("", h.Documents.List).
			GET("/:id", h.Documents.Get).
			POST("/:id/post", h.Documents.Post).
			POST("/:id/sync", h.Documents.Sync)
		r.Register(documents)
	}

	if h.Sales != nil {
		sales := NewDomainGroup("sales", "/sales")
		sales.POST("/writeoff", h.Sales.Writeoff)
		r.Register(sales)
	}

	if h.Stock != nil {
		stock := NewDomainGroup("stock", "/stock")
		stock.GET("/balances", h.Stock.Balances).
			GET("/fefo", h.Stock.FEFO).
			POST("/products/:id/reconcile", h.Stock.Reconcile)
		r.Register(stock)
	}

	if h.Catalog != nil {
		products := NewDomainGroup("products", "/products")
		products.GET("/:id", h.Catalog.GetProduct).
			PUT("/:id", h.Catalog.SaveProduct)

		recipes := NewDomainGroup("recipes", "/recipes")
		recipes.POST("", h.Catalog.CreateRecipe).
			PUT("/:id", h.Catalog.UpdateRecipe).
			GET("/:id/cost", h.Catalog.RecipeCost)

		warehouses := NewDomainGroup("warehouses", "/warehouses")
		warehouses.GET("", h.Catalog.ListWarehouses).
			PUT("/:id", h.Catalog.SaveWarehouse)

		r.Register(products).Register(recipes).Register(warehouses)
	}

	if h.Audit != nil {
		auditGroup := NewDomainGroup("audit", "/audit")
		auditGroup.GET("", h.Audit.Query)
		r.Register(auditGroup)
	}

	if h.Outbox != nil {
		outbox := NewDomainGroup("outbox", "/outbox")
		outbox.GET("/stats", h.Outbox.GetStats)
		dead := outbox.Group("dead-letters", "/dead")
		dead.GET("", h.Outbox.GetDeadLetterEntries).
			POST("/retry", h.Outbox.RetryAllDeadLetters).
			POST("/:id/retry", h.Outbox.RetryDeadLetter)
		r.Register(outbox)
	}

	if h.System != nil {
		maintenance := NewDomainGroup("maintenance", "/maintenance")
		maintenance.POST("/clear-old-documents", h.System.ClearOldDocuments)
		r.Register(maintenance)

		r.engine.GET("/health", h.System.Health)
	}

	return r
}
