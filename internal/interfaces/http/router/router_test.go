package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kitchenledger/backend/internal/interfaces/http/handler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewRouter(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	assert.NotNil(t, r)
	assert.Equal(t, "v1", r.apiVersion)
	assert.Equal(t, "/api/v1", r.BasePath())
	assert.Empty(t, r.registrars)
}

func TestRouterWithAPIVersion(t *testing.T) {
	r := NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "/api/v2", r.BasePath())
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	group := NewDomainGroup("stock", "/stock")
	group.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	r.Register(group).Setup()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stock/ping", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestDomainGroup(t *testing.T) {
	t.Run("registers every method", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("documents", "/documents")
		ok := func(c *gin.Context) { c.String(http.StatusOK, c.Request.Method) }
		g.GET("/:id", ok).POST("", ok).PUT("/:id", ok).PATCH("/:id", ok).DELETE("/:id", ok)
		g.RegisterRoutes(engine.Group("/api/v1"))

		tests := []struct {
			method string
			path   string
		}{
			{http.MethodGet, "/api/v1/documents/1"},
			{http.MethodPost, "/api/v1/documents"},
			{http.MethodPut, "/api/v1/documents/1"},
			{http.MethodPatch, "/api/v1/documents/1"},
			{http.MethodDelete, "/api/v1/documents/1"},
		}
		for _, tt := range tests {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code, "%s %s", tt.method, tt.path)
			assert.Equal(t, tt.method, w.Body.String())
		}
	})

	t.Run("applies middleware to the group only", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("stock", "/stock")
		g.Use(func(c *gin.Context) {
			c.Header("X-Group", "stock")
			c.Next()
		})
		g.GET("/balances", func(c *gin.Context) { c.Status(http.StatusOK) })
		g.RegisterRoutes(engine.Group("/api/v1"))
		engine.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/stock/balances", nil))
		assert.Equal(t, "stock", w.Header().Get("X-Group"))

		w = httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Empty(t, w.Header().Get("X-Group"))
	})

	t.Run("nests subgroups", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("outbox", "/outbox")
		g.Group("dead-letters", "/dead").GET("", func(c *gin.Context) {
			c.String(http.StatusOK, "dead")
		})
		g.RegisterRoutes(engine.Group("/api/v1"))

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/outbox/dead", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "dead", w.Body.String())
	})
}

func TestRouterRoutes(t *testing.T) {
	r := NewRouter(gin.New())
	g := NewDomainGroup("outbox", "/outbox")
	noop := func(c *gin.Context) {}
	g.GET("/stats", noop)
	g.Group("dead-letters", "/dead").GET("", noop).POST("/:id/retry", noop)
	r.Register(g)

	assert.Equal(t, []RouteInfo{
		{Group: "outbox", Method: "GET", Path: "/api/v1/outbox/stats"},
		{Group: "dead-letters", Method: "GET", Path: "/api/v1/outbox/dead"},
		{Group: "dead-letters", Method: "POST", Path: "/api/v1/outbox/dead/:id/retry"},
	}, r.Routes())
}

func TestRegisterLedgerRoutes(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)
	RegisterLedgerRoutes(r, Handlers{
		Documents: &handler.DocumentHandler{},
		Sales:     &handler.SaleHandler{},
		Stock:     &handler.StockHandler{},
		Catalog:   &handler.CatalogHandler{},
		Audit:     &handler.AuditHandler{},
		Outbox:    &handler.OutboxHandler{},
		System:    &handler.SystemHandler{},
	})
	r.Setup()

	registered := make(map[string]bool)
	for _, route := range engine.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	expected := []string{
		"POST /api/v1/documents",
		"GET /api/v1/documents",
		"GET /api/v1/documents/:id",
		"POST /api/v1/documents/:id/post",
		"POST /api/v1/documents/:id/sync",
		"POST /api/v1/sales/writeoff",
		"GET /api/v1/stock/balances",
		"GET /api/v1/stock/fefo",
		"POST /api/v1/stock/products/:id/reconcile",
		"GET /api/v1/products/:id",
		"PUT /api/v1/products/:id",
		"POST /api/v1/recipes",
		"PUT /api/v1/recipes/:id",
		"GET /api/v1/recipes/:id/cost",
		"GET /api/v1/warehouses",
		"PUT /api/v1/warehouses/:id",
		"GET /api/v1/audit",
		"GET /api/v1/outbox/stats",
		"GET /api/v1/outbox/dead",
		"POST /api/v1/outbox/dead/retry",
		"POST /api/v1/outbox/dead/:id/retry",
		"POST /api/v1/maintenance/clear-old-documents",
		"GET /health",
	}
	for _, route := range expected {
		assert.True(t, registered[route], "missing route %s", route)
	}
	assert.Len(t, engine.Routes(), len(expected))
}

func TestRegisterLedgerRoutes_SkipsNilHandlers(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)
	RegisterLedgerRoutes(r, Handlers{Sales: &handler.SaleHandler{}})
	r.Setup()

	require.Len(t, engine.Routes(), 1)
	assert.Equal(t, "/api/v1/sales/writeoff", engine.Routes()[0].Path)
	assert.Len(t, r.Routes(), 1)
}
