package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	appinv "github.com/kitchenledger/backend/internal/application/inventory"
	"github.com/kitchenledger/backend/internal/interfaces/http/dto"
)

// HealthChecker reports whether a backing store is reachable
type HealthChecker interface {
	Ping() error
}

// SystemHandler handles health and maintenance endpoints
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	database  HealthChecker
	posting   *appinv.PostingService
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(name, version string, database HealthChecker, posting *appinv.PostingService) *SystemHandler {
	return &SystemHandler{
		name:      name,
		version:   version,
		database:  database,
		posting:   posting,
		startTime: time.Now(),
	}
}

// HealthResponse represents the health check response
// @name HandlerHealthResponse
type HealthResponse struct {
	Status    string `json:"status" example:"ok"`
	Name      string `json:"name" example:"kitchen-ledger"`
	Version   string `json:"version" example:"1.0.0"`
	GoVersion string `json:"go_version" example:"go1.25.5"`
	Uptime    string `json:"uptime" example:"1h30m45s"`
	Database  string `json:"database" example:"up"`
}

// ClearOldDocumentsRequest selects synced documents to delete
// @Description	Either before or older_than_days must be given
type ClearOldDocumentsRequest struct {
	Before        *time.Time `json:"before" example:"2024-01-01T00:00:00Z"`
	OlderThanDays int        `json:"older_than_days" binding:"omitempty,min=1,max=3650" example:"90"`
}

// ClearOldDocumentsResponse reports how many documents were deleted
type ClearOldDocumentsResponse struct {
	Before  time.Time `json:"before"`
	Deleted int64     `json:"deleted"`
}

// Health godoc
// @ID           health
// @Summary      Liveness and database reachability
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[HealthResponse]
// @Failure      503 {object} APIResponse[HealthResponse]
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:    "ok",
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Database:  "up",
	}

	status := http.StatusOK
	if h.database != nil {
		if err := h.database.Ping(); err != nil {
			resp.Status = "degraded"
			resp.Database = "down"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, dto.NewSuccessResponse(resp))
}

// ClearOldDocuments godoc
// @ID           clearOldDocuments
// @Summary      Delete synced documents dated before a cutoff
// @Description  Draft and posted documents are never deleted.
// @Tags         system
// @Accept       json
// @Produce      json
// @Param        X-User-ID header string false "Acting user"
// @Param        request body ClearOldDocumentsRequest true "Cutoff"
// @Success      200 {object} APIResponse[ClearOldDocumentsResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /maintenance/clear-old-documents [post]
func (h *SystemHandler) ClearOldDocuments(c *gin.Context) {
	var req ClearOldDocumentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	var before time.Time
	switch {
	case req.Before != nil:
		before = *req.Before
	case req.OlderThanDays > 0:
		before = time.Now().AddDate(0, 0, -req.OlderThanDays)
	default:
		h.BadRequest(c, "before or older_than_days is required")
		return
	}

	deleted, err := h.posting.ClearOldDocuments(c.Request.Context(), before, h.user(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ClearOldDocumentsResponse{Before: before, Deleted: deleted})
}
