package handler

import (
	"github.com/gin-gonic/gin"
	appaudit "github.com/kitchenledger/backend/internal/application/audit"
)

// AuditHandler reads the append-only audit log
type AuditHandler struct {
	BaseHandler
	audit *appaudit.AuditService
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(auditService *appaudit.AuditService) *AuditHandler {
	return &AuditHandler{audit: auditService}
}

// Query godoc
// @ID           queryAuditLog
// @Summary      Most recent audit entries, newest first
// @Tags         audit
// @Produce      json
// @Param        limit query int false "Maximum number of entries" default(100)
// @Success      200 {object} APIResponse[[]audit.Entry]
// @Failure      400 {object} ErrorResponse
// @Router       /audit [get]
func (h *AuditHandler) Query(c *gin.Context) {
	limit, ok := h.queryLimit(c)
	if !ok {
		return
	}

	entries, err := h.audit.Query(c.Request.Context(), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	total, err := h.audit.Count(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessList(c, entries, total, limit)
}
