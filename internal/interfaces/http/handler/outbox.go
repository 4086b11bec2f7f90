package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/kitchenledger/backend/internal/application/event"
)

// OutboxHandler handles outbox management HTTP requests
type OutboxHandler struct {
	BaseHandler
	outboxService *event.OutboxService
}

// NewOutboxHandler creates a new outbox handler
func NewOutboxHandler(outboxService *event.OutboxService) *OutboxHandler {
	return &OutboxHandler{
		outboxService: outboxService,
	}
}

// GetStats godoc
// @ID           getOutboxStats
// @Summary      Count outbox entries per delivery status
// @Tags         outbox
// @Produce      json
// @Success      200 {object} APIResponse[event.OutboxStatsDTO]
// @Failure      500 {object} ErrorResponse
// @Router       /outbox/stats [get]
func (h *OutboxHandler) GetStats(c *gin.Context) {
	stats, err := h.outboxService.Stats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}

// GetDeadLetterEntries godoc
// @ID           getOutboxDeadLetterEntries
// @Summary      List dead letter entries
// @Description  Entries whose delivery exhausted every retry
// @Tags         outbox
// @Produce      json
// @Param        limit query int false "Maximum number of entries" default(50)
// @Success      200 {object} APIResponse[[]event.OutboxEntryDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /outbox/dead [get]
func (h *OutboxHandler) GetDeadLetterEntries(c *gin.Context) {
	limit, ok := h.queryLimit(c)
	if !ok {
		return
	}

	entries, err := h.outboxService.DeadLetters(c.Request.Context(), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessList(c, entries, int64(len(entries)), limit)
}

// RetryDeadLetter godoc
// @ID           retryOutboxDeadLetter
// @Summary      Requeue one dead letter entry
// @Tags         outbox
// @Produce      json
// @Param        id path string true "Outbox Entry ID" format(uuid)
// @Success      200 {object} APIResponse[event.OutboxEntryDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /outbox/dead/{id}/retry [post]
func (h *OutboxHandler) RetryDeadLetter(c *gin.Context) {
	id, ok := h.paramUUID(c, "id")
	if !ok {
		return
	}

	entry, err := h.outboxService.RetryDead(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entry)
}

// RetryAllDeadLetters godoc
// @ID           retryAllOutboxDeadLetters
// @Summary      Requeue every dead letter entry
// @Tags         outbox
// @Produce      json
// @Success      200 {object} APIResponse[CountData]
// @Failure      500 {object} ErrorResponse
// @Router       /outbox/dead/retry [post]
func (h *OutboxHandler) RetryAllDeadLetters(c *gin.Context) {
	count, err := h.outboxService.RetryAllDead(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, CountData{Count: count})
}
