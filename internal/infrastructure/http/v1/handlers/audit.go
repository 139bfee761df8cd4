package handlers

import (
	"github.com/gin-gonic/gin"

	"costbook/internal/infrastructure/http/v1/dto"
	"costbook/internal/infrastructure/storage/postgres"
)

// AuditHandler exposes the audit trail.
type AuditHandler struct {
	*BaseHandler
	audit *postgres.AuditService
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(audit *postgres.AuditService) *AuditHandler {
	return &AuditHandler{
		BaseHandler: NewBaseHandler(),
		audit:       audit,
	}
}

// EntityHistory returns the audit history of one entity, newest first.
// GET /api/v1/audit/:entityType/:entityId
func (h *AuditHandler) EntityHistory(c *gin.Context) {
	entityID, ok := h.ParseID(c, "entityId")
	if !ok {
		return
	}
	limit := h.ParseIntQuery(c, "limit", 50)

	entries, err := h.audit.GetEntityHistory(c.Request.Context(), c.Param("entityType"), entityID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, dto.FromAuditEntry(e))
	}
	h.OK(c, dto.ListResponse{Items: items, TotalCount: len(items), Limit: limit})
}
