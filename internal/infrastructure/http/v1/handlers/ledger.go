package handlers

import (
	"github.com/gin-gonic/gin"

	"costbook/internal/domain/ledger"
	"costbook/internal/infrastructure/http/v1/dto"
)

// LedgerHandler exposes the movement ledger API.
type LedgerHandler struct {
	*BaseHandler
	service *ledger.Service
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(service *ledger.Service) *LedgerHandler {
	return &LedgerHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
	}
}

// RecordMovement appends one movement, applying corrections if backdated.
// POST /api/v1/ledger/movements
func (h *LedgerHandler) RecordMovement(c *gin.Context) {
	var req dto.RecordMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cmd, err := req.ToCommand()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.Record(c.Request.Context(), cmd)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromRecordResult(result))
}

// PreviewCorrections dry-runs correction detection for a movement.
// POST /api/v1/ledger/movements/preview
func (h *LedgerHandler) PreviewCorrections(c *gin.Context) {
	var req dto.RecordMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cmd, err := req.ToCommand()
	if err != nil {
		h.Error(c, err)
		return
	}

	needed, err := h.service.PreviewCorrections(c.Request.Context(), cmd)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.CorrectionPreviewResponse, 0, len(needed))
	for _, n := range needed {
		items = append(items, dto.FromCorrectionNeeded(n))
	}
	h.OK(c, dto.ListResponse{Items: items, TotalCount: len(items)})
}

// DetectForMovement re-checks an existing movement against the ledger.
// GET /api/v1/ledger/movements/:movementId/corrections
func (h *LedgerHandler) DetectForMovement(c *gin.Context) {
	movementID, ok := h.ParseID(c, "movementId")
	if !ok {
		return
	}

	needed, err := h.service.DetectForMovement(c.Request.Context(), movementID)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.CorrectionPreviewResponse, 0, len(needed))
	for _, n := range needed {
		items = append(items, dto.FromCorrectionNeeded(n))
	}
	h.OK(c, dto.ListResponse{Items: items, TotalCount: len(items)})
}

// ListMovements returns an account's movement history.
// GET /api/v1/ledger/accounts/:accountId/movements
func (h *LedgerHandler) ListMovements(c *gin.Context) {
	accountID, ok := h.ParseID(c, "accountId")
	if !ok {
		return
	}

	var req dto.MovementListRequest
	if !h.BindQuery(c, &req) {
		return
	}

	movements, err := h.service.Movements(c.Request.Context(), accountID, req.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.MovementResponse, 0, len(movements))
	for _, m := range movements {
		items = append(items, dto.FromMovement(m))
	}
	h.OK(c, dto.ListResponse{
		Items:      items,
		TotalCount: len(items),
		Limit:      req.PageSize,
		Offset:     req.Offset(),
	})
}

// ListCorrections returns an account's correction history.
// GET /api/v1/ledger/accounts/:accountId/corrections
func (h *LedgerHandler) ListCorrections(c *gin.Context) {
	accountID, ok := h.ParseID(c, "accountId")
	if !ok {
		return
	}

	var req dto.CorrectionListRequest
	if !h.BindQuery(c, &req) {
		return
	}

	filter, err := req.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	corrections, err := h.service.Corrections(c.Request.Context(), accountID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.CorrectionResponse, 0, len(corrections))
	for _, cr := range corrections {
		items = append(items, dto.FromCorrection(cr))
	}
	h.OK(c, dto.ListResponse{
		Items:      items,
		TotalCount: len(items),
		Limit:      req.PageSize,
		Offset:     req.Offset(),
	})
}

// GetBalance returns the cached balance projection.
// GET /api/v1/ledger/accounts/:accountId/balance
func (h *LedgerHandler) GetBalance(c *gin.Context) {
	accountID, ok := h.ParseID(c, "accountId")
	if !ok {
		return
	}

	balance, err := h.service.CurrentBalance(c.Request.Context(), accountID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromBalance(balance))
}

// RebuildBalance refolds the full ledger into the balance cache.
// POST /api/v1/ledger/accounts/:accountId/balance/rebuild
func (h *LedgerHandler) RebuildBalance(c *gin.Context) {
	accountID, ok := h.ParseID(c, "accountId")
	if !ok {
		return
	}

	balance, err := h.service.RebuildBalance(c.Request.Context(), accountID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromBalance(balance))
}
