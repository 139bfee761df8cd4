package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"costbook/internal/domain/reports"
	"costbook/internal/infrastructure/http/v1/dto"
)

// ReportsHandler exposes report endpoints.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(service *reports.Service) *ReportsHandler {
	return &ReportsHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
	}
}

// GetTurnover generates the account turnover report.
// GET /api/v1/reports/turnover
func (h *ReportsHandler) GetTurnover(c *gin.Context) {
	var req dto.TurnoverRequest
	if !h.BindQuery(c, &req) {
		return
	}

	filter, err := req.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	report, err := h.service.GetTurnover(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, report)
}

// GetAverageCost returns an account's cost state as of a date.
// GET /api/v1/reports/accounts/:accountId/average-cost
func (h *ReportsHandler) GetAverageCost(c *gin.Context) {
	accountID, ok := h.ParseID(c, "accountId")
	if !ok {
		return
	}

	var req dto.AverageCostRequest
	if !h.BindQuery(c, &req) {
		return
	}

	asOf := time.Now().UTC()
	if req.AsOfDate != nil {
		asOf = *req.AsOfDate
	}

	info, err := h.service.GetAverageCost(c.Request.Context(), accountID, asOf)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, info)
}
