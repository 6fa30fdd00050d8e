package handlers

import (
	"github.com/gin-gonic/gin"

	"docflow/internal/domain/reports"
	"docflow/internal/infrastructure/http/v1/dto"
)

// ReportsHandler handles HTTP requests for reports.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service *reports.Service) *ReportsHandler {
	return &ReportsHandler{
		BaseHandler: base,
		service:     service,
	}
}

// GetStockBalance handles GET /reports/stock-balance
func (h *ReportsHandler) GetStockBalance(c *gin.Context) {
	var req dto.StockBalanceReportRequest
	if !h.BindQuery(c, &req) {
		return
	}
	filter, err := req.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	report, err := h.service.GetStockBalance(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

// GetStockTurnover handles GET /reports/stock-turnover
func (h *ReportsHandler) GetStockTurnover(c *gin.Context) {
	var req dto.StockTurnoverReportRequest
	if !h.BindQuery(c, &req) {
		return
	}
	filter, err := req.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	report, err := h.service.GetStockTurnover(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

// GetDocumentSummary handles GET /reports/documents
func (h *ReportsHandler) GetDocumentSummary(c *gin.Context) {
	var req dto.DocumentSummaryRequest
	if !h.BindQuery(c, &req) {
		return
	}
	filter, err := req.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	summary, err := h.service.GetDocumentSummary(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, summary)
}

// RegisterRoutes registers report routes.
func (h *ReportsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stock-balance", h.GetStockBalance)
	rg.GET("/stock-turnover", h.GetStockTurnover)
	rg.GET("/documents", h.GetDocumentSummary)
}
