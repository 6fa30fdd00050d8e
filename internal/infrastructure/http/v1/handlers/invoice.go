package handlers

import (
	"github.com/gin-gonic/gin"

	"docflow/internal/domain/documents/invoice"
	"docflow/internal/domain/registers/stock"
	"docflow/internal/infrastructure/http/v1/dto"
)

// InvoiceHandler handles invoice HTTP requests.
type InvoiceHandler struct {
	*BaseDocumentHandler
	service *invoice.Service
	stock   *stock.Service
}

// NewInvoiceHandler creates a new invoice handler.
func NewInvoiceHandler(base *BaseHandler, service *invoice.Service, stockService *stock.Service) *InvoiceHandler {
	return &InvoiceHandler{
		BaseDocumentHandler: NewBaseDocumentHandler(base, service),
		service:             service,
		stock:               stockService,
	}
}

// Create handles POST /invoices
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req dto.CreateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.Create(c.Request.Context(), invoice.CreateInput{
		CreateInput: req.ToInput(),
		TaxRate:     req.TaxRate,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromDocument(doc))
}

// Cancel handles POST /invoices/:id/cancel
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	invoiceID, ok := h.ParseID(c)
	if !ok {
		return
	}

	doc, err := h.service.Cancel(c.Request.Context(), invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromDocument(doc))
}

// Movements handles GET /invoices/:id/movements
func (h *InvoiceHandler) Movements(c *gin.Context) {
	invoiceID, ok := h.ParseID(c)
	if !ok {
		return
	}
	if _, err := h.service.GetByID(c.Request.Context(), invoiceID); err != nil {
		h.Error(c, err)
		return
	}

	list, err := h.stock.Journal(c.Request.Context(), invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromStockMovements(list))
}

// RegisterRoutes registers invoice routes.
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	h.BaseDocumentHandler.RegisterRoutes(rg)
	rg.POST("/:id/cancel", h.Cancel)
	rg.GET("/:id/movements", h.Movements)
}
