package handlers

import (
	"github.com/gin-gonic/gin"

	"docflow/internal/domain/conversion"
	"docflow/internal/domain/documents/delivery_note"
	"docflow/internal/domain/registers/stock"
	"docflow/internal/infrastructure/http/v1/dto"
)

// DeliveryNoteHandler handles delivery note HTTP requests.
type DeliveryNoteHandler struct {
	*BaseDocumentHandler
	service    *delivery_note.Service
	conversion *conversion.Service
	stock      *stock.Service
}

// NewDeliveryNoteHandler creates a new delivery note handler.
func NewDeliveryNoteHandler(
	base *BaseHandler,
	service *delivery_note.Service,
	conv *conversion.Service,
	stockService *stock.Service,
) *DeliveryNoteHandler {
	return &DeliveryNoteHandler{
		BaseDocumentHandler: NewBaseDocumentHandler(base, service),
		service:             service,
		conversion:          conv,
		stock:               stockService,
	}
}

// Create handles POST /delivery-notes
func (h *DeliveryNoteHandler) Create(c *gin.Context) {
	var req dto.CreateDeliveryNoteRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.Create(c.Request.Context(), delivery_note.CreateInput{
		CreateInput:  req.ToInput(),
		Advancements: dto.ToInputs(req.Advancements),
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromDocument(doc))
}

// Invoice handles POST /delivery-notes/:id/invoice
func (h *DeliveryNoteHandler) Invoice(c *gin.Context) {
	noteID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req dto.InvoiceNoteRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}

	inv, err := h.conversion.CreateInvoiceFromDeliveryNote(c.Request.Context(), noteID, req.ToOptions())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromDocument(inv))
}

// Movements handles GET /delivery-notes/:id/movements
func (h *DeliveryNoteHandler) Movements(c *gin.Context) {
	noteID, ok := h.ParseID(c)
	if !ok {
		return
	}
	if _, err := h.service.GetByID(c.Request.Context(), noteID); err != nil {
		h.Error(c, err)
		return
	}

	list, err := h.stock.Journal(c.Request.Context(), noteID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromStockMovements(list))
}

// RegisterRoutes registers delivery note routes.
func (h *DeliveryNoteHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	h.BaseDocumentHandler.RegisterRoutes(rg)
	rg.POST("/:id/invoice", h.Invoice)
	rg.GET("/:id/movements", h.Movements)
}
