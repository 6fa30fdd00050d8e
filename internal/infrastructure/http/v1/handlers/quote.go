package handlers

import (
	"github.com/gin-gonic/gin"

	"docflow/internal/domain/conversion"
	"docflow/internal/domain/documents/quote"
	"docflow/internal/infrastructure/http/v1/dto"
)

// QuoteHandler handles quote HTTP requests.
type QuoteHandler struct {
	*BaseDocumentHandler
	service    *quote.Service
	conversion *conversion.Service
}

// NewQuoteHandler creates a new quote handler.
func NewQuoteHandler(base *BaseHandler, service *quote.Service, conv *conversion.Service) *QuoteHandler {
	return &QuoteHandler{
		BaseDocumentHandler: NewBaseDocumentHandler(base, service),
		service:             service,
		conversion:          conv,
	}
}

// Create handles POST /quotes
func (h *QuoteHandler) Create(c *gin.Context) {
	var req dto.CreateDocumentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.Create(c.Request.Context(), quote.CreateInput{CreateInput: req.ToInput()})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromDocument(doc))
}

// Convert handles POST /quotes/:id/convert
func (h *QuoteHandler) Convert(c *gin.Context) {
	quoteID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req dto.ConvertQuoteRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}

	note, err := h.conversion.ConvertQuoteToDeliveryNote(c.Request.Context(), quoteID, req.ToOptions())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromDocument(note))
}

// RegisterRoutes registers quote routes.
func (h *QuoteHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	h.BaseDocumentHandler.RegisterRoutes(rg)
	rg.POST("/:id/convert", h.Convert)
}
