package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"docflow/internal/core/id"
	"docflow/internal/domain"
	"docflow/internal/domain/documents"
	"docflow/internal/infrastructure/http/v1/dto"
)

// DocumentService defines the operations every family service shares.
type DocumentService interface {
	GetByID(ctx context.Context, docID id.ID) (*documents.Document, error)
	List(ctx context.Context, filter documents.ListFilter) (domain.ListResult[*documents.Document], error)
	History(ctx context.Context, docID id.ID) ([]documents.Event, error)
	Update(ctx context.Context, docID id.ID, in documents.UpdateInput) (*documents.Document, error)
	ChangeStatus(ctx context.Context, docID id.ID, to documents.Status) (*documents.Document, error)
	Delete(ctx context.Context, docID id.ID) error
}

// BaseDocumentHandler provides the HTTP handlers shared by document families.
// Family handlers embed it and add creation and their own actions.
type BaseDocumentHandler struct {
	*BaseHandler
	service DocumentService
}

// NewBaseDocumentHandler creates a new base document handler.
func NewBaseDocumentHandler(base *BaseHandler, service DocumentService) *BaseDocumentHandler {
	return &BaseDocumentHandler{BaseHandler: base, service: service}
}

// List handles GET /{family}
func (h *BaseDocumentHandler) List(c *gin.Context) {
	var req dto.DocumentListRequest
	if !h.BindQuery(c, &req) {
		return
	}
	filter, err := req.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	res, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(res, dto.FromDocument))
}

// Get handles GET /{family}/:id
func (h *BaseDocumentHandler) Get(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}

	doc, err := h.service.GetByID(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromDocument(doc))
}

// Update handles PUT /{family}/:id
func (h *BaseDocumentHandler) Update(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req dto.UpdateDocumentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.Update(c.Request.Context(), docID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromDocument(doc))
}

// ChangeStatus handles PATCH /{family}/:id/status
func (h *BaseDocumentHandler) ChangeStatus(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req dto.ChangeStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.ChangeStatus(c.Request.Context(), docID, documents.Status(req.Status))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromDocument(doc))
}

// Delete handles DELETE /{family}/:id
func (h *BaseDocumentHandler) Delete(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), docID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// History handles GET /{family}/:id/history
func (h *BaseDocumentHandler) History(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}

	events, err := h.service.History(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromEvents(events))
}

// RegisterRoutes registers the shared document routes.
// Creation is registered by the family handler.
func (h *BaseDocumentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.PATCH("/:id/status", h.ChangeStatus)
	rg.GET("/:id/history", h.History)
}
