package handlers

import (
	"github.com/gin-gonic/gin"

	"docflow/internal/domain/documents"
	"docflow/internal/domain/payments"
	"docflow/internal/infrastructure/http/v1/dto"
)

// PaymentHandler handles the payment routes of one payable family.
type PaymentHandler struct {
	*BaseHandler
	service *payments.Service
	family  documents.Family
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(base *BaseHandler, service *payments.Service, family documents.Family) *PaymentHandler {
	return &PaymentHandler{BaseHandler: base, service: service, family: family}
}

// Add handles POST /{family}/:id/payments
func (h *PaymentHandler) Add(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req dto.PaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	payment, doc, err := h.service.AddPayment(c.Request.Context(), h.family, docID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.NewAddPaymentResponse(payment, doc))
}

// List handles GET /{family}/:id/payments
func (h *PaymentHandler) List(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}

	list, err := h.service.History(c.Request.Context(), h.family, docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromPayments(list))
}

// RegisterRoutes registers payment routes under a document group.
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/payments", h.Add)
	rg.GET("/:id/payments", h.List)
}
