package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"docflow/internal/core/apperror"
	"docflow/internal/core/id"
	"docflow/internal/domain"
	"docflow/internal/domain/conversion"
	"docflow/internal/domain/documents"
)

// --- Request DTOs ---

// DocumentLineRequest represents a line in create/update request.
type DocumentLineRequest struct {
	ProductID id.ID            `json:"productId"`
	Quantity  int64            `json:"quantity" binding:"gt=0"`
	UnitPrice *decimal.Decimal `json:"unitPrice,omitempty"`
	Discount  decimal.Decimal  `json:"discount"`
}

func toLineInputs(lines []DocumentLineRequest) []documents.LineInput {
	if lines == nil {
		return nil
	}
	out := make([]documents.LineInput, len(lines))
	for i, l := range lines {
		out[i] = documents.LineInput{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Discount:  l.Discount,
		}
	}
	return out
}

// CreateDocumentRequest holds the fields shared by every family on creation.
type CreateDocumentRequest struct {
	ClientID    id.ID                 `json:"clientId"`
	Date        time.Time             `json:"date"`
	DueDate     *time.Time            `json:"dueDate,omitempty"`
	PaymentMode string                `json:"paymentMode,omitempty"`
	Notes       string                `json:"notes,omitempty"`
	Discount    decimal.Decimal       `json:"discount"`
	Lines       []DocumentLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToInput converts request to the shared service input.
func (r *CreateDocumentRequest) ToInput() documents.CreateInput {
	return documents.CreateInput{
		ClientID:    r.ClientID,
		Date:        r.Date,
		DueDate:     r.DueDate,
		PaymentMode: r.PaymentMode,
		Notes:       r.Notes,
		Discount:    r.Discount,
		Lines:       toLineInputs(r.Lines),
	}
}

// CreateDeliveryNoteRequest creates a delivery note, optionally with advance payments.
type CreateDeliveryNoteRequest struct {
	CreateDocumentRequest
	Advancements []PaymentRequest `json:"advancements,omitempty" binding:"omitempty,dive"`
}

// CreateInvoiceRequest creates an invoice directly from products.
type CreateInvoiceRequest struct {
	CreateDocumentRequest
	TaxRate *decimal.Decimal `json:"taxRate,omitempty"`
}

// UpdateDocumentRequest represents a request to update a document.
// A non-empty lines array replaces every line.
type UpdateDocumentRequest struct {
	Version     int                   `json:"version" binding:"required,min=1"`
	DueDate     *time.Time            `json:"dueDate,omitempty"`
	PaymentMode *string               `json:"paymentMode,omitempty"`
	Notes       *string               `json:"notes,omitempty"`
	Discount    *decimal.Decimal      `json:"discount,omitempty"`
	Lines       []DocumentLineRequest `json:"lines,omitempty" binding:"omitempty,min=1,dive"`
}

// ToInput converts request to the service input.
func (r *UpdateDocumentRequest) ToInput() documents.UpdateInput {
	return documents.UpdateInput{
		Version:     r.Version,
		DueDate:     r.DueDate,
		PaymentMode: r.PaymentMode,
		Notes:       r.Notes,
		Discount:    r.Discount,
		Lines:       toLineInputs(r.Lines),
	}
}

// ChangeStatusRequest moves a document to another status.
type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ConvertQuoteRequest tunes quote to delivery note conversion.
type ConvertQuoteRequest struct {
	DeliveryDate *time.Time `json:"deliveryDate,omitempty"`
	Notes        *string    `json:"notes,omitempty"`
}

// ToOptions converts request to conversion options.
func (r *ConvertQuoteRequest) ToOptions() conversion.DeliveryOptions {
	return conversion.DeliveryOptions{DeliveryDate: r.DeliveryDate, Notes: r.Notes}
}

// InvoiceNoteRequest tunes delivery note to invoice conversion.
type InvoiceNoteRequest struct {
	TaxRate *decimal.Decimal `json:"taxRate,omitempty"`
	DueDate *time.Time       `json:"dueDate,omitempty"`
}

// ToOptions converts request to conversion options.
func (r *InvoiceNoteRequest) ToOptions() conversion.InvoiceOptions {
	return conversion.InvoiceOptions{TaxRate: r.TaxRate, DueDate: r.DueDate}
}

// DocumentListRequest contains list query parameters.
type DocumentListRequest struct {
	PaginationRequest
	Status   string     `form:"status"`
	ClientID string     `form:"clientId"`
	DateFrom *time.Time `form:"dateFrom" time_format:"2006-01-02"`
	DateTo   *time.Time `form:"dateTo" time_format:"2006-01-02"`
}

// ToFilter converts request to a document list filter.
func (r *DocumentListRequest) ToFilter() (documents.ListFilter, error) {
	f := documents.ListFilter{
		ListFilter: domain.ListFilter{
			Search:  r.Search,
			OrderBy: r.OrderBy,
			Limit:   r.Limit,
			Offset:  r.Offset,
		},
		Status:   documents.Status(r.Status),
		DateFrom: r.DateFrom,
		DateTo:   r.DateTo,
	}
	if r.ClientID != "" {
		clientID, err := id.Parse(r.ClientID)
		if err != nil {
			return f, apperror.NewValidation("invalid client id").WithDetail("field", "clientId")
		}
		f.ClientID = &clientID
	}
	if f.DateTo != nil {
		// Inclusive end of day.
		end := f.DateTo.Add(24*time.Hour - time.Nanosecond)
		f.DateTo = &end
	}
	return f, nil
}

// --- Response DTOs ---

// DocumentLineResponse represents a line in API responses.
type DocumentLineResponse struct {
	ID           string          `json:"id"`
	LineNo       int             `json:"lineNo"`
	ProductID    string          `json:"productId"`
	Designation  string          `json:"designation"`
	Quantity     int64           `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Discount     decimal.Decimal `json:"discount"`
	Total        decimal.Decimal `json:"total"`
	TaxAmount    decimal.Decimal `json:"taxAmount"`
	TotalWithTax decimal.Decimal `json:"totalWithTax"`
}

// DocumentResponse represents a document of any family in API responses.
type DocumentResponse struct {
	ID              string                 `json:"id"`
	Version         int                    `json:"version"`
	Family          string                 `json:"family"`
	Code            string                 `json:"code"`
	ClientID        string                 `json:"clientId"`
	Date            time.Time              `json:"date"`
	DueDate         *time.Time             `json:"dueDate,omitempty"`
	PaymentMode     string                 `json:"paymentMode,omitempty"`
	Notes           string                 `json:"notes,omitempty"`
	Subtotal        decimal.Decimal        `json:"subtotal"`
	Discount        decimal.Decimal        `json:"discount"`
	TaxRate         *decimal.Decimal       `json:"taxRate,omitempty"`
	TaxAmount       decimal.Decimal        `json:"taxAmount"`
	Total           decimal.Decimal        `json:"total"`
	AmountPaid      decimal.Decimal        `json:"amountPaid"`
	AmountRemaining decimal.Decimal        `json:"amountRemaining"`
	Status          string                 `json:"status"`
	SourceID        string                 `json:"sourceId,omitempty"`
	TargetID        string                 `json:"targetId,omitempty"`
	Converted       bool                   `json:"converted"`
	StockReserved   bool                   `json:"stockReserved"`
	Lines           []DocumentLineResponse `json:"lines"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}

// FromDocument converts entity to response DTO.
func FromDocument(d *documents.Document) DocumentResponse {
	resp := DocumentResponse{
		ID:              d.ID.String(),
		Version:         d.Version,
		Family:          string(d.Family),
		Code:            d.Code,
		ClientID:        d.ClientID.String(),
		Date:            d.Date,
		DueDate:         d.DueDate,
		PaymentMode:     d.PaymentMode,
		Notes:           d.Notes,
		Subtotal:        d.Subtotal,
		Discount:        d.Discount,
		TaxRate:         d.TaxRate,
		TaxAmount:       d.TaxAmount,
		Total:           d.Total,
		AmountPaid:      d.AmountPaid,
		AmountRemaining: d.AmountRemaining,
		Status:          string(d.Status),
		Converted:       d.Converted,
		StockReserved:   d.StockReserved,
		Lines:           make([]DocumentLineResponse, len(d.Lines)),
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	if d.SourceID != nil {
		resp.SourceID = d.SourceID.String()
	}
	if d.TargetID != nil {
		resp.TargetID = d.TargetID.String()
	}
	for i, l := range d.Lines {
		resp.Lines[i] = DocumentLineResponse{
			ID:           l.ID.String(),
			LineNo:       l.LineNo,
			ProductID:    l.ProductID.String(),
			Designation:  l.Designation,
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPrice,
			Discount:     l.Discount,
			Total:        l.Total,
			TaxAmount:    l.TaxAmount,
			TotalWithTax: l.TotalWithTax,
		}
	}
	return resp
}

// EventResponse represents a history entry.
type EventResponse struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Code      string         `json:"code"`
	Status    string         `json:"status"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// FromEvents converts a document history.
func FromEvents(events []documents.Event) []EventResponse {
	out := make([]EventResponse, len(events))
	for i, e := range events {
		out[i] = EventResponse{
			ID:        e.ID.String(),
			Type:      string(e.Type),
			Code:      e.Code,
			Status:    string(e.Status),
			Payload:   e.Payload,
			CreatedAt: e.CreatedAt,
		}
	}
	return out
}
