// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"docflow/internal/core/apperror"
	"docflow/internal/domain"
)

// --- Envelope ---

// Response is the envelope of every JSON response.
type Response struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Data    any            `json:"data,omitempty"`
	Error   *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// OK wraps data in a success envelope.
func OK(data any) Response {
	return Response{Success: true, Data: data}
}

// Message returns a success envelope without data.
func Message(msg string) Response {
	return Response{Success: true, Message: msg}
}

// Fail wraps an application error.
func Fail(err *apperror.AppError) Response {
	return Response{
		Success: false,
		Message: err.Message,
		Error: &ErrorResponse{
			Code:    err.Code,
			Details: err.Details,
		},
	}
}

// --- Pagination ---

// PaginationRequest contains pagination parameters.
type PaginationRequest struct {
	Search  string `form:"search"`
	OrderBy string `form:"orderBy"`
	Limit   int    `form:"limit" binding:"omitempty,min=1,max=200"`
	Offset  int    `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts the request to a domain list filter.
func (p PaginationRequest) ToFilter() domain.ListFilter {
	f := domain.ListFilter{
		Search:  p.Search,
		OrderBy: p.OrderBy,
		Limit:   p.Limit,
		Offset:  p.Offset,
	}
	f.Normalize()
	return f
}

// --- List Response ---

// ListResponse wraps list results with pagination.
type ListResponse struct {
	Items      any   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// NewListResponse maps a domain list result with fn.
func NewListResponse[T, R any](res domain.ListResult[T], fn func(T) R) ListResponse {
	items := make([]R, len(res.Items))
	for i, item := range res.Items {
		items[i] = fn(item)
	}
	return ListResponse{
		Items:      items,
		TotalCount: res.TotalCount,
		Limit:      res.Limit,
		Offset:     res.Offset,
	}
}
