package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"docflow/internal/core/apperror"
	"docflow/internal/core/id"
	"docflow/internal/infrastructure/http/v1/dto"
	"docflow/internal/infrastructure/http/v1/middleware"
)

const contentTypeJSON = "application/json; charset=utf-8"

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON binds and validates JSON request body.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// BindOptionalJSON binds the body when one is sent. An empty body keeps obj unchanged.
func (h *BaseHandler) BindOptionalJSON(c *gin.Context, obj any) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	return h.BindJSON(c, obj)
}

// BindQuery binds and validates query parameters.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid query parameters").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// ParseID parses the :id path parameter.
func (h *BaseHandler) ParseID(c *gin.Context) (id.ID, bool) {
	v, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format").WithDetail("field", "id"))
		return id.Nil(), false
	}
	return v, true
}

// Error processes error and sends appropriate response.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	h.HandleError(c, err)
}

// HandleError registers error on Gin context and aborts request.
// Actual JSON response is produced by middleware.ErrorHandler (single source of truth).
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// Respond writes the envelope and stores it for idempotent replay.
func (h *BaseHandler) Respond(c *gin.Context, statusCode int, resp dto.Response) {
	body, err := json.Marshal(resp)
	if err != nil {
		h.Error(c, apperror.NewInternal(err))
		return
	}
	middleware.CompleteIdempotency(c, statusCode, contentTypeJSON, body)
	c.Data(statusCode, contentTypeJSON, body)
}

// Created sends 201 response with data.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	h.Respond(c, http.StatusCreated, dto.OK(data))
}

// OK sends 200 response with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	h.Respond(c, http.StatusOK, dto.OK(data))
}

// NoContent sends 204 response.
func (h *BaseHandler) NoContent(c *gin.Context) {
	// 204 must replay as 204 with empty body.
	middleware.CompleteIdempotency(c, http.StatusNoContent, "", nil)
	c.Status(http.StatusNoContent)
}

// Success sends success response without data.
func (h *BaseHandler) Success(c *gin.Context, message string) {
	h.Respond(c, http.StatusOK, dto.Message(message))
}
