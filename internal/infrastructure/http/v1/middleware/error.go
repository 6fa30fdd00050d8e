package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"docflow/internal/core/apperror"
	"docflow/internal/infrastructure/http/v1/dto"
	"docflow/pkg/logger"
)

const contentTypeJSON = "application/json; charset=utf-8"

// ErrorHandler middleware transforms errors into consistent JSON responses.
// Hides internal errors from clients while logging full details.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		// If response already written by handler, do not override it.
		if c.Writer.Written() {
			return
		}

		appErr, ok := apperror.AsAppError(err)
		if ok {
			if appErr.Err != nil {
				logger.Error(c.Request.Context(), "request error",
					"code", appErr.Code,
					"cause", appErr.Err,
				)
			}
		} else {
			// Unknown error: log and return generic message
			logger.Error(c.Request.Context(), "unhandled error",
				"error", err,
			)
			appErr = apperror.NewInternal(err)
		}

		resp := dto.Fail(appErr)
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			resp.Message = "Internal server error"
			resp.Error.Details = map[string]any{
				"request_id": c.GetString("request_id"),
			}
		}
		writeJSON(c, appErr.HTTPStatus, resp)
	}
}

func writeJSON(c *gin.Context, status int, resp dto.Response) {
	body, err := json.Marshal(resp)
	if err != nil {
		logger.Error(c.Request.Context(), "encode error response", "error", err)
		status = http.StatusInternalServerError
		body = []byte(`{"success":false,"message":"Internal server error"}`)
	}

	// Mark idempotency as failed with the exact response we return (best-effort).
	failIdempotency(c, status, contentTypeJSON, body)

	c.Data(status, contentTypeJSON, body)
}
