// Package middleware provides HTTP middleware components.
package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"docflow/internal/core/apperror"
	"docflow/internal/infrastructure/http/v1/dto"
	"docflow/pkg/logger"
)

// Recovery middleware recovers from panics and returns 500 error.
// Logs stack trace but never exposes internal details to client.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error(c.Request.Context(), "panic recovered",
					"error", err,
					"stack", string(debug.Stack()),
				)

				appErr := apperror.NewInternal(fmt.Errorf("panic: %v", err))
				_ = c.Error(appErr)
				c.Abort()

				if !c.Writer.Written() {
					resp := dto.Fail(appErr)
					resp.Message = "Internal server error"
					resp.Error.Details = map[string]any{"request_id": c.GetString("request_id")}
					writeJSON(c, appErr.HTTPStatus, resp)
				}
			}
		}()
		c.Next()
	}
}
