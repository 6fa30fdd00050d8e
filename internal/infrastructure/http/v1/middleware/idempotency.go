package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"docflow/internal/core/apperror"
	"docflow/internal/core/idempotency"
	"docflow/pkg/logger"
)

const HeaderIdempotencyKey = "X-Idempotency-Key"
const maxIdempotencyBodyBytes = 1 << 20 // 1 MiB

const (
	ctxIdempotencyKey   = "idempotency_key"
	ctxIdempotencyStore = "idempotency_store"
)

// Idempotency middleware protects against duplicate requests.
// Applies to POST/PUT/PATCH requests carrying X-Idempotency-Key.
func Idempotency(store idempotency.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil {
			c.Next()
			return
		}

		// Only apply to mutating methods
		if c.Request.Method != http.MethodPost &&
			c.Request.Method != http.MethodPut &&
			c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}

		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		c.Request = c.Request.WithContext(logger.ContextWith(c.Request.Context(), "idempotency_key", key))

		limited := io.LimitReader(c.Request.Body, maxIdempotencyBodyBytes+1)
		body, _ := io.ReadAll(limited)
		if len(body) > maxIdempotencyBodyBytes {
			appErr := apperror.NewValidation("request body too large for idempotency")
			appErr.HTTPStatus = http.StatusRequestEntityTooLarge
			_ = c.Error(appErr.WithDetail("max_bytes", maxIdempotencyBodyBytes))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		replay, err := store.Acquire(c.Request.Context(), key, RequestHash(c.Request.Method, c.Request.URL.Path, body))
		if err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				_ = c.Error(appErr)
				c.Abort()
				return
			}
			_ = c.Error(apperror.NewInternal(err).WithDetail("component", "idempotency"))
			c.Abort()
			return
		}

		// Return cached response if exists
		if replay != nil {
			if len(replay.Body) == 0 {
				c.Status(replay.StatusCode)
			} else {
				c.Data(replay.StatusCode, replay.ContentType, replay.Body)
			}
			c.Abort()
			return
		}

		c.Set(ctxIdempotencyKey, key)
		c.Set(ctxIdempotencyStore, store)

		c.Next()
	}
}

// RequestHash fingerprints a request. A key reused for another route or body
// no longer matches.
func RequestHash(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{' '})
	h.Write([]byte(path))
	h.Write([]byte{'\n'})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// IdempotencyFromContext returns the key acquired for the current request.
func IdempotencyFromContext(c *gin.Context) (string, idempotency.Store, bool) {
	key, ok := c.Get(ctxIdempotencyKey)
	if !ok {
		return "", nil, false
	}
	store, ok := c.Get(ctxIdempotencyStore)
	if !ok {
		return "", nil, false
	}
	s, ok := store.(idempotency.Store)
	if !ok || s == nil {
		return "", nil, false
	}
	return key.(string), s, true
}

// CompleteIdempotency stores a successful response for replay (best-effort).
func CompleteIdempotency(c *gin.Context, statusCode int, contentType string, body []byte) {
	if key, store, ok := IdempotencyFromContext(c); ok {
		_ = store.Complete(c.Request.Context(), key, statusCode, contentType, body)
	}
}

// failIdempotency stores client errors for replay and releases the key on
// server errors so that a retry runs again.
func failIdempotency(c *gin.Context, statusCode int, contentType string, body []byte) {
	key, store, ok := IdempotencyFromContext(c)
	if !ok {
		return
	}
	if statusCode >= http.StatusInternalServerError {
		_ = store.Release(c.Request.Context(), key)
		return
	}
	_ = store.Fail(c.Request.Context(), key, statusCode, contentType, body)
}
