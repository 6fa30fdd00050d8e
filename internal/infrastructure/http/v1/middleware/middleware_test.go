package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow/internal/core/apperror"
	"docflow/internal/core/idempotency"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memoryStore is an in-memory idempotency.Store.
type memoryStore struct {
	mu      sync.Mutex
	records map[string]*idempotency.Record
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[string]*idempotency.Record)}
}

func (s *memoryStore) Acquire(_ context.Context, key, requestHash string) (*idempotency.Replay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if rec, ok := s.records[key]; ok {
		replay, reclaim, err := idempotency.Check(rec, requestHash, now)
		if err != nil || !reclaim {
			return replay, err
		}
	}
	s.records[key] = &idempotency.Record{
		Key:         key,
		RequestHash: requestHash,
		Status:      idempotency.StatusPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Hour),
	}
	return nil, nil
}

func (s *memoryStore) finish(key string, status idempotency.Status, code int, ct string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return errors.New("unknown key")
	}
	rec.Status, rec.StatusCode, rec.ContentType, rec.Body = status, code, ct, body
	return nil
}

func (s *memoryStore) Complete(_ context.Context, key string, code int, ct string, body []byte) error {
	return s.finish(key, idempotency.StatusSuccess, code, ct, body)
}

func (s *memoryStore) Fail(_ context.Context, key string, code int, ct string, body []byte) error {
	return s.finish(key, idempotency.StatusFailed, code, ct, body)
}

func (s *memoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

func newEngine(store idempotency.Store, register func(r *gin.Engine)) *gin.Engine {
	r := gin.New()
	r.Use(Recovery(), Trace(), ErrorHandler(), Idempotency(store))
	register(r)
	return r
}

func do(r http.Handler, method, path, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestErrorHandler_AppError(t *testing.T) {
	r := newEngine(nil, func(r *gin.Engine) {
		r.GET("/quotes/:id", func(c *gin.Context) {
			_ = c.Error(apperror.NewNotFound("quote", c.Param("id")))
			c.Abort()
		})
	})

	w := do(r, http.MethodGet, "/quotes/42", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	env := decode(t, w)
	assert.False(t, env.Success)
	assert.Equal(t, apperror.CodeNotFound, env.Error.Code)
	assert.NotEmpty(t, env.Message)
}

func TestErrorHandler_UnknownErrorIsHidden(t *testing.T) {
	r := newEngine(nil, func(r *gin.Engine) {
		r.GET("/boom", func(c *gin.Context) {
			_ = c.Error(errors.New("pq: connection refused"))
			c.Abort()
		})
	})

	w := do(r, http.MethodGet, "/boom", "", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	env := decode(t, w)
	assert.Equal(t, apperror.CodeInternal, env.Error.Code)
	assert.Equal(t, "Internal server error", env.Message)
	assert.NotContains(t, w.Body.String(), "connection refused")
	assert.Equal(t, w.Header().Get(HeaderRequestID), env.Error.Details["request_id"])
}

func TestRecovery_WritesEnvelope(t *testing.T) {
	r := newEngine(nil, func(r *gin.Engine) {
		r.GET("/panic", func(c *gin.Context) { panic("nil map") })
	})

	w := do(r, http.MethodGet, "/panic", "", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperror.CodeInternal, decode(t, w).Error.Code)
}

func TestIdempotency_ReplaysSuccess(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	r := newEngine(store, func(r *gin.Engine) {
		r.POST("/notes/:id/payments", func(c *gin.Context) {
			calls++
			body := []byte(`{"success":true,"data":{"amount":"30"}}`)
			CompleteIdempotency(c, http.StatusCreated, contentTypeJSON, body)
			c.Data(http.StatusCreated, contentTypeJSON, body)
		})
	})

	first := do(r, http.MethodPost, "/notes/1/payments", "pay-1", `{"amount":"30"}`)
	second := do(r, http.MethodPost, "/notes/1/payments", "pay-1", `{"amount":"30"}`)

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
}

func TestIdempotency_MismatchedBody(t *testing.T) {
	store := newMemoryStore()
	r := newEngine(store, func(r *gin.Engine) {
		r.POST("/pay", func(c *gin.Context) {
			CompleteIdempotency(c, http.StatusCreated, contentTypeJSON, []byte(`{}`))
			c.Data(http.StatusCreated, contentTypeJSON, []byte(`{}`))
		})
	})

	require.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/pay", "k", `{"amount":"30"}`).Code)

	w := do(r, http.MethodPost, "/pay", "k", `{"amount":"31"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperror.CodeIdempotency, decode(t, w).Error.Code)
}

func TestIdempotency_ClientErrorReplayed(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	r := newEngine(store, func(r *gin.Engine) {
		r.POST("/convert", func(c *gin.Context) {
			calls++
			_ = c.Error(apperror.NewValidation("quote is not accepted"))
			c.Abort()
		})
	})

	first := do(r, http.MethodPost, "/convert", "conv-1", "")
	second := do(r, http.MethodPost, "/convert", "conv-1", "")

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusBadRequest, first.Code)
	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
}

func TestIdempotency_ServerErrorReleasesKey(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	r := newEngine(store, func(r *gin.Engine) {
		r.POST("/convert", func(c *gin.Context) {
			calls++
			_ = c.Error(errors.New("database unavailable"))
			c.Abort()
		})
	})

	do(r, http.MethodPost, "/convert", "conv-1", "")
	w := do(r, http.MethodPost, "/convert", "conv-1", "")

	assert.Equal(t, 2, calls)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestIdempotency_SkippedWithoutKeyOrForReads(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	r := newEngine(store, func(r *gin.Engine) {
		handler := func(c *gin.Context) {
			calls++
			c.Status(http.StatusNoContent)
		}
		r.POST("/pay", handler)
		r.GET("/pay", handler)
	})

	do(r, http.MethodPost, "/pay", "", "{}")
	do(r, http.MethodPost, "/pay", "", "{}")
	do(r, http.MethodGet, "/pay", "k", "")
	do(r, http.MethodGet, "/pay", "k", "")

	assert.Equal(t, 4, calls)
	assert.Empty(t, store.records)
}

func TestRequestHash(t *testing.T) {
	a := RequestHash(http.MethodPost, "/api/v1/invoices/1/payments", []byte(`{"amount":"10"}`))
	b := RequestHash(http.MethodPost, "/api/v1/delivery-notes/1/payments", []byte(`{"amount":"10"}`))
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, RequestHash(http.MethodPost, "/api/v1/invoices/1/payments", []byte(`{"amount":"10"}`)))
	assert.Len(t, a, 64)
}
