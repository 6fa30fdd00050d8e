// Package idempotency defines the contract of idempotency key stores.
// Implementations live in the infrastructure layer (Redis, PostgreSQL).
package idempotency

import (
	"context"
	"net/http"
	"time"

	"docflow/internal/core/apperror"
)

// Status represents the state of an idempotent operation.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// DefaultTTL is how long a completed key replays its response.
const DefaultTTL = 24 * time.Hour

// StaleAfter is the age after which a pending key is considered abandoned
// (crashed request) and may be reclaimed.
const StaleAfter = time.Minute

// Replay is the cached HTTP response of a completed operation.
type Replay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Record is the stored state of a key.
type Record struct {
	Key         string    `json:"key" db:"key"`
	RequestHash string    `json:"requestHash" db:"request_hash"`
	Status      Status    `json:"status" db:"status"`
	StatusCode  int       `json:"statusCode,omitempty" db:"http_status"`
	ContentType string    `json:"contentType,omitempty" db:"content_type"`
	Body        []byte    `json:"body,omitempty" db:"response"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	ExpiresAt   time.Time `json:"expiresAt" db:"expires_at"`
}

// Store manages idempotency keys.
type Store interface {
	// Acquire claims key for the request identified by requestHash.
	// Returns:
	//   - (nil, nil) if the key was acquired
	//   - (replay, nil) if the operation already completed
	//   - (nil, error) if the key is in flight or was used for another request
	Acquire(ctx context.Context, key, requestHash string) (*Replay, error)

	// Complete stores the successful response of key.
	Complete(ctx context.Context, key string, statusCode int, contentType string, body []byte) error

	// Fail stores the error response of key. It replays like a success.
	Fail(ctx context.Context, key string, statusCode int, contentType string, body []byte) error

	// Release forgets key so that the request can be retried.
	Release(ctx context.Context, key string) error
}

// Check decides the outcome of Acquire when a record already exists for the key.
// reclaim is true when the caller may take the key over (expired or stale pending).
func Check(rec *Record, requestHash string, now time.Time) (replay *Replay, reclaim bool, err error) {
	if !rec.ExpiresAt.IsZero() && now.After(rec.ExpiresAt) {
		return nil, true, nil
	}

	if rec.RequestHash != requestHash {
		return nil, false, apperror.NewIdempotencyMismatch(rec.Key).
			WithDetail("stored_request_hash", rec.RequestHash).
			WithDetail("request_hash", requestHash)
	}

	switch rec.Status {
	case StatusSuccess, StatusFailed:
		return rec.Replay(), false, nil
	case StatusPending:
		if now.Sub(rec.CreatedAt) > StaleAfter {
			return nil, true, nil
		}
		return nil, false, apperror.NewIdempotencyConflict(rec.Key)
	}
	return nil, true, nil
}

// Replay renders the stored response, defaulting to a JSON 200.
func (r *Record) Replay() *Replay {
	status := r.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	ct := r.ContentType
	if ct == "" {
		ct = "application/json"
	}
	return &Replay{StatusCode: status, ContentType: ct, Body: r.Body}
}
