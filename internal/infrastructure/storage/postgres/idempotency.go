package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"

	"docflow/internal/core/idempotency"
)

// IdempotencyStore keeps idempotency keys in the idempotency_keys table.
// Used when no Redis is configured. Statements run outside business transactions.
type IdempotencyStore struct {
	txManager *TxManager
	ttl       time.Duration
	now       func() time.Time
}

var _ idempotency.Store = (*IdempotencyStore)(nil)

// NewIdempotencyStore creates a new idempotency store.
func NewIdempotencyStore(txManager *TxManager, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = idempotency.DefaultTTL
	}
	return &IdempotencyStore{
		txManager: txManager,
		ttl:       ttl,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Acquire implements idempotency.Store.
func (s *IdempotencyStore) Acquire(ctx context.Context, key, requestHash string) (*idempotency.Replay, error) {
	now := s.now()
	q := s.txManager.GetQuerier(ctx)

	tag, err := q.Exec(ctx, `
		INSERT INTO idempotency_keys (key, request_hash, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO NOTHING
	`, key, requestHash, idempotency.StatusPending, now, now.Add(s.ttl))
	if err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil, nil
	}

	var rec idempotency.Record
	err = pgxscan.Get(ctx, q, &rec, `
		SELECT key, request_hash, status, http_status, content_type, response, created_at, expires_at
		FROM idempotency_keys
		WHERE key = $1
	`, key)
	if err != nil {
		if pgxscan.NotFound(err) {
			// Released between the two statements; let the caller retry.
			return nil, fmt.Errorf("idempotency key %s vanished", key)
		}
		return nil, fmt.Errorf("read idempotency key: %w", err)
	}

	replay, reclaim, err := idempotency.Check(&rec, requestHash, now)
	if err != nil || replay != nil {
		return replay, err
	}
	if !reclaim {
		return nil, nil
	}

	// Reclaim only if nobody else did since we read the row.
	tag, err = q.Exec(ctx, `
		UPDATE idempotency_keys
		SET request_hash = $1, status = $2, http_status = 0, content_type = '',
		    response = NULL, created_at = $3, expires_at = $4
		WHERE key = $5 AND created_at = $6
	`, requestHash, idempotency.StatusPending, now, now.Add(s.ttl), key, rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("reclaim idempotency key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("idempotency key %s reclaimed concurrently", key)
	}
	return nil, nil
}

// Complete implements idempotency.Store.
func (s *IdempotencyStore) Complete(ctx context.Context, key string, statusCode int, contentType string, body []byte) error {
	return s.finish(ctx, key, idempotency.StatusSuccess, statusCode, contentType, body)
}

// Fail implements idempotency.Store.
func (s *IdempotencyStore) Fail(ctx context.Context, key string, statusCode int, contentType string, body []byte) error {
	return s.finish(ctx, key, idempotency.StatusFailed, statusCode, contentType, body)
}

// Release implements idempotency.Store.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if _, err := s.txManager.GetQuerier(ctx).Exec(ctx, `DELETE FROM idempotency_keys WHERE key = $1`, key); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) finish(ctx context.Context, key string, status idempotency.Status, statusCode int, contentType string, body []byte) error {
	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		UPDATE idempotency_keys
		SET status = $1, http_status = $2, content_type = $3, response = $4
		WHERE key = $5
	`, status, statusCode, contentType, body, key)
	if err != nil {
		return fmt.Errorf("finish idempotency key: %w", err)
	}
	return nil
}

// CleanupExpired removes expired idempotency records.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	tag, err := s.txManager.GetQuerier(ctx).Exec(ctx,
		`DELETE FROM idempotency_keys WHERE expires_at < $1`, s.now())
	if err != nil {
		return 0, fmt.Errorf("cleanup idempotency keys: %w", err)
	}
	return tag.RowsAffected(), nil
}
