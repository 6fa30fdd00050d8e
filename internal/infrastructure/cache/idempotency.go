package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"docflow/internal/core/apperror"
	"docflow/internal/core/idempotency"
)

const idempotencyPrefix = "docflow:idem:"

// IdempotencyStore keeps idempotency keys in Redis, one JSON value per key
// expiring after the configured TTL.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

var _ idempotency.Store = (*IdempotencyStore)(nil)

// NewIdempotencyStore creates a new Redis idempotency store.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = idempotency.DefaultTTL
	}
	return &IdempotencyStore{
		client: client,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func redisKey(key string) string {
	return idempotencyPrefix + key
}

// Acquire implements idempotency.Store.
func (s *IdempotencyStore) Acquire(ctx context.Context, key, requestHash string) (*idempotency.Replay, error) {
	now := s.now()
	pending, err := s.pending(key, requestHash, now)
	if err != nil {
		return nil, err
	}

	ok, err := s.client.SetNX(ctx, redisKey(key), pending, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}
	if ok {
		return nil, nil
	}

	var replay *idempotency.Replay
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, redisKey(key)).Bytes()
		if errors.Is(err, redis.Nil) {
			// Expired between SETNX and GET.
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, redisKey(key), pending, s.ttl)
				return nil
			})
			return err
		}
		if err != nil {
			return err
		}

		var rec idempotency.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("decode idempotency record: %w", err)
		}

		r, reclaim, err := idempotency.Check(&rec, requestHash, now)
		if err != nil || !reclaim {
			replay = r
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, redisKey(key), pending, s.ttl)
			return nil
		})
		return err
	}, redisKey(key))

	if errors.Is(err, redis.TxFailedErr) {
		return nil, fmt.Errorf("idempotency key %s reclaimed concurrently", key)
	}
	if err != nil {
		if apperror.IsAppError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("check idempotency key: %w", err)
	}
	return replay, nil
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
	if err := s.client.Del(ctx, redisKey(key)).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) finish(ctx context.Context, key string, status idempotency.Status, statusCode int, contentType string, body []byte) error {
	raw, err := s.client.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		return fmt.Errorf("read idempotency key: %w", err)
	}

	var rec idempotency.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return fmt.Errorf("decode idempotency record: %w", err)
	}
	rec.Status = status
	rec.StatusCode = statusCode
	rec.ContentType = contentType
	rec.Body = body

	out, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode idempotency record: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(key), out, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("finish idempotency key: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) pending(key, requestHash string, now time.Time) ([]byte, error) {
	b, err := json.Marshal(idempotency.Record{
		Key:         key,
		RequestHash: requestHash,
		Status:      idempotency.StatusPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	})
	if err != nil {
		return nil, fmt.Errorf("encode idempotency record: %w", err)
	}
	return b, nil
}
