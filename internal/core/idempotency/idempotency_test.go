package idempotency

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow/internal/core/apperror"
)

func TestCheck(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	base := Record{
		Key:         "k1",
		RequestHash: "h1",
		CreatedAt:   now.Add(-10 * time.Second),
		ExpiresAt:   now.Add(time.Hour),
	}

	t.Run("completed replays", func(t *testing.T) {
		rec := base
		rec.Status = StatusSuccess
		rec.StatusCode = http.StatusCreated
		rec.Body = []byte(`{"success":true}`)

		replay, reclaim, err := Check(&rec, "h1", now)
		require.NoError(t, err)
		assert.False(t, reclaim)
		assert.Equal(t, http.StatusCreated, replay.StatusCode)
		assert.Equal(t, "application/json", replay.ContentType)
		assert.Equal(t, rec.Body, replay.Body)
	})

	t.Run("failed replays", func(t *testing.T) {
		rec := base
		rec.Status = StatusFailed
		rec.StatusCode = http.StatusUnprocessableEntity

		replay, _, err := Check(&rec, "h1", now)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, replay.StatusCode)
	})

	t.Run("in flight conflicts", func(t *testing.T) {
		rec := base
		rec.Status = StatusPending

		_, _, err := Check(&rec, "h1", now)
		assert.True(t, apperror.HasCode(err, apperror.CodeIdempotency))
	})

	t.Run("stale pending is reclaimed", func(t *testing.T) {
		rec := base
		rec.Status = StatusPending
		rec.CreatedAt = now.Add(-2 * StaleAfter)

		replay, reclaim, err := Check(&rec, "h1", now)
		require.NoError(t, err)
		assert.True(t, reclaim)
		assert.Nil(t, replay)
	})

	t.Run("other request mismatches", func(t *testing.T) {
		rec := base
		rec.Status = StatusSuccess

		_, _, err := Check(&rec, "h2", now)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, "Idempotency key mismatch", appErr.Message)
	})

	t.Run("expired is reclaimed even for another request", func(t *testing.T) {
		rec := base
		rec.Status = StatusSuccess
		rec.ExpiresAt = now.Add(-time.Second)

		_, reclaim, err := Check(&rec, "h2", now)
		require.NoError(t, err)
		assert.True(t, reclaim)
	})
}
