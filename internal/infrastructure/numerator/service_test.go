package numerator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corenumerator "docflow/internal/core/numerator"
)

var period = time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

func TestLatestQuery(t *testing.T) {
	sql, args, err := LatestQuery(corenumerator.Config{Prefix: "DN", Family: "delivery_note"}, period).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT code FROM documents WHERE family = $1 ORDER BY created_at DESC, id DESC LIMIT 1", sql)
	assert.Equal(t, []any{"delivery_note"}, args)
}

func TestLatestQuery_YearScoped(t *testing.T) {
	sql, args, err := LatestQuery(corenumerator.Config{Prefix: "INV", Family: "invoice", ScopeYear: true}, period).ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT code FROM documents WHERE family = $1 AND code LIKE $2 ORDER BY created_at DESC, id DESC LIMIT 1",
		sql)
	assert.Equal(t, []any{"invoice", "%-2026-%"}, args)
}

func TestLockKey(t *testing.T) {
	quote := corenumerator.Config{Prefix: "QUO", Family: "quote"}
	sharedQuote := corenumerator.Config{Prefix: "QUO", Family: "delivery_note"}
	dn := corenumerator.Config{Prefix: "DN", Family: "delivery_note"}
	inv := corenumerator.Config{Prefix: "INV", Family: "invoice", ScopeYear: true}

	assert.Equal(t, "numerator:quote", LockKey(quote, period))
	assert.Equal(t, LockKey(dn, period), LockKey(sharedQuote, period))
	assert.Equal(t, "numerator:invoice_2026", LockKey(inv, period))

	counter := inv
	counter.Strategy = corenumerator.StrategyCounter
	assert.Equal(t, "numerator:invoice_2026", LockKey(counter, period))
}

func TestCounterKey_SharedQuoteSequence(t *testing.T) {
	dn := corenumerator.Config{Prefix: "DN", Family: "delivery_note", Strategy: corenumerator.StrategyCounter}
	quote := corenumerator.Config{Prefix: "QUO", Family: "quote", Strategy: corenumerator.StrategyCounter}
	sharedQuote := quote
	sharedQuote.Family = "delivery_note"

	assert.Equal(t, "delivery_note", sharedQuote.Key(period.Year()))
	assert.Equal(t, dn.Key(period.Year()), sharedQuote.Key(period.Year()))
	assert.NotEqual(t, dn.Key(period.Year()), quote.Key(period.Year()))
}
