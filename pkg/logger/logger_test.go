package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	appctx "docflow/internal/core/context"
)

func TestInfo_AddsTraceFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := &Logger{zap.New(core).Sugar()}

	ctx := appctx.WithTrace(context.Background(), &appctx.TraceContext{
		TraceID:   "trace-1",
		RequestID: "req-1",
	})
	ctx = WithLogger(ctx, l)

	Info(ctx, "delivery note created", "code", "DN-0001")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "delivery note created", entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, "trace-1", fields["trace_id"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "DN-0001", fields["code"])
}

func TestFromContext_FallsBackToDefault(t *testing.T) {
	l := FromContext(context.Background())
	assert.NotNil(t, l)
}

func TestWithComponent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := (&Logger{zap.New(core).Sugar()}).WithComponent("stock")

	l.Debugw("released", "qty", 3)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "stock", logs.All()[0].ContextMap()["component"])
}

func TestContextWith_Accumulates(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := WithLogger(context.Background(), &Logger{zap.New(core).Sugar()})

	ctx = ContextWith(ctx, "idempotency_key", "pay-1")
	ctx = ContextWith(ctx, "family", "invoice")
	Info(ctx, "payment recorded")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "pay-1", fields["idempotency_key"])
	assert.Equal(t, "invoice", fields["family"])
}

func TestContextWith_DoesNotLeakToParent(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	parent := WithLogger(context.Background(), &Logger{zap.New(core).Sugar()})
	parent = ContextWith(parent, "a", 1)

	_ = ContextWith(parent, "b", 2)
	Info(parent, "parent")

	fields := logs.All()[0].ContextMap()
	assert.Contains(t, fields, "a")
	assert.NotContains(t, fields, "b")
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}
