package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "someipd", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Enabled = false

	shutdown, err := Init(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	// Should be able to call shutdown without error
	err = shutdown(ctx)
	assert.NoError(t, err)

	// Should not be enabled
	assert.False(t, IsEnabled())
}

func TestTracerReturnsNoOp(t *testing.T) {
	// Reset state
	tracer = nil
	enabled = false

	// Without initialization, should return no-op tracer
	tr := Tracer()
	require.NotNil(t, tr)
}

func TestStartSpan(t *testing.T) {
	ctx := context.Background()

	// Even without initialization, StartSpan should work (no-op)
	newCtx, span := StartSpan(ctx, "test.operation")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)

	// Should be able to end the span
	span.End()
}

func TestSpanFromContext(t *testing.T) {
	ctx := context.Background()

	// Should return a span even without active span
	span := SpanFromContext(ctx)
	require.NotNil(t, span)
}

func TestAddEvent(t *testing.T) {
	ctx := context.Background()

	// Should not panic with no active span
	require.NotPanics(t, func() {
		AddEvent(ctx, "test.event")
	})
}

func TestRecordError(t *testing.T) {
	ctx := context.Background()

	// Should not panic with nil error
	require.NotPanics(t, func() {
		RecordError(ctx, nil)
	})

	// Should not panic with error
	require.NotPanics(t, func() {
		RecordError(ctx, errors.New("test error"))
	})
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Ok, "success")
	})

	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Error, "failed")
	})
}

func TestSetAttributes(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetAttributes(ctx, ClientIP("192.168.1.1"))
	})
}

func TestTraceID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	traceID := TraceID(ctx)
	assert.Equal(t, "", traceID)
}

func TestSpanID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	spanID := SpanID(ctx)
	assert.Equal(t, "", spanID)
}

func TestAttributeHelpers(t *testing.T) {
	t.Run("ClientIP", func(t *testing.T) {
		attr := ClientIP("192.168.1.100")
		assert.Equal(t, AttrClientIP, string(attr.Key))
		assert.Equal(t, "192.168.1.100", attr.Value.AsString())
	})

	t.Run("ClientAddr", func(t *testing.T) {
		attr := ClientAddr("192.168.1.100:12345")
		assert.Equal(t, AttrClientAddr, string(attr.Key))
		assert.Equal(t, "192.168.1.100:12345", attr.Value.AsString())
	})

	t.Run("ServiceID", func(t *testing.T) {
		attr := ServiceID(0x1234)
		assert.Equal(t, AttrServiceID, string(attr.Key))
		assert.Equal(t, int64(0x1234), attr.Value.AsInt64())
	})

	t.Run("MethodID", func(t *testing.T) {
		attr := MethodID(0x0421)
		assert.Equal(t, AttrMethodID, string(attr.Key))
		assert.Equal(t, int64(0x0421), attr.Value.AsInt64())
	})

	t.Run("ClientIDAttr", func(t *testing.T) {
		attr := ClientIDAttr(0x0001)
		assert.Equal(t, AttrClientID, string(attr.Key))
		assert.Equal(t, int64(0x0001), attr.Value.AsInt64())
	})

	t.Run("SessionIDAttr", func(t *testing.T) {
		attr := SessionIDAttr(0x0007)
		assert.Equal(t, AttrSessionID, string(attr.Key))
		assert.Equal(t, int64(0x0007), attr.Value.AsInt64())
	})

	t.Run("InstanceID", func(t *testing.T) {
		attr := InstanceID(0x0001)
		assert.Equal(t, AttrInstanceID, string(attr.Key))
		assert.Equal(t, int64(0x0001), attr.Value.AsInt64())
	})

	t.Run("MessageType", func(t *testing.T) {
		attr := MessageType(0x02)
		assert.Equal(t, AttrMessageType, string(attr.Key))
		assert.Equal(t, int64(0x02), attr.Value.AsInt64())
	})

	t.Run("ReturnCode", func(t *testing.T) {
		attr := ReturnCode(0x00)
		assert.Equal(t, AttrReturnCode, string(attr.Key))
		assert.Equal(t, int64(0), attr.Value.AsInt64())
	})

	t.Run("PayloadLength", func(t *testing.T) {
		attr := PayloadLength(1024)
		assert.Equal(t, AttrPayloadLength, string(attr.Key))
		assert.Equal(t, int64(1024), attr.Value.AsInt64())
	})

	t.Run("TPOffset", func(t *testing.T) {
		attr := TPOffset(1392)
		assert.Equal(t, AttrTPOffset, string(attr.Key))
		assert.Equal(t, int64(1392), attr.Value.AsInt64())
	})

	t.Run("TPMoreFlag", func(t *testing.T) {
		attr := TPMoreFlag(true)
		assert.Equal(t, AttrTPMoreFlag, string(attr.Key))
		assert.True(t, attr.Value.AsBool())
	})

	t.Run("ConnState", func(t *testing.T) {
		attr := ConnState("connected")
		assert.Equal(t, AttrConnState, string(attr.Key))
		assert.Equal(t, "connected", attr.Value.AsString())
	})

	t.Run("Protocol", func(t *testing.T) {
		attr := Protocol("udp")
		assert.Equal(t, AttrProtocol, string(attr.Key))
		assert.Equal(t, "udp", attr.Value.AsString())
	})

	t.Run("Operation", func(t *testing.T) {
		attr := Operation("route")
		assert.Equal(t, AttrOperation, string(attr.Key))
		assert.Equal(t, "route", attr.Value.AsString())
	})
}

func TestStartDispatchSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartDispatchSpan(ctx, "tcp", 0x1234, 0x0421)
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With additional attributes
	newCtx2, span2 := StartDispatchSpan(ctx, "udp", 0x1234, 0x8001, PayloadLength(64))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartRouterSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartRouterSpan(ctx, 0x1234, 0x01)
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With additional attributes
	newCtx2, span2 := StartRouterSpan(ctx, 0x1234, 0x01, InstanceID(0x0001))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartTPSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartTPSpan(ctx, SpanTPReassemble)
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With additional attributes
	newCtx2, span2 := StartTPSpan(ctx, SpanTPSegment, TPOffset(0), TPMoreFlag(true))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}
