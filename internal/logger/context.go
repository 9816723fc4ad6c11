package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds connection/message-scoped logging context.
type LogContext struct {
	TraceID   string // OpenTelemetry trace ID
	SpanID    string // OpenTelemetry span ID
	Endpoint  string // local endpoint address:port
	Peer      string // remote peer address:port
	ServiceID uint16
	ClientID  uint16
	SessionID uint16
	StartTime time.Time // for duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext scoped to a peer address.
func NewLogContext(peer string) *LogContext {
	return &LogContext{
		Peer:      peer,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	clone := *lc
	return &clone
}

// WithEndpoint returns a copy with the local endpoint set
func (lc *LogContext) WithEndpoint(endpoint string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Endpoint = endpoint
	}
	return clone
}

// WithMessage returns a copy with SOME/IP message identity set
func (lc *LogContext) WithMessage(serviceID, clientID, sessionID uint16) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.ServiceID = serviceID
		clone.ClientID = clientID
		clone.SessionID = sessionID
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
