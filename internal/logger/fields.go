package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// SOME/IP Message Identity
	// ========================================================================
	KeyServiceID   = "service_id"  // SOME/IP service identifier
	KeyInstanceID  = "instance_id" // SOME/IP instance identifier
	KeyMethodID    = "method_id"   // Method/event identifier
	KeyClientID    = "client_id"   // SOME/IP client identifier
	KeySessionID   = "session_id"  // SOME/IP session identifier
	KeyMessageType = "message_type"
	KeyReturnCode  = "return_code"

	// ========================================================================
	// Endpoint & Connection
	// ========================================================================
	KeyEndpoint  = "endpoint"   // Endpoint address:port
	KeyProtocol  = "protocol"   // tcp, udp
	KeyPeer      = "peer"       // Remote peer address:port
	KeyPeerIP    = "peer_ip"    // Remote peer IP only
	KeyPeerPort  = "peer_port"  // Remote peer port
	KeyConnState     = "conn_state"     // TCP connection state
	KeyUsers         = "users"          // Reference count on an endpoint/connection
	KeySecured       = "secured"        // Whether the endpoint requires (D)TLS
	KeyCorrelationID = "correlation_id" // Per-connection correlation ID for log/trace joins

	// ========================================================================
	// TP (Transport Protocol) Segmentation/Reassembly
	// ========================================================================
	KeySegmentOffset = "segment_offset"
	KeyMoreSegments  = "more_segments"
	KeySegmentLen    = "segment_len"
	KeyReassemblyKey = "reassembly_key"
	KeyReassembled   = "reassembled_len"

	// ========================================================================
	// I/O
	// ========================================================================
	KeyBytesRead    = "bytes_read"
	KeyBytesWritten = "bytes_written"
	KeyBatchSize    = "batch_size"

	// ========================================================================
	// Generic
	// ========================================================================
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyErrorCode  = "error_code"
	KeySource     = "source"
	KeyOperation  = "operation"
	KeyAttempt    = "attempt"
)

func TraceID(id string) slog.Attr { return slog.String(KeyTraceID, id) }

func SpanID(id string) slog.Attr { return slog.String(KeySpanID, id) }

func ServiceID(id uint16) slog.Attr { return slog.Uint64(KeyServiceID, uint64(id)) }

func InstanceID(id uint16) slog.Attr { return slog.Uint64(KeyInstanceID, uint64(id)) }

func MethodID(id uint16) slog.Attr { return slog.Uint64(KeyMethodID, uint64(id)) }

func ClientID(id uint16) slog.Attr { return slog.Uint64(KeyClientID, uint64(id)) }

func SessionID(id uint16) slog.Attr { return slog.Uint64(KeySessionID, uint64(id)) }

func MessageType(t string) slog.Attr { return slog.String(KeyMessageType, t) }

func ReturnCode(code string) slog.Attr { return slog.String(KeyReturnCode, code) }

func Endpoint(addr string) slog.Attr { return slog.String(KeyEndpoint, addr) }

func Protocol(proto string) slog.Attr { return slog.String(KeyProtocol, proto) }

func Peer(addr string) slog.Attr { return slog.String(KeyPeer, addr) }

func PeerIP(ip string) slog.Attr { return slog.String(KeyPeerIP, ip) }

func PeerPort(port int) slog.Attr { return slog.Int(KeyPeerPort, port) }

func ConnState(state string) slog.Attr { return slog.String(KeyConnState, state) }

func Users(n int) slog.Attr { return slog.Int(KeyUsers, n) }

func Secured(b bool) slog.Attr { return slog.Bool(KeySecured, b) }

func CorrelationID(id string) slog.Attr { return slog.String(KeyCorrelationID, id) }

func SegmentOffset(off uint32) slog.Attr { return slog.Uint64(KeySegmentOffset, uint64(off)) }

func MoreSegments(more bool) slog.Attr { return slog.Bool(KeyMoreSegments, more) }

func SegmentLen(n int) slog.Attr { return slog.Int(KeySegmentLen, n) }

func ReassemblyKey(key string) slog.Attr { return slog.String(KeyReassemblyKey, key) }

func Reassembled(n int) slog.Attr { return slog.Int(KeyReassembled, n) }

func BytesRead(n int) slog.Attr { return slog.Int(KeyBytesRead, n) }

func BytesWritten(n int) slog.Attr { return slog.Int(KeyBytesWritten, n) }

func BatchSize(n int) slog.Attr { return slog.Int(KeyBatchSize, n) }

func DurationMs(ms float64) slog.Attr { return slog.Float64(KeyDurationMs, ms) }

func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

func ErrorCode(code int) slog.Attr { return slog.Int(KeyErrorCode, code) }

func Source(src string) slog.Attr { return slog.String(KeySource, src) }

func Operation(op string) slog.Attr { return slog.String(KeyOperation, op) }

func Attempt(n int) slog.Attr { return slog.Int(KeyAttempt, n) }

// Fmt formats a value lazily into a string attr, mirroring the teacher's
// printf-style escape hatch for fields with no dedicated helper.
func Fmt(key, format string, args ...any) slog.Attr {
	return slog.String(key, fmt.Sprintf(format, args...))
}
