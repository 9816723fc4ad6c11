package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for dispatch and transport operations.
// These follow OpenTelemetry semantic conventions where applicable.
const (
	// ========================================================================
	// Peer attributes (protocol-agnostic)
	// ========================================================================
	AttrClientIP   = "client.ip"
	AttrClientAddr = "client.address"
	AttrClientPort = "client.port"

	// ========================================================================
	// Transport attributes (protocol-agnostic)
	// ========================================================================
	AttrProtocol  = "transport.protocol" // tcp, udp
	AttrOperation = "dispatch.operation"

	// ========================================================================
	// SOME/IP header attributes
	// ========================================================================
	AttrServiceID     = "someip.service_id"
	AttrMethodID      = "someip.method_id"
	AttrClientID      = "someip.client_id"
	AttrSessionID     = "someip.session_id"
	AttrInstanceID    = "someip.instance_id"
	AttrMajorVersion  = "someip.major_version"
	AttrMessageType   = "someip.message_type"
	AttrReturnCode    = "someip.return_code"
	AttrPayloadLength = "someip.payload_length"

	// ========================================================================
	// SOME/IP-TP attributes
	// ========================================================================
	AttrTPOffset   = "someip_tp.offset"
	AttrTPMoreFlag = "someip_tp.more_segments"

	// ========================================================================
	// Connection attributes (protocol-agnostic)
	// ========================================================================
	AttrConnState = "conn.state"
)

// Span names for operations.
// Format: <component>.<operation>
const (
	// Root span for a dispatched SOME/IP message
	SpanDispatch = "reactor.dispatch"

	SpanRouterRoute    = "router.route"
	SpanTPReassemble   = "tp.reassemble"
	SpanTPSegment      = "tp.segment"
	SpanConnConnect    = "conn.connect"
	SpanConnHandshake  = "conn.handshake"
	SpanUDPBulkRead    = "udpendpoint.bulk_read"
	SpanEndpointCreate = "endpointmgr.create"
)

// ClientIP returns an attribute for client IP address.
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// ClientAddr returns an attribute for full client address.
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// ServiceID returns an attribute for a SOME/IP service ID.
func ServiceID(id uint16) attribute.KeyValue {
	return attribute.Int64(AttrServiceID, int64(id))
}

// MethodID returns an attribute for a SOME/IP method or event ID.
func MethodID(id uint16) attribute.KeyValue {
	return attribute.Int64(AttrMethodID, int64(id))
}

// ClientIDAttr returns an attribute for a SOME/IP client ID.
func ClientIDAttr(id uint16) attribute.KeyValue {
	return attribute.Int64(AttrClientID, int64(id))
}

// SessionIDAttr returns an attribute for a SOME/IP session ID.
func SessionIDAttr(id uint16) attribute.KeyValue {
	return attribute.Int64(AttrSessionID, int64(id))
}

// InstanceID returns an attribute for a SOME/IP instance ID.
func InstanceID(id uint16) attribute.KeyValue {
	return attribute.Int64(AttrInstanceID, int64(id))
}

// MessageType returns an attribute for a SOME/IP message type byte.
func MessageType(t uint8) attribute.KeyValue {
	return attribute.Int64(AttrMessageType, int64(t))
}

// ReturnCode returns an attribute for a SOME/IP return code.
func ReturnCode(code uint8) attribute.KeyValue {
	return attribute.Int64(AttrReturnCode, int64(code))
}

// PayloadLength returns an attribute for payload byte length.
func PayloadLength(n int) attribute.KeyValue {
	return attribute.Int(AttrPayloadLength, n)
}

// TPOffset returns an attribute for a SOME/IP-TP segment offset.
func TPOffset(offset uint32) attribute.KeyValue {
	return attribute.Int64(AttrTPOffset, int64(offset))
}

// TPMoreFlag returns an attribute for the SOME/IP-TP more-segments flag.
func TPMoreFlag(more bool) attribute.KeyValue {
	return attribute.Bool(AttrTPMoreFlag, more)
}

// ConnState returns an attribute for a connection state name.
func ConnState(state string) attribute.KeyValue {
	return attribute.String(AttrConnState, state)
}

// Protocol returns an attribute for transport protocol name.
func Protocol(name string) attribute.KeyValue {
	return attribute.String(AttrProtocol, name)
}

// Operation returns an attribute for a dispatch operation name.
func Operation(op string) attribute.KeyValue {
	return attribute.String(AttrOperation, op)
}

// StartDispatchSpan starts a span for dispatching one decoded SOME/IP
// message, tagging it with the header fields a trace consumer needs to
// correlate request/response pairs.
func StartDispatchSpan(ctx context.Context, protocol string, serviceID, methodID uint16, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Protocol(protocol),
		ServiceID(serviceID),
		MethodID(methodID),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, SpanDispatch, trace.WithAttributes(allAttrs...))
}

// StartRouterSpan starts a span for a routing-table lookup.
func StartRouterSpan(ctx context.Context, serviceID uint16, majorVersion uint8, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		ServiceID(serviceID),
		attribute.Int64(AttrMajorVersion, int64(majorVersion)),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, SpanRouterRoute, trace.WithAttributes(allAttrs...))
}

// StartTPSpan starts a span for a SOME/IP-TP segmentation or reassembly
// step.
func StartTPSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, name, trace.WithAttributes(attrs...))
}
