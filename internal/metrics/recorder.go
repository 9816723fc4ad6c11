package metrics

import "time"

// Recorder is the observability surface the reactor and transport layers
// call into. Pass nil (or a non-Prometheus Recorder returned when metrics
// are disabled) for zero overhead, matching the teacher's own
// "nil interface means no-op" metrics convention.
type Recorder interface {
	// RecordMessage records one routed message, successful or not.
	RecordMessage(serviceID uint16, protocol string, direction string, outcome string)

	// RecordRoutingError records a routing failure by its SOME/IP
	// ReturnCode.
	RecordRoutingError(returnCode uint8)

	// RecordLatency records end-to-end dispatch latency for a message.
	RecordLatency(protocol string, d time.Duration)

	// SetActiveConnections updates the current TCP connection count.
	SetActiveConnections(count int32)

	// RecordConnectionStateChange records a TCP connection lifecycle
	// transition (e.g. "connected", "disconnected").
	RecordConnectionStateChange(state string)

	// RecordReassemblyOutcome records one TP reassembly's terminal
	// outcome: "completed", "discarded", or "evicted".
	RecordReassemblyOutcome(outcome string)

	// RecordBytesTransferred records payload bytes sent or received.
	RecordBytesTransferred(protocol string, direction string, bytes uint64)
}
