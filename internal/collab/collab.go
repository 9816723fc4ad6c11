// Package collab defines the narrow interfaces the core transport and
// dispatch components are written against, per spec §6
// "Collaborator interfaces consumed". The daemon's outer layers
// (internal/config, a service discovery component, a security policy
// engine) implement these; the core never imports those layers directly,
// matching the teacher's pattern of depending on interfaces declared
// alongside the consumer (e.g. pkg/adapter.MetricsRecorder) rather than on
// concrete provider packages.
package collab

import (
	"time"

	"github.com/marmos91/someipd/internal/tp"
	"github.com/marmos91/someipd/internal/wire"
)

// EndpointSpec is one configured local endpoint: address, port, protocol,
// MTU, and an optional link to a secure-connection (TLS/DTLS) profile.
type EndpointSpec struct {
	Address       string
	Port          int
	Protocol      string // "tcp" or "udp"
	MTU           int
	SecureName    string // non-empty names a TLS/DTLS provider profile
	SocketOptions SocketOptions
}

// SocketOptions is the per-endpoint socket tuning of §6: IP QoS/DSCP
// priority, TCP keep-alive, SO_LINGER, and Nagle. Each field's zero value
// means "leave the platform default alone" except Nagle: sockopt.Apply
// always sets TCP_NODELAY to DisableNagle on a TCP connection, so the zero
// value (false) turns TCP_NODELAY off and leaves Nagle enabled.
type SocketOptions struct {
	// DSCP is the IP QoS/DSCP priority, 0-63 (0 leaves IP_TOS untouched).
	DSCP int

	KeepAliveEnabled  bool
	KeepAliveIdle     time.Duration
	KeepAliveInterval time.Duration
	KeepAliveCount    int

	// LingerSeconds configures SO_LINGER: 0 disables it (the platform
	// default), a negative value requests an abortive close (RST instead
	// of a graceful FIN), a positive value blocks Close for that long
	// flushing unsent data.
	LingerSeconds int

	// DisableNagle enables TCP_NODELAY. internal/config does not default
	// it, so it is false unless an endpoint sets it explicitly.
	DisableNagle bool
}

// ErrorThresholdParams mirrors conn.ErrorThreshold, kept as its own type
// here so internal/collab has no dependency on internal/conn.
type ErrorThresholdParams struct {
	InvalidCountLimit int
	ValidRunToReset   int
}

// BulkReadParams mirrors udpendpoint.BulkReadPolicy for the same reason.
type BulkReadParams struct {
	BulkReadCount          int
	MinDatagramsToContinue int
	MaxConsecutiveCalls    int
	ReceivePeriod          time.Duration
}

// ConfigurationProvider returns the service/instance tables, endpoint
// tables, TP parameters, and I/O policy parameters the daemon runs with.
type ConfigurationProvider interface {
	Endpoints() []EndpointSpec
	TPParams(serviceID, methodOrEventID uint16) tp.Params
	BulkReadParams() BulkReadParams
	ErrorThreshold() ErrorThresholdParams
}

// ForwardFunc delivers a verified/generated message onward.
type ForwardFunc func(header wire.Header, payload []byte)

// MessageAuthenticationFilter implements §6's verify/generate contract,
// exposed per protocol variant (PDU or SOME/IP). A null implementation
// (NullFilter) passes every message through unchanged.
type MessageAuthenticationFilter interface {
	Verify(serviceID, instanceID uint16, header wire.Header, payload []byte, forward ForwardFunc) error
	Generate(serviceID, instanceID uint16, header wire.Header, payload []byte, send ForwardFunc) error
}

// NullFilter is the pass-through MessageAuthenticationFilter of §6.
type NullFilter struct{}

func (NullFilter) Verify(_, _ uint16, header wire.Header, payload []byte, forward ForwardFunc) error {
	forward(header, payload)
	return nil
}

func (NullFilter) Generate(_, _ uint16, header wire.Header, payload []byte, send ForwardFunc) error {
	send(header, payload)
	return nil
}

// TlsProvider is the opaque (D)TLS record-layer provider of §4.10.
type TlsProvider interface {
	SubmitCiphertext(data []byte)
	EmitCiphertextVia(fn func([]byte))
	SubmitPlaintext(data []byte)
	EmitPlaintextVia(fn func([]byte))
	OnConnected(fn func())
	OnDisconnected(fn func(err error))
}

// LocalApplicationRegistry registers/deregisters provided and required
// instances per local application and routes delivered messages out via
// an IPC sink, per §6.
type LocalApplicationRegistry interface {
	RegisterProvided(appID string, serviceID uint16, majorVersion uint8, instanceID uint16) error
	RegisterRequired(appID string, serviceID uint16, instanceID uint16) error
	Deregister(appID string, serviceID uint16) error
	Deliver(appID string, header wire.Header, payload []byte) error
}

// Reactor is the fd + timer registration contract of §6. internal/reactor
// provides the concrete single-goroutine implementation; this interface
// lets other packages (tests, alternative event loops) stand in for it.
type Reactor interface {
	EnableRead(fd int)
	DisableRead(fd int)
	EnableWrite(fd int)
	DisableWrite(fd int)
	Deregister(fd int)
	AfterFunc(d time.Duration, fn func()) (cancel func())
}
