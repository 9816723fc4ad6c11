// Package reactor is the single goroutine that owns every piece of
// protocol state: connection tables, reassembly state, and the router
// table, per spec §5 "single-threaded cooperative" and §2's Go
// translation of the reactor model. Dedicated reader goroutines (one per
// TCP connection, one per UDP endpoint) and timers post decoded events
// onto a single channel; only the Loop goroutine ever reads from it.
package reactor

import (
	"context"
	"sync"

	"github.com/marmos91/someipd/internal/collab"
	"github.com/marmos91/someipd/internal/conn"
	"github.com/marmos91/someipd/internal/endpointmgr"
	"github.com/marmos91/someipd/internal/logger"
	"github.com/marmos91/someipd/internal/metrics"
	"github.com/marmos91/someipd/internal/router"
	"github.com/marmos91/someipd/internal/udpendpoint"
	"github.com/marmos91/someipd/internal/wire"
)

// sourceKind distinguishes which event channel a reactorEvent came from,
// since conn.Event and udpendpoint.Event are distinct types without a
// common interface (mirroring the teacher's preference for concrete
// per-protocol event structs over a shared polymorphic envelope).
type sourceKind int

const (
	sourceTCP sourceKind = iota
	sourceUDP
)

type reactorEvent struct {
	kind  sourceKind
	tcp   conn.Event
	udp   udpendpoint.Event
	udpEP *udpendpoint.Endpoint
}

// Loop is the single owner of routing and connection state. Every other
// package's goroutines feed it through postTCP/postUDP; nothing outside
// Loop's own goroutine may touch Endpoints, Router, or connection state
// directly once Run has started.
type Loop struct {
	Endpoints *endpointmgr.Manager
	Router    *router.Router

	// Metrics is nil by default (zero overhead); set it to a
	// metrics.NewRecorder() result before calling Run to record observed
	// dispatch activity.
	Metrics metrics.Recorder

	// AuthFilter is nil by default (collab.NullFilter semantics, skipped
	// entirely rather than called). Set it before calling Run to verify
	// every inbound payload's signature per §6 before routing, and sign
	// every outbound reply.
	AuthFilter collab.MessageAuthenticationFilter

	events chan reactorEvent

	mu          sync.Mutex
	connections map[*conn.Connection]struct{}
}

// New constructs a Loop. queueSize bounds the shared event channel; a
// full channel applies back-pressure to reader goroutines, same as a
// bounded mpsc queue would in the original reactor model.
func New(queueSize int) *Loop {
	return &Loop{
		Endpoints:   endpointmgr.New(),
		Router:      router.New(),
		events:      make(chan reactorEvent, queueSize),
		connections: make(map[*conn.Connection]struct{}),
	}
}

// AdoptTCP registers a newly-created connection's event source with the
// loop. The connection must have been constructed with a channel obtained
// from TCPEvents, so its own reader goroutine posts directly onto the
// shared queue instead of a private one.
func (l *Loop) AdoptTCP(c *conn.Connection) {
	l.mu.Lock()
	l.connections[c] = struct{}{}
	count := len(l.connections)
	l.mu.Unlock()

	if l.Metrics != nil {
		l.Metrics.RecordConnectionStateChange("connected")
		l.Metrics.SetActiveConnections(int32(count))
	}
	logger.Debug("reactor: tcp connection adopted", logger.Peer(c.RemoteAddr), logger.CorrelationID(c.CorrelationID))
}

// Connections returns a snapshot of every TCP connection currently owned
// by the loop, for introspection (e.g. internal/controlapi). Safe to call
// from any goroutine.
func (l *Loop) Connections() []*conn.Connection {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*conn.Connection, 0, len(l.connections))
	for c := range l.connections {
		out = append(out, c)
	}
	return out
}

// DisconnectByAddr force-disconnects the TCP connection whose RemoteAddr
// matches addr, for the control API's force-disconnect operation. Reports
// whether a matching connection was found.
func (l *Loop) DisconnectByAddr(addr string) bool {
	l.mu.Lock()
	var target *conn.Connection
	for c := range l.connections {
		if c.RemoteAddr == addr {
			target = c
			break
		}
	}
	l.mu.Unlock()

	if target == nil {
		return false
	}
	target.Disconnect()
	return true
}

// TCPEvents returns a channel suitable for conn.New/conn.Dial's events
// parameter: a thin adapter goroutine relabels conn.Event values onto the
// loop's shared queue. Call once per Loop; share the returned channel
// across every TCP connection the loop owns.
func (l *Loop) TCPEvents() chan conn.Event {
	ch := make(chan conn.Event, 64)
	go func() {
		for ev := range ch {
			l.events <- reactorEvent{kind: sourceTCP, tcp: ev}
		}
	}()
	return ch
}

// UDPEvents returns a channel suitable for udpendpoint.New's events
// parameter, tagging each event with the originating endpoint so handlers
// can reply on the right socket.
func (l *Loop) UDPEvents(ep *udpendpoint.Endpoint) chan udpendpoint.Event {
	ch := make(chan udpendpoint.Event, 64)
	go func() {
		for ev := range ch {
			l.events <- reactorEvent{kind: sourceUDP, udp: ev, udpEP: ep}
		}
	}()
	return ch
}

// PostUDP enqueues a single UDP event tagged with its originating
// endpoint. udpendpoint.New requires its events channel before the
// Endpoint it tags exists, so a bootstrap sequence that builds the
// Endpoint first (to learn its bound address before registering it with
// endpointmgr) cannot use UDPEvents' channel-then-Endpoint ordering; it
// instead reads the raw channel itself and forwards each event here once
// the Endpoint is known.
func (l *Loop) PostUDP(ep *udpendpoint.Endpoint, ev udpendpoint.Event) {
	l.events <- reactorEvent{kind: sourceUDP, udp: ev, udpEP: ep}
}

// Run drains the event channel until ctx is cancelled. This is the only
// goroutine that calls into l.Router and l.Endpoints after startup.
func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-l.events:
			l.dispatch(ev)
		}
	}
}

func (l *Loop) dispatch(ev reactorEvent) {
	switch ev.kind {
	case sourceTCP:
		l.dispatchTCP(ev.tcp)
	case sourceUDP:
		l.dispatchUDP(ev.udp, ev.udpEP)
	}
}

func (l *Loop) dispatchTCP(ev conn.Event) {
	switch ev.Kind {
	case conn.EventMessage:
		if l.Metrics != nil {
			l.Metrics.RecordBytesTransferred("tcp", "inbound", uint64(len(ev.Message.Payload)))
		}
		outcome := l.routeAndReply("tcp", ev.Message.Header, ev.Message.Payload, func(header [16]byte, payload []byte) {
			_ = ev.Conn.Enqueue(append(header[:], payload...))
		})
		l.recordOutcome(ev.Conn, outcome)
	case conn.EventDisconnected:
		l.mu.Lock()
		delete(l.connections, ev.Conn)
		l.mu.Unlock()
		if l.Metrics != nil {
			l.Metrics.RecordConnectionStateChange("disconnected")
			l.Metrics.SetActiveConnections(int32(len(l.connections)))
		}
		logger.Debug("reactor: tcp connection removed", logger.Peer(ev.Conn.RemoteAddr))
	case conn.EventReaderError:
		logger.Debug("reactor: tcp reader error", logger.Peer(ev.Conn.RemoteAddr), logger.Err(ev.Err))
		// The reader has already torn the connection down (a framing
		// error leaves the byte stream unrecoverable), but the rejected
		// message still counts against the error threshold per §4.7.
		if ev.Conn.RecordInvalid() {
			ev.Conn.Disconnect()
		}
	}
}

// recordOutcome updates c's §4.7 error-threshold counters for one routed
// TCP message and disconnects c once the threshold is exceeded.
func (l *Loop) recordOutcome(c *conn.Connection, outcome routeOutcome) {
	switch outcome {
	case routeOutcomeRouted:
		c.RecordValid()
	case routeOutcomeInvalid:
		if c.RecordInvalid() {
			logger.Info("reactor: tcp error threshold exceeded, disconnecting", logger.Peer(c.RemoteAddr))
			c.Disconnect()
		}
	case routeOutcomeDropped:
		// A notification with no subscriber is a normal occurrence, not
		// a protocol violation; it affects neither counter.
	}
}

func (l *Loop) dispatchUDP(ev udpendpoint.Event, ep *udpendpoint.Endpoint) {
	switch ev.Kind {
	case udpendpoint.EventMessage:
		if l.Metrics != nil {
			l.Metrics.RecordBytesTransferred("udp", "inbound", uint64(len(ev.Message.Payload)))
		}
		// UDP has no connection to apply §4.7's TCP-only error threshold
		// to; the outcome is only used for metrics, via routeAndReply
		// itself.
		l.routeAndReply("udp", ev.Message.Header, ev.Message.Payload, func(header [16]byte, payload []byte) {
			_ = ep.Send(ev.Peer, append(header[:], payload...))
		})
	case udpendpoint.EventPeerError:
		logger.Debug("reactor: udp peer error", logger.Peer(ev.Peer.String()), logger.Err(ev.Err))
	}
}

// routeOutcome reports what routeAndReply did with one decoded message, so
// a TCP caller can drive the §4.7 error-threshold counters from it.
type routeOutcome int

const (
	routeOutcomeRouted routeOutcome = iota
	routeOutcomeDropped
	routeOutcomeInvalid
)

// routeAndReply routes one decoded message through the router table and,
// on a routing failure for a method-type message, calls reply with an
// encoded SOME/IP error response header. reply is never called for
// notifications or successfully-routed messages.
func (l *Loop) routeAndReply(protocol string, header wire.Header, payload []byte, reply func([16]byte, []byte)) routeOutcome {
	if l.AuthFilter != nil {
		var verifyErr error
		verified := false
		err := l.AuthFilter.Verify(header.ServiceID, 0, header, payload, func(h wire.Header, p []byte) {
			header, payload = h, p
			verified = true
		})
		if err != nil {
			verifyErr = err
		}
		if verifyErr != nil || !verified {
			logger.Debug("reactor: message authentication failed", "service_id", header.ServiceID, "error", verifyErr)
			return routeOutcomeInvalid
		}
	}

	_, err := l.Router.RouteInbound(header, payload)
	if err == nil {
		if l.Metrics != nil {
			l.Metrics.RecordMessage(header.ServiceID, protocol, "inbound", "routed")
		}
		return routeOutcomeRouted
	}
	if err == router.ErrNotificationDropped {
		if l.Metrics != nil {
			l.Metrics.RecordMessage(header.ServiceID, protocol, "inbound", "dropped")
		}
		return routeOutcomeDropped
	}

	routingErr, ok := err.(*router.RoutingError)
	if !ok {
		return routeOutcomeInvalid
	}
	if l.Metrics != nil {
		l.Metrics.RecordMessage(header.ServiceID, protocol, "inbound", "error")
		l.Metrics.RecordRoutingError(routingErr.ReturnCode)
	}

	errHeader := header
	errHeader.MessageType = errorMessageType(header.MessageType)
	errHeader.ReturnCode = routingErr.ReturnCode
	errHeader.Length = wire.LengthMin

	var buf [16]byte
	if l.AuthFilter != nil {
		_ = l.AuthFilter.Generate(errHeader.ServiceID, 0, errHeader, nil, func(h wire.Header, signedPayload []byte) {
			h.Length = wire.LengthMin + uint32(len(signedPayload))
			h.Encode(buf[:])
			reply(buf, signedPayload)
		})
		return routeOutcomeInvalid
	}
	errHeader.Encode(buf[:])
	reply(buf, nil)
	return routeOutcomeInvalid
}

func errorMessageType(requestType uint8) uint8 {
	const messageTypeError = 0x81
	return messageTypeError | (requestType & wire.MessageTypeTPFlag)
}
