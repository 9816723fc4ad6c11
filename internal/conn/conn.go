// Package conn implements the per-peer TCP connection state machine: the
// Idle/Connecting/Handshaking/Connected/Disconnected lifecycle, the
// malformed-message error threshold, and reference-counted sharing.
//
// Like the teacher's BaseAdapter, a Connection owns its own goroutines (one
// blocking reader) and reports events back to its owner — here the reactor
// loop — over a channel instead of invoking owner callbacks directly, so
// the reactor remains the only goroutine that ever mutates shared protocol
// state.
package conn

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/someipd/internal/logger"
	"github.com/marmos91/someipd/internal/streamio"
)

// State is one of the TCP connection lifecycle states of §4.7.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateHandshaking
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Role distinguishes who created the socket; active and passive connections
// share identical runtime behavior otherwise (§9 design notes).
type Role int

const (
	RoleActive Role = iota
	RolePassive
)

func (r Role) String() string {
	if r == RolePassive {
		return "passive"
	}
	return "active"
}

// ErrorThreshold configures the malformed-message disconnect mechanism of
// §4.7. I == 0 disables it.
type ErrorThreshold struct {
	I int // invalid_count at which the connection is torn down
	V int // consecutive valid messages required to reset invalid_count
}

// EventKind identifies what happened to a Connection, posted to the
// reactor's event channel.
type EventKind int

const (
	EventConnected EventKind = iota
	EventDisconnected
	EventMessage
	EventReaderError
)

// Event is one Connection lifecycle or data event.
type Event struct {
	Kind    EventKind
	Conn    *Connection
	Message streamio.Message
	Err     error
}

// Connection is a single TCP peer connection. All exported mutation happens
// on the owning reactor goroutine; the only field safe to touch from other
// goroutines is the reader's send on events, and Acquire/Release which are
// atomic.
type Connection struct {
	LocalAddr  string
	RemoteAddr string
	Role       Role

	// CorrelationID stamps this connection for log/trace correlation, set
	// once at acceptance and never reused across reconnects.
	CorrelationID string

	state atomic.Int32
	users atomic.Int64

	netConn net.Conn
	reader  *streamio.Reader
	writer  *streamio.Writer

	threshold    ErrorThreshold
	invalidCount int
	validRun     int

	events chan Event

	closeOnce sync.Once
}

// New wraps an already-established net.Conn (either from Dial or Accept)
// as a Connected connection and starts its reader goroutine. events is the
// reactor's shared event channel; every Connection created by the same
// endpoint manager shares one channel so the reactor stays the single
// consumer.
func New(netConn net.Conn, role Role, threshold ErrorThreshold, maxPayloadSize int, events chan Event) *Connection {
	c := &Connection{
		LocalAddr:     netConn.LocalAddr().String(),
		RemoteAddr:    netConn.RemoteAddr().String(),
		Role:          role,
		CorrelationID: uuid.NewString(),
		netConn:       netConn,
		reader:        streamio.NewReader(maxPayloadSize),
		threshold:     threshold,
		events:        events,
	}
	c.state.Store(int32(StateConnected))
	c.writer = streamio.NewWriter(netConn, 0, 0, c.onWriteError)

	go c.readLoop()
	return c
}

// State returns the connection's current state.
func (c *Connection) State() State {
	return State(c.state.Load())
}

// Users returns the current reference count.
func (c *Connection) Users() int64 {
	return c.users.Load()
}

// Acquire increments the reference count. Callers holding a handle must
// call Release exactly once when done.
func (c *Connection) Acquire() {
	c.users.Add(1)
}

// Release decrements the reference count. The caller (endpoint manager)
// is responsible for tearing down the connection once Users reaches zero
// and State is Disconnected.
func (c *Connection) Release() {
	c.users.Add(-1)
}

// Enqueue serializes and submits a message for transmission, preserving
// per-connection FIFO send ordering (§5).
func (c *Connection) Enqueue(serialized []byte) streamio.EnqueueResult {
	return c.writer.Enqueue(serialized)
}

// QueuedBytes reports outbound back-pressure.
func (c *Connection) QueuedBytes() int {
	return c.writer.QueuedBytes()
}

// readLoop is the connection's dedicated blocking-read goroutine. It never
// touches shared protocol state directly — every decoded message or error
// is handed to the reactor over c.events.
func (c *Connection) readLoop() {
	buf := make([]byte, 64*1024)
	for {
		n, err := c.netConn.Read(buf)
		if n > 0 {
			messages, _, feedErr := c.reader.Feed(buf[:n])
			for _, m := range messages {
				c.events <- Event{Kind: EventMessage, Conn: c, Message: m}
			}
			if feedErr != nil {
				c.events <- Event{Kind: EventReaderError, Conn: c, Err: feedErr}
				c.disconnect(feedErr)
				return
			}
		}
		if err != nil {
			c.disconnect(err)
			return
		}
	}
}

func (c *Connection) onWriteError(err error) {
	c.disconnect(err)
}

// disconnect transitions to Disconnected exactly once, closes the socket,
// and notifies the reactor. Per §8 property 5, no further writes occur
// after this point and the writer's queue is drained and dropped.
func (c *Connection) disconnect(err error) {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateDisconnected))
		_ = c.netConn.Close()
		c.writer.Close()
		logger.Debug("tcp connection disconnected", logger.Peer(c.RemoteAddr), logger.Err(err))
		c.events <- Event{Kind: EventDisconnected, Conn: c, Err: err}
	})
}

// Disconnect tears down the connection from the reactor side (e.g. on
// explicit Disconnect() request or interface Down).
func (c *Connection) Disconnect() {
	c.disconnect(nil)
}

// RecordValid registers an accepted message against the error threshold,
// per §4.7: a run of V consecutive valid messages resets invalid_count.
func (c *Connection) RecordValid() {
	if c.threshold.I == 0 {
		return
	}
	c.validRun++
	if c.validRun >= c.threshold.V {
		c.invalidCount = 0
		c.validRun = 0
	}
}

// RecordInvalid registers a rejected message against the error threshold
// and reports whether the threshold has now been exceeded.
func (c *Connection) RecordInvalid() (thresholdExceeded bool) {
	if c.threshold.I == 0 {
		return false
	}
	c.invalidCount++
	c.validRun = 0
	return c.invalidCount >= c.threshold.I
}

// ErrNotConnected is returned by operations that require State == Connected.
var ErrNotConnected = errors.New("conn: not connected")

// Dial actively connects to addr and returns a Connected connection once
// the TCP handshake completes. timeout <= 0 means no dial timeout.
func Dial(ctx context.Context, addr string, timeout time.Duration, threshold ErrorThreshold, maxPayloadSize int, events chan Event) (*Connection, error) {
	dialer := net.Dialer{Timeout: timeout}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if tcp, ok := netConn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}
	return New(netConn, RoleActive, threshold, maxPayloadSize, events), nil
}
