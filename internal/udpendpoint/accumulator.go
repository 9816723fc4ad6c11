package udpendpoint

import (
	"net"
	"sync"
	"time"
)

// flushDelay bounds how long a partially-filled accumulation buffer can sit
// before being flushed even though the threshold was never reached, so a
// single outbound message is never held back indefinitely waiting for a
// peer that the coalescing threshold was sized for.
const flushDelay = 2 * time.Millisecond

// OutboundAccumulator coalesces small outbound datagrams to the same peer
// into one, per §4.8 "Outbound accumulation". Coalescing never splits a
// message across datagrams — a message that alone exceeds the threshold is
// sent standalone.
type OutboundAccumulator struct {
	conn      *net.UDPConn
	threshold int

	mu      sync.Mutex
	buffers map[string]*peerBuffer
	closed  bool
}

type peerBuffer struct {
	addr  *net.UDPAddr
	bytes []byte
	timer *time.Timer
}

// NewOutboundAccumulator wraps conn with coalescing up to threshold bytes
// per outbound datagram.
func NewOutboundAccumulator(conn *net.UDPConn, threshold int) *OutboundAccumulator {
	return &OutboundAccumulator{
		conn:      conn,
		threshold: threshold,
		buffers:   make(map[string]*peerBuffer),
	}
}

// Enqueue adds message to peer's pending datagram, flushing first if
// appending would exceed the threshold. A message that alone meets or
// exceeds the threshold is flushed (any pending buffer first, then the
// message standalone) rather than split.
func (a *OutboundAccumulator) Enqueue(peer *net.UDPAddr, message []byte) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return net.ErrClosed
	}

	key := peer.String()
	buf, ok := a.buffers[key]
	if !ok {
		buf = &peerBuffer{addr: peer}
		a.buffers[key] = buf
	}

	if len(buf.bytes)+len(message) > a.threshold {
		pending := buf.bytes
		buf.bytes = nil
		if buf.timer != nil {
			buf.timer.Stop()
			buf.timer = nil
		}
		a.mu.Unlock()
		if len(pending) > 0 {
			if _, err := a.conn.WriteToUDP(pending, peer); err != nil {
				return err
			}
		}
		a.mu.Lock()
	}

	if len(message) >= a.threshold {
		a.mu.Unlock()
		_, err := a.conn.WriteToUDP(message, peer)
		return err
	}

	buf.bytes = append(buf.bytes, message...)
	if buf.timer == nil {
		buf.timer = time.AfterFunc(flushDelay, func() { a.flush(key) })
	}
	a.mu.Unlock()
	return nil
}

func (a *OutboundAccumulator) flush(key string) {
	a.mu.Lock()
	buf, ok := a.buffers[key]
	if !ok || len(buf.bytes) == 0 {
		if ok {
			buf.timer = nil
		}
		a.mu.Unlock()
		return
	}
	pending := buf.bytes
	addr := buf.addr
	buf.bytes = nil
	buf.timer = nil
	a.mu.Unlock()

	_, _ = a.conn.WriteToUDP(pending, addr)
}

// Close flushes every peer's pending buffer and stops all timers.
func (a *OutboundAccumulator) Close() {
	a.mu.Lock()
	a.closed = true
	buffers := a.buffers
	a.buffers = make(map[string]*peerBuffer)
	a.mu.Unlock()

	for _, buf := range buffers {
		if buf.timer != nil {
			buf.timer.Stop()
		}
		if len(buf.bytes) > 0 {
			_, _ = a.conn.WriteToUDP(buf.bytes, buf.addr)
		}
	}
}
