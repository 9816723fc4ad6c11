// Package udpendpoint owns one UDP socket: it demultiplexes inbound
// datagrams by source address, runs the bulk-read scheduling policy of
// §4.8, and accumulates small outbound messages bound for the same peer
// into coalesced datagrams.
//
// Like pkg/adapter's BaseAdapter, an Endpoint owns its own accept-equivalent
// goroutine (here a read loop instead of an Accept loop) and reports
// decoded messages and peer lifecycle to its owner over a channel, keeping
// the reactor the only goroutine that mutates shared routing state.
package udpendpoint

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/marmos91/someipd/internal/collab"
	"github.com/marmos91/someipd/internal/datagramio"
	"github.com/marmos91/someipd/internal/logger"
	"github.com/marmos91/someipd/internal/sockopt"
	"github.com/marmos91/someipd/internal/tp"
	"github.com/marmos91/someipd/internal/wire"
)

// BulkReadPolicy configures the read-scheduling loop of §4.8.
type BulkReadPolicy struct {
	// BulkReadCount is the maximum number of reads attempted per wakeup.
	BulkReadCount int
	// MinDatagramsToContinue: stop looping once a wakeup yields fewer
	// datagrams than this.
	MinDatagramsToContinue int
	// MaxConsecutiveCalls bounds the read loop regardless of yield, so one
	// noisy peer cannot starve the reactor.
	MaxConsecutiveCalls int
	// ReceivePeriod, when nonzero, paces wakeups on a timer instead of
	// reading as fast as the socket allows.
	ReceivePeriod time.Duration
}

// DefaultBulkReadPolicy matches a conservative single-read-at-a-time
// schedule; endpoints configured for high throughput raise these.
var DefaultBulkReadPolicy = BulkReadPolicy{
	BulkReadCount:          32,
	MinDatagramsToContinue: 1,
	MaxConsecutiveCalls:    8,
}

// EventKind identifies what happened on the endpoint.
type EventKind int

const (
	EventMessage EventKind = iota
	EventPeerError
)

// Event is one inbound datagram or per-peer error, posted to the reactor.
type Event struct {
	Kind    EventKind
	Peer    *net.UDPAddr
	Message datagramio.Message
	Err     error
}

// Peer is the per-remote-address record of §4.8's "Demux" section: for
// plain endpoints it carries TP reassembly state; secure endpoints attach
// a DTLS session here instead (internal/tlsbridge).
type Peer struct {
	Addr        *net.UDPAddr
	LastSeen    time.Time
	reassembler *tp.Reassembler
}

// Endpoint owns one UDP socket.
type Endpoint struct {
	conn   *net.UDPConn
	policy BulkReadPolicy
	events chan Event

	maxReassemblyKeys int
	maxReassemblySize int

	mu    sync.Mutex
	peers map[string]*Peer

	accumulator *OutboundAccumulator

	closeOnce sync.Once
	done      chan struct{}
}

// New binds a UDP socket at addr and returns an Endpoint ready to Serve.
func New(addr *net.UDPAddr, policy BulkReadPolicy, maxReassemblyKeys, maxReassemblySize int, collectionThreshold int, events chan Event) (*Endpoint, error) {
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}
	e := &Endpoint{
		conn:              conn,
		policy:            policy,
		events:            events,
		maxReassemblyKeys: maxReassemblyKeys,
		maxReassemblySize: maxReassemblySize,
		peers:             make(map[string]*Peer),
		done:              make(chan struct{}),
	}
	if collectionThreshold > 0 {
		e.accumulator = NewOutboundAccumulator(conn, collectionThreshold)
	}
	return e, nil
}

// LocalAddr returns the bound address.
func (e *Endpoint) LocalAddr() net.Addr {
	return e.conn.LocalAddr()
}

// ApplySocketOptions tunes the bound socket per §6 (IP QoS/DSCP; keep-alive
// and linger are TCP-only and ignored here). Call once, right after New.
func (e *Endpoint) ApplySocketOptions(opts collab.SocketOptions) error {
	return sockopt.Apply(e.conn, opts)
}

// Serve runs the bulk-read loop of §4.8 until ctx is cancelled or Close is
// called. Each wakeup attempts up to BulkReadCount reads, stopping early
// once a read round yields fewer than MinDatagramsToContinue datagrams,
// and never exceeding MaxConsecutiveCalls rounds regardless of yield.
func (e *Endpoint) Serve(ctx context.Context) {
	go func() {
		<-ctx.Done()
		e.Close()
	}()

	buf := make([]byte, 64*1024)
	for {
		select {
		case <-e.done:
			return
		default:
		}

		e.readRound(buf)

		if e.policy.ReceivePeriod > 0 {
			select {
			case <-time.After(e.policy.ReceivePeriod):
			case <-e.done:
				return
			}
		}
		// With no ReceivePeriod configured, each readBatch call's own
		// deadline already paces the loop; the next round starts directly.
	}
}

// readRound performs up to MaxConsecutiveCalls reads, stopping early per
// MinDatagramsToContinue, and returns the number of datagrams processed.
func (e *Endpoint) readRound(buf []byte) int {
	calls := e.policy.MaxConsecutiveCalls
	if calls <= 0 {
		calls = 1
	}
	total := 0
	for i := 0; i < calls; i++ {
		n := e.readBatch(buf)
		total += n
		if n < e.policy.MinDatagramsToContinue {
			break
		}
	}
	return total
}

// readBatch performs up to BulkReadCount individual reads (Go's net package
// exposes no recvmmsg equivalent, so "bulk" here means a tight loop of
// ordinary ReadFromUDP calls bounded by the same count the reactor model
// would pass to recvmmsg) and returns how many datagrams were received.
func (e *Endpoint) readBatch(buf []byte) int {
	count := e.policy.BulkReadCount
	if count <= 0 {
		count = 1
	}
	n := 0
	for i := 0; i < count; i++ {
		_ = e.conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		sz, peerAddr, err := e.conn.ReadFromUDP(buf)
		if err != nil {
			// Timeout (no traffic) and closed-socket errors both just end
			// this round; the outer Serve loop checks e.done next.
			return n
		}
		e.handleDatagram(buf[:sz], peerAddr)
		n++
	}
	return n
}

func (e *Endpoint) handleDatagram(datagram []byte, peerAddr *net.UDPAddr) {
	if len(datagram) == 0 {
		return // §9 boundary case: empty UDP datagram is ignored.
	}

	peer := e.peerFor(peerAddr)

	messages, err := datagramio.Split(datagram)
	for _, m := range messages {
		e.deliver(peer, m)
	}
	if err != nil {
		e.events <- Event{Kind: EventPeerError, Peer: peerAddr, Err: err}
	}
}

func (e *Endpoint) deliver(peer *Peer, m datagramio.Message) {
	if !m.Header.IsTP() {
		e.events <- Event{Kind: EventMessage, Peer: peer.Addr, Message: m}
		return
	}

	tpHeader, payload, err := splitTP(m.Payload)
	if err != nil {
		e.events <- Event{Kind: EventPeerError, Peer: peer.Addr, Err: err}
		return
	}

	key := tp.Key{
		Peer:            peer.Addr.String(),
		ServiceID:       m.Header.ServiceID,
		MethodOrEventID: m.Header.MethodOrEventID,
		ClientID:        m.Header.ClientID,
		SessionID:       m.Header.SessionID,
	}
	final, fullPayload, err := e.reassemblerFor(peer).Feed(key, m.Header, tpHeader, payload)
	if err != nil {
		logger.Debug("udp tp reassembly rejected segment", logger.Peer(peer.Addr.String()), logger.Err(err))
		return
	}
	if final != nil {
		e.events <- Event{Kind: EventMessage, Peer: peer.Addr, Message: datagramio.Message{Header: *final, Payload: fullPayload}}
	}
}

func splitTP(payload []byte) (wire.TPHeader, []byte, error) {
	if len(payload) < wire.TPHeaderSize {
		return wire.TPHeader{}, nil, wire.ErrMalformedTPHeader
	}
	tpHeader, err := wire.DecodeTPHeader(payload[:wire.TPHeaderSize])
	if err != nil {
		return wire.TPHeader{}, nil, err
	}
	return tpHeader, payload[wire.TPHeaderSize:], nil
}

func (e *Endpoint) peerFor(addr *net.UDPAddr) *Peer {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := addr.String()
	p, ok := e.peers[key]
	if !ok {
		p = &Peer{Addr: addr}
		e.peers[key] = p
	}
	p.LastSeen = time.Now()
	return p
}

func (e *Endpoint) reassemblerFor(p *Peer) *tp.Reassembler {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p.reassembler == nil {
		p.reassembler = tp.NewReassembler(e.maxReassemblyKeys, e.maxReassemblySize)
	}
	return p.reassembler
}

// ReassemblyKeyCount returns the total number of in-progress SOME/IP-TP
// reassembly keys held across every peer, for introspection (e.g.
// internal/controlapi).
func (e *Endpoint) ReassemblyKeyCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	total := 0
	for _, p := range e.peers {
		if p.reassembler != nil {
			total += p.reassembler.Len()
		}
	}
	return total
}

// PeerCount returns the number of demuxed peers currently tracked.
func (e *Endpoint) PeerCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.peers)
}

// Send transmits message to peer, routing through the outbound accumulator
// when one is configured (§4.8 "Outbound accumulation").
func (e *Endpoint) Send(peer *net.UDPAddr, message []byte) error {
	if e.accumulator != nil {
		return e.accumulator.Enqueue(peer, message)
	}
	_, err := e.conn.WriteToUDP(message, peer)
	return err
}

// DiscardPeer drops demux and reassembly state for a peer, called when the
// owning logical connection's Users reaches zero.
func (e *Endpoint) DiscardPeer(addr *net.UDPAddr) {
	e.mu.Lock()
	delete(e.peers, addr.String())
	e.mu.Unlock()
}

// Close stops the read loop and releases the socket and any buffered
// outbound accumulation state.
func (e *Endpoint) Close() {
	e.closeOnce.Do(func() {
		close(e.done)
		_ = e.conn.Close()
		if e.accumulator != nil {
			e.accumulator.Close()
		}
	})
}
