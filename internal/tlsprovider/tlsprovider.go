// Package tlsprovider is the default collab.TlsProvider: a genuine
// crypto/tls handshake and record layer, driven entirely through
// internal/tlsbridge's ciphertext-in/plaintext-out shim instead of a real
// net.Conn, so the TCP connection's own read/write loop stays in
// internal/conn.
//
// DTLS (the UDP secure variant of §4.10) has no standard-library or
// pack-provided implementation; Provider only speaks TLS-over-TCP. A
// datagram transport configured with SecureName set is expected to supply
// its own DTLS-capable collab.TlsProvider — documented as a gap, not
// silently dropped.
package tlsprovider

import (
	"crypto/tls"
	"sync"

	"github.com/marmos91/someipd/internal/tlsbridge"
)

// Provider implements collab.TlsProvider over a real crypto/tls.Conn
// (client or server role) bridged through tlsbridge.
type Provider struct {
	conn *tlsbridge.Conn
	tls  *tls.Conn

	mu          sync.Mutex
	onConnected func()
	onClosed    func(error)
	emitFn      func([]byte)

	handshakeOnce sync.Once
	plaintextOut  chan []byte
	closed        chan struct{}
}

// NewClient wraps cfg in a client-role Provider. serverName, when cfg
// leaves ServerName empty, should already be set by the caller.
func NewClient(cfg *tls.Config) *Provider {
	return newProvider(cfg, false)
}

// NewServer wraps cfg in a server-role Provider.
func NewServer(cfg *tls.Config) *Provider {
	return newProvider(cfg, true)
}

func newProvider(cfg *tls.Config, isServer bool) *Provider {
	p := &Provider{
		plaintextOut: make(chan []byte, 64),
		closed:       make(chan struct{}),
	}
	bridge := tlsbridge.New(func(ciphertext []byte) {
		p.mu.Lock()
		fn := p.emitFn
		p.mu.Unlock()
		if fn != nil {
			fn(ciphertext)
		}
	})
	p.conn = bridge
	if isServer {
		p.tls = tls.Server(bridge, cfg)
	} else {
		p.tls = tls.Client(bridge, cfg)
	}
	return p
}

func (p *Provider) start() {
	p.handshakeOnce.Do(func() {
		go p.run()
	})
}

func (p *Provider) run() {
	if err := p.tls.Handshake(); err != nil {
		p.mu.Lock()
		onClosed := p.onClosed
		p.mu.Unlock()
		if onClosed != nil {
			onClosed(err)
		}
		return
	}

	p.mu.Lock()
	onConnected := p.onConnected
	p.mu.Unlock()
	if onConnected != nil {
		onConnected()
	}

	buf := make([]byte, 16*1024)
	for {
		n, err := p.tls.Read(buf)
		if n > 0 {
			out := make([]byte, n)
			copy(out, buf[:n])
			select {
			case p.plaintextOut <- out:
			case <-p.closed:
				return
			}
		}
		if err != nil {
			p.mu.Lock()
			onClosed := p.onClosed
			p.mu.Unlock()
			if onClosed != nil {
				onClosed(err)
			}
			return
		}
	}
}

// SubmitCiphertext feeds ciphertext received off the wire into the TLS
// record layer, starting the handshake on first call.
func (p *Provider) SubmitCiphertext(data []byte) {
	p.start()
	_, _ = p.conn.Feed(data)
}

// EmitCiphertextVia registers the sink that outbound ciphertext (including
// handshake flights) is written to as it is produced.
func (p *Provider) EmitCiphertextVia(fn func([]byte)) {
	p.mu.Lock()
	p.emitFn = fn
	p.mu.Unlock()
}

// SubmitPlaintext encrypts and sends data over the TLS record layer.
func (p *Provider) SubmitPlaintext(data []byte) {
	p.start()
	go func() { _, _ = p.tls.Write(data) }()
}

// EmitPlaintextVia registers the sink that decrypted application data is
// delivered to as each TLS record is read.
func (p *Provider) EmitPlaintextVia(fn func([]byte)) {
	go func() {
		for {
			select {
			case data := <-p.plaintextOut:
				fn(data)
			case <-p.closed:
				return
			}
		}
	}()
}

// OnConnected registers a callback fired once the handshake completes.
func (p *Provider) OnConnected(fn func()) {
	p.mu.Lock()
	p.onConnected = fn
	p.mu.Unlock()
}

// OnDisconnected registers a callback fired when the TLS session ends,
// whether from a handshake failure or a later record-layer error.
func (p *Provider) OnDisconnected(fn func(err error)) {
	p.mu.Lock()
	p.onClosed = fn
	p.mu.Unlock()
}

// Close tears down the bridged connection and stops the read/handshake
// goroutine.
func (p *Provider) Close() error {
	select {
	case <-p.closed:
	default:
		close(p.closed)
	}
	return p.conn.Close()
}
