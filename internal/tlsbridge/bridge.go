// Package tlsbridge adapts crypto/tls, which only speaks to a net.Conn it
// drives itself, to the opaque record-layer contract of §4.10 and
// collab.TlsProvider: submit ciphertext in, get plaintext out, and the
// reverse for outbound. internal/conn and internal/udpendpoint never see a
// net.Conn belonging to the TLS library; they only ever submit and receive
// byte slices.
package tlsbridge

import (
	"io"
	"net"
	"time"
)

// Conn is a net.Conn whose Read side is fed externally (via Feed) and
// whose Write side is observed externally (via an onWrite callback),
// instead of touching a real socket. crypto/tls.Conn is built on top of
// one of these so its handshake and record-layer code runs unmodified;
// only the I/O underneath it is redirected.
type Conn struct {
	readBuf  *io.PipeReader
	readPipe *io.PipeWriter
	onWrite  func([]byte)

	localAddr, remoteAddr net.Addr
}

// New constructs a Conn whose outbound bytes are delivered to onWrite
// instead of a socket.
func New(onWrite func([]byte)) *Conn {
	r, w := io.Pipe()
	return &Conn{
		readBuf:    r,
		readPipe:   w,
		onWrite:    onWrite,
		localAddr:  pipeAddr("local"),
		remoteAddr: pipeAddr("remote"),
	}
}

// Feed injects ciphertext received off the wire into the conn's read side,
// where crypto/tls will pick it up on its next Read.
func (c *Conn) Feed(data []byte) (int, error) {
	return c.readPipe.Write(data)
}

func (c *Conn) Read(b []byte) (int, error)  { return c.readBuf.Read(b) }
func (c *Conn) Write(b []byte) (int, error) { c.onWrite(b); return len(b), nil }
func (c *Conn) Close() error {
	_ = c.readPipe.CloseWithError(io.EOF)
	return c.readBuf.Close()
}
func (c *Conn) LocalAddr() net.Addr                { return c.localAddr }
func (c *Conn) RemoteAddr() net.Addr               { return c.remoteAddr }
func (c *Conn) SetDeadline(t time.Time) error      { return nil }
func (c *Conn) SetReadDeadline(t time.Time) error  { return nil }
func (c *Conn) SetWriteDeadline(t time.Time) error { return nil }

type pipeAddr string

func (a pipeAddr) Network() string { return "tls-bridge" }
func (a pipeAddr) String() string  { return string(a) }
