// Package streamio turns a continuous TCP/TLS byte stream into a sequence
// of complete SOME/IP messages, and turns a queue of outbound messages into
// whole-message writes on the connection.
//
// Feed is called by the connection's socket-reading goroutine with whatever
// bytes each read returned, and never blocks. The Writer drains its queue
// on its own goroutine, relying on net.Conn.Write to finish partial writes.
package streamio

import (
	"errors"

	"github.com/marmos91/someipd/internal/wire"
)

// ErrPayloadTooLarge is returned by Feed when a header's implied payload
// size exceeds MaxPayloadSize. The stream becomes unrecoverable: the caller
// must disconnect the owning connection.
var ErrPayloadTooLarge = errors.New("streamio: payload too large")

// DefaultMaxPayloadSize bounds the payload buffer Feed will allocate for a
// single message, independent of the wire-level LengthMax ceiling. It exists
// so a malicious or buggy peer cannot force multi-gigabyte allocations.
const DefaultMaxPayloadSize = 64 * 1024 * 1024

// Message is a complete, decoded SOME/IP message: header plus owned payload.
type Message struct {
	Header  wire.Header
	Payload []byte
}

// Reader incrementally frames SOME/IP messages out of a byte stream.
//
// State is exactly the header buffer, its fill count, and — once the header
// is complete — the payload buffer and its fill count. Feed performs O(len(b))
// work and allocates at most one payload buffer per message it completes.
type Reader struct {
	maxPayloadSize int

	headerBuf    [wire.HeaderSize]byte
	headerFilled int

	header         wire.Header
	headerDecoded  bool
	payloadBuf     []byte
	payloadFilled  int
	payloadWanted  int
}

// NewReader constructs a Reader. maxPayloadSize <= 0 selects DefaultMaxPayloadSize.
func NewReader(maxPayloadSize int) *Reader {
	if maxPayloadSize <= 0 {
		maxPayloadSize = DefaultMaxPayloadSize
	}
	return &Reader{maxPayloadSize: maxPayloadSize}
}

// Feed consumes as much of b as forms complete messages and returns them in
// arrival order, along with the number of bytes consumed from b. On a
// framing error, the returned error is ErrPayloadTooLarge or a wire decode
// error (wrapping wire.ErrMalformedHeader); the Reader must not be reused
// afterward and the owning connection must be disconnected.
func (r *Reader) Feed(b []byte) ([]Message, int, error) {
	var messages []Message
	consumed := 0

	for consumed < len(b) {
		if !r.headerDecoded {
			n := copy(r.headerBuf[r.headerFilled:], b[consumed:])
			r.headerFilled += n
			consumed += n

			if r.headerFilled < wire.HeaderSize {
				break // header still incomplete, wait for more bytes
			}

			h, err := wire.DecodeHeader(r.headerBuf[:])
			if err != nil {
				return messages, consumed, err
			}

			payloadLen := int(h.PayloadLength())
			if payloadLen > r.maxPayloadSize {
				return messages, consumed, ErrPayloadTooLarge
			}

			r.header = h
			r.headerDecoded = true
			r.payloadBuf = make([]byte, payloadLen)
			r.payloadFilled = 0
			r.payloadWanted = payloadLen
			if payloadLen == 0 {
				messages = append(messages, Message{Header: r.header, Payload: r.payloadBuf})
				r.reset()
			}
			continue
		}

		remaining := r.payloadWanted - r.payloadFilled
		n := copy(r.payloadBuf[r.payloadFilled:], b[consumed:consumed+min(remaining, len(b)-consumed)])
		r.payloadFilled += n
		consumed += n

		if r.payloadFilled < r.payloadWanted {
			break // payload still incomplete, wait for more bytes
		}

		messages = append(messages, Message{Header: r.header, Payload: r.payloadBuf})
		r.reset()
	}

	return messages, consumed, nil
}

// reset clears per-message state so the next Feed call starts a fresh header.
func (r *Reader) reset() {
	r.headerFilled = 0
	r.headerDecoded = false
	r.payloadBuf = nil
	r.payloadFilled = 0
	r.payloadWanted = 0
}

// HeaderInFlight reports whether a header has been fully decoded and the
// reader is waiting on payload bytes, as after a read that returned exactly
// a header whose Length announces a payload.
func (r *Reader) HeaderInFlight() bool {
	return r.headerDecoded
}

