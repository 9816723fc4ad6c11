// Package datagramio splits a single UDP datagram into zero or more SOME/IP
// messages, since multiple messages are permitted back-to-back in one
// datagram on the UDP path (unlike TCP, which has no boundaries but the
// header's own Length field).
package datagramio

import (
	"errors"

	"github.com/marmos91/someipd/internal/wire"
)

// ErrMalformedDatagram indicates the datagram could not be fully parsed.
// Per §4.3, this discards the remainder of the current datagram but never
// the caller's peer state.
var ErrMalformedDatagram = errors.New("datagramio: malformed datagram")

// Message is one SOME/IP message carved out of a datagram. Payload aliases
// the caller's datagram buffer — callers that retain it past the current
// read must copy.
type Message struct {
	Header  wire.Header
	Payload []byte
}

// Split carves zero or more complete messages out of datagram. On a
// shortfall or malformed header it returns the messages successfully
// parsed so far together with ErrMalformedDatagram; the caller discards
// whatever bytes remain but keeps any per-peer state untouched.
func Split(datagram []byte) ([]Message, error) {
	var messages []Message
	remaining := datagram

	for len(remaining) > 0 {
		if len(remaining) < wire.HeaderSize {
			return messages, ErrMalformedDatagram
		}

		h, err := wire.DecodeHeader(remaining[:wire.HeaderSize])
		if err != nil {
			return messages, ErrMalformedDatagram
		}

		total := wire.HeaderSize + int(h.PayloadLength())
		if total > len(remaining) {
			return messages, ErrMalformedDatagram
		}

		messages = append(messages, Message{
			Header:  h,
			Payload: remaining[wire.HeaderSize:total],
		})
		remaining = remaining[total:]
	}

	return messages, nil
}
