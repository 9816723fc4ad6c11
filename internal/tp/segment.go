// Package tp implements SOME/IP-TP message segmentation and reassembly:
// splitting an oversized message into 16-byte-aligned, paced segments, and
// reassembling a peer's segment stream back into a complete message.
package tp

import (
	"errors"

	"github.com/marmos91/someipd/internal/wire"
)

// ErrMessageTooLarge is returned by SegmentMessage when payload exceeds the
// configured MaxMessageLength.
var ErrMessageTooLarge = errors.New("tp: message exceeds max_message_length")

// ErrSegmentLengthTooSmall is returned when SegmentLength leaves no room
// for at least one 16-byte-aligned payload chunk.
var ErrSegmentLengthTooSmall = errors.New("tp: segment_length too small")

// segmentOverhead is the fixed SOME/IP header that precedes every
// segment. SegmentLength budgets only that header and the payload; the
// TP header is carried on top of the budget, so only the 16-byte SOME/IP
// header is subtracted here.
const segmentOverhead = wire.HeaderSize

// Params configures segmentation for one (service, method/event, direction).
type Params struct {
	// SegmentLength is the segment size budget: the SOME/IP header
	// (segmentOverhead) plus each non-final segment's payload. The TP
	// header is carried in addition to this budget, not out of it. Must
	// be in [32, 1408]; 1408 yields the AUTOSAR maximum of 1392 payload
	// bytes per segment.
	SegmentLength int
	// MaxMessageLength rejects payloads larger than this before any
	// segment is produced.
	MaxMessageLength int
	// BurstSize is the number of consecutive segments emitted before
	// pacing waits for SeparationTime. Zero means unbounded bursts.
	BurstSize int
	// SeparationTime is the minimum delay between bursts.
	SeparationTime int64 // nanoseconds, kept integer to avoid importing time here
}

// Segment is one emitted TP segment: the SOME/IP header (TP bit set,
// Length reflecting this segment's own payload), the TP header, and the
// payload slice.
type Segment struct {
	Header   wire.Header
	TPHeader wire.TPHeader
	Payload  []byte
}

// EffectivePayload returns the number of payload bytes each non-final
// segment carries for the given SegmentLength: (SegmentLength - 16) & ~0xF.
func EffectivePayload(segmentLength int) int {
	return (segmentLength - segmentOverhead) &^ 0xF
}

// SegmentMessage splits payload into a sequence of TP segments for the message
// described by header (the TP bit is set on every emitted segment; the
// ReturnCode/MessageType base bits of header are otherwise preserved).
// Segments are returned in emission order with monotonically increasing,
// 16-byte-aligned offsets; the last segment carries More=false.
func SegmentMessage(header wire.Header, payload []byte, p Params) ([]Segment, error) {
	if len(payload) > p.MaxMessageLength {
		return nil, ErrMessageTooLarge
	}

	effective := EffectivePayload(p.SegmentLength)
	if effective <= 0 {
		return nil, ErrSegmentLengthTooSmall
	}

	if len(payload) == 0 {
		seg := buildSegment(header, 0, payload, false)
		return []Segment{seg}, nil
	}

	var segments []Segment
	offset := 0
	for offset < len(payload) {
		end := offset + effective
		if end > len(payload) {
			end = len(payload)
		}
		more := end < len(payload)
		segments = append(segments, buildSegment(header, uint32(offset), payload[offset:end], more))
		offset = end
	}

	return segments, nil
}

func buildSegment(header wire.Header, offset uint32, payload []byte, more bool) Segment {
	h := header
	h.MessageType |= wire.MessageTypeTPFlag
	h.Length = wire.LengthMin + uint32(len(payload)) + wire.TPHeaderSize
	return Segment{
		Header:   h,
		TPHeader: wire.TPHeader{Offset: offset, More: more},
		Payload:  payload,
	}
}
