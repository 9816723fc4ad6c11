package tp

import (
	"container/list"
	"errors"
	"time"

	"github.com/marmos91/someipd/internal/wire"
)

// ErrTPOffsetInvalid is returned when a segment's offset does not match the
// reassembly state machine's expectations (§4.6 step 3) and the offset is
// not 0 (which instead starts a fresh message).
var ErrTPOffsetInvalid = errors.New("tp: invalid segment offset, reassembly state reset")

// ErrTPMessageTooLarge is returned when an in-progress reassembly exceeds
// its configured MaxSize after appending a segment.
var ErrTPMessageTooLarge = errors.New("tp: reassembled message exceeds max size")

// Key identifies one reassembly stream: a peer together with the message
// identity fields that must match across all of a message's segments.
type Key struct {
	Peer      string
	ServiceID uint16
	MethodOrEventID uint16
	ClientID  uint16
	SessionID uint16
}

// entry is the reassembly state for one Key.
type entry struct {
	key               Key
	header            wire.Header // header of the first segment, TP bit still set until delivery
	buffer            []byte
	expectedNextOffset uint32
	maxSize           int
	startedAt         time.Time
	elem              *list.Element // position in the engine's LRU eviction list
}

// Reassembler holds in-progress reassembly state for up to maxKeys peers'
// messages, evicting the oldest in-progress entry on overflow (§4.6
// "Bounded state"). There is no retransmission and no out-of-order
// buffering — exactly the in-order-only protocol the spec describes.
type Reassembler struct {
	maxKeys int
	maxSize int

	entries map[Key]*entry
	lru     *list.List // front = most recently touched
}

// NewReassembler constructs a Reassembler. maxSize bounds any single
// message's reassembled length; maxKeys bounds the number of concurrent
// in-progress reassemblies.
func NewReassembler(maxKeys, maxSize int) *Reassembler {
	return &Reassembler{
		maxKeys: maxKeys,
		maxSize: maxSize,
		entries: make(map[Key]*entry),
		lru:     list.New(),
	}
}

// Feed processes one received segment. On a fully reassembled message it
// returns (header, payload, nil) with the TP bit cleared from the returned
// header and Length updated to reflect the full payload. An accepted
// non-final segment returns (nil, nil, nil). A discarded or rejected
// segment returns (nil, nil, err); the caller logs the error and
// continues — reassembly errors never propagate above this package.
func (r *Reassembler) Feed(key Key, header wire.Header, tp wire.TPHeader, payload []byte) (*wire.Header, []byte, error) {
	e, exists := r.entries[key]

	switch {
	case !exists && tp.Offset == 0:
		e = r.newEntry(key, header, payload)

	case exists && tp.Offset == e.expectedNextOffset:
		e.buffer = append(e.buffer, payload...)
		e.expectedNextOffset += uint32(len(payload))
		r.lru.MoveToFront(e.elem)

	case exists && tp.Offset == 0:
		// New first segment for a key that already has partial state:
		// discard the prior partial and start over (§4.6 step 3, "if
		// o == 0 treat as a new message").
		r.discard(key)
		e = r.newEntry(key, header, payload)

	case exists:
		r.discard(key)
		return nil, nil, ErrTPOffsetInvalid

	default:
		// No state and offset != 0: nothing to discard, but still invalid.
		return nil, nil, ErrTPOffsetInvalid
	}

	if len(e.buffer) > e.maxSize {
		r.discard(key)
		return nil, nil, ErrTPMessageTooLarge
	}

	if !tp.More {
		out := e.header
		out.MessageType &^= wire.MessageTypeTPFlag
		out.Length = wire.LengthMin + uint32(len(e.buffer))
		payloadOut := e.buffer
		r.discard(key)
		return &out, payloadOut, nil
	}

	return nil, nil, nil
}

func (r *Reassembler) newEntry(key Key, header wire.Header, payload []byte) *entry {
	if r.maxKeys > 0 && len(r.entries) >= r.maxKeys {
		r.evictOldest()
	}

	buf := make([]byte, len(payload))
	copy(buf, payload)

	e := &entry{
		key:                key,
		header:             header,
		buffer:             buf,
		expectedNextOffset: uint32(len(payload)),
		maxSize:            r.maxSize,
		startedAt:          time.Now(),
	}
	e.elem = r.lru.PushFront(key)
	r.entries[key] = e
	return e
}

func (r *Reassembler) discard(key Key) {
	e, ok := r.entries[key]
	if !ok {
		return
	}
	r.lru.Remove(e.elem)
	delete(r.entries, key)
}

func (r *Reassembler) evictOldest() {
	back := r.lru.Back()
	if back == nil {
		return
	}
	key := back.Value.(Key)
	r.discard(key)
}

// Len reports the number of in-progress reassemblies, for metrics.
func (r *Reassembler) Len() int {
	return len(r.entries)
}

// DiscardPeer drops all in-progress reassembly state for a peer, called on
// connection disconnect.
func (r *Reassembler) DiscardPeer(peer string) {
	for key := range r.entries {
		if key.Peer == peer {
			r.discard(key)
		}
	}
}
