package tp

import (
	"context"
	"testing"
	"time"

	"github.com/marmos91/someipd/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectivePayload(t *testing.T) {
	assert.Equal(t, 1392, EffectivePayload(1408))
}

func TestSegmentThenReassembleRoundTrips(t *testing.T) {
	header := wire.Header{
		ServiceID:        0x1234,
		MethodOrEventID:  0x8001,
		ClientID:         1,
		SessionID:        1,
		ProtocolVersion:  wire.ProtocolVersion,
		InterfaceVersion: 1,
		MessageType:      wire.MessageTypeNotification,
	}
	payload := make([]byte, 4096)
	for i := range payload {
		payload[i] = byte(i)
	}

	segments, err := SegmentMessage(header, payload, Params{
		SegmentLength:    1408,
		MaxMessageLength: 65536,
		BurstSize:        2,
	})
	require.NoError(t, err)
	require.Len(t, segments, 3)

	assert.Equal(t, uint32(0), segments[0].TPHeader.Offset)
	assert.Equal(t, uint32(1392), segments[1].TPHeader.Offset)
	assert.Equal(t, uint32(2784), segments[2].TPHeader.Offset)
	assert.True(t, segments[0].TPHeader.More)
	assert.True(t, segments[1].TPHeader.More)
	assert.False(t, segments[2].TPHeader.More)

	reasm := NewReassembler(16, 65536)
	key := Key{Peer: "10.0.0.1:30509", ServiceID: header.ServiceID, MethodOrEventID: header.MethodOrEventID, ClientID: header.ClientID, SessionID: header.SessionID}

	var final *wire.Header
	var finalPayload []byte
	for _, seg := range segments {
		h, p, err := reasm.Feed(key, seg.Header, seg.TPHeader, seg.Payload)
		require.NoError(t, err)
		if h != nil {
			final, finalPayload = h, p
		}
	}

	require.NotNil(t, final)
	assert.False(t, final.IsTP())
	assert.Equal(t, payload, finalPayload)
	assert.Equal(t, 0, reasm.Len())
}

func TestReassemblerRejectsOutOfOrderOffset(t *testing.T) {
	reasm := NewReassembler(16, 65536)
	key := Key{Peer: "p", ServiceID: 1}

	h := wire.Header{MessageType: wire.MessageTypeNotification | wire.MessageTypeTPFlag}
	_, _, err := reasm.Feed(key, h, wire.TPHeader{Offset: 16, More: true}, []byte{1, 2, 3, 4})
	assert.ErrorIs(t, err, ErrTPOffsetInvalid)
	assert.Equal(t, 0, reasm.Len())
}

func TestReassemblerDiscardsPriorOnNewFirstSegment(t *testing.T) {
	reasm := NewReassembler(16, 65536)
	key := Key{Peer: "p", ServiceID: 1}
	h := wire.Header{MessageType: wire.MessageTypeNotification | wire.MessageTypeTPFlag}

	_, _, err := reasm.Feed(key, h, wire.TPHeader{Offset: 0, More: true}, make([]byte, 16))
	require.NoError(t, err)
	require.Equal(t, 1, reasm.Len())

	final, payload, err := reasm.Feed(key, h, wire.TPHeader{Offset: 0, More: false}, []byte{9, 9})
	require.NoError(t, err)
	require.NotNil(t, final)
	assert.Equal(t, []byte{9, 9}, payload)
}

func TestReassemblerEnforcesMaxSize(t *testing.T) {
	reasm := NewReassembler(16, 8)
	key := Key{Peer: "p", ServiceID: 1}
	h := wire.Header{MessageType: wire.MessageTypeNotification | wire.MessageTypeTPFlag}

	_, _, err := reasm.Feed(key, h, wire.TPHeader{Offset: 0, More: true}, make([]byte, 16))
	assert.ErrorIs(t, err, ErrTPMessageTooLarge)
	assert.Equal(t, 0, reasm.Len())
}

func TestReassemblerEvictsOldestOnOverflow(t *testing.T) {
	reasm := NewReassembler(1, 65536)
	h := wire.Header{MessageType: wire.MessageTypeNotification | wire.MessageTypeTPFlag}

	key1 := Key{Peer: "p1", ServiceID: 1}
	_, _, err := reasm.Feed(key1, h, wire.TPHeader{Offset: 0, More: true}, make([]byte, 16))
	require.NoError(t, err)

	key2 := Key{Peer: "p2", ServiceID: 1}
	_, _, err = reasm.Feed(key2, h, wire.TPHeader{Offset: 0, More: true}, make([]byte, 16))
	require.NoError(t, err)

	assert.Equal(t, 1, reasm.Len())

	// key1's state should have been evicted; feeding its continuation now
	// looks like an invalid offset rather than a valid append.
	_, _, err = reasm.Feed(key1, h, wire.TPHeader{Offset: 16, More: false}, []byte{1})
	assert.ErrorIs(t, err, ErrTPOffsetInvalid)
}

func TestPacerEmitsBurstsAndCompletes(t *testing.T) {
	segments := []Segment{{}, {}, {}}
	var emitted []int
	doneCh := make(chan struct{})

	p := NewPacer(segments, 2, 10*time.Millisecond, func(s Segment) {
		emitted = append(emitted, len(emitted))
	}, func() { close(doneCh) })

	p.Start(context.Background())
	assert.Len(t, emitted, 2) // first burst emitted synchronously

	select {
	case <-doneCh:
	case <-time.After(time.Second):
		t.Fatal("pacer did not complete")
	}
	assert.Len(t, emitted, 3)
}

func TestPacerCancelStopsRemainingSegments(t *testing.T) {
	segments := []Segment{{}, {}, {}, {}}
	var emitted int

	p := NewPacer(segments, 1, time.Hour, func(s Segment) {
		emitted++
	}, nil)

	p.Start(context.Background())
	assert.Equal(t, 1, emitted)

	p.Cancel()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, emitted) // timer never fires again
}
