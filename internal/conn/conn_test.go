package conn

import (
	"net"
	"testing"
	"time"

	"github.com/marmos91/someipd/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipePair(t *testing.T) (server, client net.Conn) {
	t.Helper()
	server, client = net.Pipe()
	return
}

func TestConnectionDeliversDecodedMessages(t *testing.T) {
	server, client := pipePair(t)
	defer client.Close()

	events := make(chan Event, 8)
	c := New(server, RolePassive, ErrorThreshold{}, 0, events)
	defer c.Disconnect()

	h := wire.Header{ServiceID: 1, Length: wire.LengthMin, MessageType: wire.MessageTypeRequest, ProtocolVersion: wire.ProtocolVersion}
	buf := make([]byte, wire.HeaderSize)
	h.Encode(buf)

	go func() { _, _ = client.Write(buf) }()

	select {
	case ev := <-events:
		require.Equal(t, EventMessage, ev.Kind)
		assert.Equal(t, uint16(1), ev.Message.Header.ServiceID)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a message event")
	}
}

func TestConnectionDisconnectIsIdempotentAndNotifiesOnce(t *testing.T) {
	server, client := pipePair(t)
	defer client.Close()

	events := make(chan Event, 8)
	c := New(server, RolePassive, ErrorThreshold{}, 0, events)

	c.Disconnect()
	c.Disconnect()

	disconnectCount := 0
	drain := true
	for drain {
		select {
		case ev := <-events:
			if ev.Kind == EventDisconnected {
				disconnectCount++
			}
		case <-time.After(100 * time.Millisecond):
			drain = false
		}
	}
	assert.Equal(t, 1, disconnectCount)
	assert.Equal(t, StateDisconnected, c.State())
}

// TestErrorThresholdScenario exercises the I=3, V=2 error-threshold
// algorithm of §4.7: a single valid message between malformed ones does
// not reset invalid_count (only a run of V consecutive valid ones does),
// so invalid_count keeps accumulating across the interruption.
func TestErrorThresholdScenario(t *testing.T) {
	c := &Connection{threshold: ErrorThreshold{I: 3, V: 2}}

	assert.False(t, c.RecordInvalid()) // invalid_count=1
	assert.False(t, c.RecordInvalid()) // invalid_count=2
	c.RecordValid()                    // valid_run=1, not a run of V=2 yet
	assert.True(t, c.RecordInvalid())  // invalid_count=3 -> threshold reached
}

// TestErrorThresholdResetsOnValidRun shows invalid_count clears only after
// a run of V consecutive valid messages.
func TestErrorThresholdResetsOnValidRun(t *testing.T) {
	c := &Connection{threshold: ErrorThreshold{I: 3, V: 2}}
	c.RecordInvalid() // invalid_count=1
	c.RecordInvalid() // invalid_count=2
	c.RecordValid()   // valid_run=1
	c.RecordValid()   // valid_run=2 -> reset: invalid_count=0

	assert.False(t, c.RecordInvalid()) // invalid_count=1
	assert.False(t, c.RecordInvalid()) // invalid_count=2
	assert.True(t, c.RecordInvalid())  // invalid_count=3 -> threshold reached
}

func TestErrorThresholdDisabledWhenIZero(t *testing.T) {
	c := &Connection{threshold: ErrorThreshold{I: 0, V: 2}}
	for i := 0; i < 100; i++ {
		assert.False(t, c.RecordInvalid())
	}
}

func TestAcquireRelease(t *testing.T) {
	server, client := pipePair(t)
	defer client.Close()
	events := make(chan Event, 1)
	c := New(server, RolePassive, ErrorThreshold{}, 0, events)
	defer c.Disconnect()

	c.Acquire()
	c.Acquire()
	assert.Equal(t, int64(2), c.Users())
	c.Release()
	assert.Equal(t, int64(1), c.Users())
}
