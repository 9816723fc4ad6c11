package udpendpoint

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/marmos91/someipd/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLoopback(t *testing.T) *net.UDPAddr {
	t.Helper()
	addr, err := net.ResolveUDPAddr("udp", "127.0.0.1:0")
	require.NoError(t, err)
	return addr
}

func encodeMessage(t *testing.T, h wire.Header, payload []byte) []byte {
	t.Helper()
	h.Length = wire.LengthMin + uint32(len(payload))
	buf := make([]byte, wire.HeaderSize+len(payload))
	h.Encode(buf)
	copy(buf[wire.HeaderSize:], payload)
	return buf
}

func TestEndpointDeliversSingleMessage(t *testing.T) {
	events := make(chan Event, 8)
	ep, err := New(mustLoopback(t), DefaultBulkReadPolicy, 16, 65536, 0, events)
	require.NoError(t, err)
	defer ep.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ep.Serve(ctx)

	client, err := net.DialUDP("udp", nil, ep.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	defer client.Close()

	h := wire.Header{ServiceID: 0x42, MessageType: wire.MessageTypeRequest, ProtocolVersion: wire.ProtocolVersion}
	_, err = client.Write(encodeMessage(t, h, []byte("hi")))
	require.NoError(t, err)

	select {
	case ev := <-events:
		require.Equal(t, EventMessage, ev.Kind)
		assert.Equal(t, uint16(0x42), ev.Message.Header.ServiceID)
		assert.Equal(t, []byte("hi"), ev.Message.Payload)
	case <-time.After(3 * time.Second):
		t.Fatal("expected a message event")
	}
}

func TestEndpointSplitsBackToBackMessages(t *testing.T) {
	events := make(chan Event, 8)
	ep, err := New(mustLoopback(t), DefaultBulkReadPolicy, 16, 65536, 0, events)
	require.NoError(t, err)
	defer ep.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ep.Serve(ctx)

	client, err := net.DialUDP("udp", nil, ep.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	defer client.Close()

	h1 := wire.Header{ServiceID: 1, MessageType: wire.MessageTypeRequest, ProtocolVersion: wire.ProtocolVersion}
	h2 := wire.Header{ServiceID: 2, MessageType: wire.MessageTypeRequest, ProtocolVersion: wire.ProtocolVersion}
	datagram := append(encodeMessage(t, h1, []byte("a")), encodeMessage(t, h2, []byte("bb"))...)
	_, err = client.Write(datagram)
	require.NoError(t, err)

	var got []uint16
	for i := 0; i < 2; i++ {
		select {
		case ev := <-events:
			require.Equal(t, EventMessage, ev.Kind)
			got = append(got, ev.Message.Header.ServiceID)
		case <-time.After(3 * time.Second):
			t.Fatal("expected two message events")
		}
	}
	assert.ElementsMatch(t, []uint16{1, 2}, got)
}

func TestEndpointIgnoresEmptyDatagram(t *testing.T) {
	events := make(chan Event, 8)
	ep, err := New(mustLoopback(t), DefaultBulkReadPolicy, 16, 65536, 0, events)
	require.NoError(t, err)
	defer ep.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ep.Serve(ctx)

	client, err := net.DialUDP("udp", nil, ep.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Write(nil)
	require.NoError(t, err)

	h := wire.Header{ServiceID: 7, MessageType: wire.MessageTypeRequest, ProtocolVersion: wire.ProtocolVersion}
	_, err = client.Write(encodeMessage(t, h, nil))
	require.NoError(t, err)

	select {
	case ev := <-events:
		require.Equal(t, EventMessage, ev.Kind)
		assert.Equal(t, uint16(7), ev.Message.Header.ServiceID)
	case <-time.After(3 * time.Second):
		t.Fatal("expected the non-empty datagram's message event")
	}
}

func TestOutboundAccumulatorCoalescesUnderThreshold(t *testing.T) {
	serverAddr := mustLoopback(t)
	server, err := net.ListenUDP("udp", serverAddr)
	require.NoError(t, err)
	defer server.Close()

	client, err := net.ListenUDP("udp", mustLoopback(t))
	require.NoError(t, err)
	defer client.Close()

	acc := NewOutboundAccumulator(client, 32)
	defer acc.Close()

	target := server.LocalAddr().(*net.UDPAddr)
	require.NoError(t, acc.Enqueue(target, []byte("one")))
	require.NoError(t, acc.Enqueue(target, []byte("two")))

	buf := make([]byte, 128)
	_ = server.SetReadDeadline(time.Now().Add(time.Second))
	n, _, err := server.ReadFromUDP(buf)
	require.NoError(t, err)
	assert.Equal(t, "onetwo", string(buf[:n]))
}

func TestOutboundAccumulatorFlushesOnThresholdExceeded(t *testing.T) {
	serverAddr := mustLoopback(t)
	server, err := net.ListenUDP("udp", serverAddr)
	require.NoError(t, err)
	defer server.Close()

	client, err := net.ListenUDP("udp", mustLoopback(t))
	require.NoError(t, err)
	defer client.Close()

	acc := NewOutboundAccumulator(client, 4)
	defer acc.Close()

	target := server.LocalAddr().(*net.UDPAddr)
	require.NoError(t, acc.Enqueue(target, []byte("ab")))
	require.NoError(t, acc.Enqueue(target, []byte("cd")))
	require.NoError(t, acc.Enqueue(target, []byte("ef")))

	buf := make([]byte, 128)
	var reads []string
	for i := 0; i < 2; i++ {
		_ = server.SetReadDeadline(time.Now().Add(time.Second))
		n, _, err := server.ReadFromUDP(buf)
		require.NoError(t, err)
		reads = append(reads, string(buf[:n]))
	}
	assert.ElementsMatch(t, []string{"abcd", "ef"}, reads)
}
