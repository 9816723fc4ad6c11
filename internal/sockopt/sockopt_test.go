package sockopt

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/someipd/internal/collab"
)

func TestApply_TCPNagleAndLinger(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	client, err := net.Dial("tcp", listener.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	server, err := listener.Accept()
	require.NoError(t, err)
	defer server.Close()

	opts := collab.SocketOptions{DisableNagle: true, LingerSeconds: 1}
	assert.NoError(t, Apply(server, opts))
}

func TestApply_DSCP(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	client, err := net.Dial("tcp", listener.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	server, err := listener.Accept()
	require.NoError(t, err)
	defer server.Close()

	assert.NoError(t, Apply(server, collab.SocketOptions{DSCP: 46}))
}

func TestApply_KeepAlive(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	client, err := net.Dial("tcp", listener.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	server, err := listener.Accept()
	require.NoError(t, err)
	defer server.Close()

	opts := collab.SocketOptions{
		KeepAliveEnabled:  true,
		KeepAliveInterval: 5,
		KeepAliveCount:    3,
	}
	assert.NoError(t, Apply(server, opts))
}

func TestApply_NonSyscallConnIsSkippedNotErrored(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	defer server.Close()

	assert.NoError(t, Apply(server, collab.SocketOptions{DSCP: 46, DisableNagle: true}))
}
