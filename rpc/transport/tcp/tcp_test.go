package tcp

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/buzzblog/postrpc/rpc/common"
	"github.com/buzzblog/postrpc/rpc/transport"
	"github.com/buzzblog/postrpc/rpc/transport/base"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startEchoServer starts a server transport answering every request with its payload prefixed by "echo:"
func startEchoServer(t *testing.T) transport.IRPCServerTransport {
	t.Helper()

	srv := NewTCPServerTransport(1024, 2)
	srv.RegisterHandler(func(req []byte) []byte {
		return append([]byte("echo:"), req...)
	})

	done := make(chan error, 1)
	go func() {
		done <- srv.Listen(common.ServerConfig{
			TimeoutSecond: 5,
			Transport: common.ServerTransportConfig{
				Endpoint: "127.0.0.1:0",
				TCPConf:  common.TCPConf{TCPNoDelay: true, TCPKeepAliveSec: 30, TCPLingerSec: -1},
			},
		})
	}()
	require.Eventually(t, func() bool { return srv.Addr() != "" }, 2*time.Second, 5*time.Millisecond)

	t.Cleanup(func() {
		_ = srv.Close()
		<-done
	})
	return srv
}

func connect(t *testing.T, addr string) transport.IRPCClientTransport {
	t.Helper()

	ep, err := common.ParseEndpoint(addr, 500)
	require.NoError(t, err)

	c := NewTCPClientTransport()
	require.NoError(t, c.Connect(common.ClientConfig{
		Endpoint:      ep,
		TimeoutSecond: 5,
		Transport: common.ClientTransportConfig{
			SocketConf: common.SocketConf{WriteBufferSize: 64 * 1024, ReadBufferSize: 64 * 1024},
			TCPConf:    common.TCPConf{TCPNoDelay: true, TCPLingerSec: -1},
		},
	}))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSendReceivesResponse(t *testing.T) {
	srv := startEchoServer(t)
	c := connect(t, srv.Addr())

	for _, payload := range []string{"a", "bb", string(make([]byte, 4096))} {
		resp, err := c.Send([]byte(payload))
		require.NoError(t, err)
		assert.Equal(t, "echo:"+payload, string(resp))
	}
	assert.True(t, c.IsOpen())
}

func TestConnectTwiceFails(t *testing.T) {
	srv := startEchoServer(t)
	c := connect(t, srv.Addr())

	ep, err := common.ParseEndpoint(srv.Addr(), 500)
	require.NoError(t, err)
	assert.Error(t, c.Connect(common.ClientConfig{Endpoint: ep}))
}

func TestCloseIsIdempotent(t *testing.T) {
	srv := startEchoServer(t)
	c := connect(t, srv.Addr())

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.False(t, c.IsOpen())

	_, err := c.Send([]byte("x"))
	assert.ErrorIs(t, err, transport.ErrNotConnected)
	assert.True(t, transport.IsConnectionError(err))
}

func TestServerCloseBreaksConnection(t *testing.T) {
	srv := startEchoServer(t)
	c := connect(t, srv.Addr())

	_, err := c.Send([]byte("first"))
	require.NoError(t, err)

	require.NoError(t, srv.Close())

	_, err = c.Send([]byte("second"))
	require.Error(t, err)
	assert.ErrorIs(t, err, transport.ErrConnectionBroken)
	assert.False(t, c.IsOpen())
}

func TestConnectWithoutEndpointFails(t *testing.T) {
	c := NewTCPClientTransport()
	assert.Error(t, c.Connect(common.ClientConfig{}))
	assert.False(t, c.IsOpen())
}

func TestConnectUsesEndpointTimeout(t *testing.T) {
	errDial := errors.New("dial refused by test")

	var network, address string
	var timeout time.Duration
	connector := &clientConnector{dial: func(n, a string, d time.Duration) (net.Conn, error) {
		network, address, timeout = n, a, d
		return nil, errDial
	}}

	c := base.NewBaseClientTransport(connector)
	err := c.Connect(common.ClientConfig{Endpoint: common.NewEndpoint("posts.internal", 9000, 250)})
	require.ErrorIs(t, err, errDial)
	assert.False(t, c.IsOpen())

	assert.Equal(t, "tcp", network)
	assert.Equal(t, "posts.internal:9000", address)
	assert.Equal(t, 250*time.Millisecond, timeout)
}
