package tcp

import (
	"net"
	"time"

	"github.com/buzzblog/postrpc/rpc/common"
	"github.com/buzzblog/postrpc/rpc/transport"
	"github.com/buzzblog/postrpc/rpc/transport/base"
)

// dialFunc opens a connection and gives up once timeout has passed
type dialFunc func(network, address string, timeout time.Duration) (net.Conn, error)

// clientConnector implements the IClientConnector interface for TCP sockets
type clientConnector struct {
	dial dialFunc
}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "tcp"
}

func (c *clientConnector) Connect(endpoint common.Endpoint) (net.Conn, error) {
	return c.dial("tcp", endpoint.Address(), endpoint.ConnTimeout())
}

func (c *clientConnector) UpgradeConnection(conn net.Conn, config common.ClientConfig) error {
	return upgradeTCPConn(conn, config.Transport.SocketConf, config.Transport.TCPConf)
}

// --------------------------------------------------------------------------
// Client Transport Factory Method
// --------------------------------------------------------------------------

// NewTCPClientTransport creates a new TCP client transport
func NewTCPClientTransport() transport.IRPCClientTransport {
	return base.NewBaseClientTransport(&clientConnector{dial: net.DialTimeout})
}
