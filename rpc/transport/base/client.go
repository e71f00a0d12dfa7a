package base

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/buzzblog/postrpc/rpc/common"
	"github.com/buzzblog/postrpc/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger(common.LoggerTransport)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the endpoint, bounded by its connection timeout
	Connect(endpoint common.Endpoint) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// clientTransport implements the core client transport functionality
// independent of the specific transport medium (unix, tcp, etc.)
//
// It owns exactly one connection and exchanges one frame pair per Send.
// Any I/O failure closes the connection: the stream position is unknown
// afterwards, so reusing it could hand a stale response to the next caller.
type clientTransport struct {
	connector     IClientConnector
	config        common.ClientConfig
	conn          net.Conn
	connMu        sync.Mutex // Protects conn and serializes Send
	nextRequestID uint64
	header        []byte // Reused header buffer for reading frames
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{
		connector: connector,
		header:    make([]byte, frameHeaderSize),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if config.Endpoint.Host == "" {
		return fmt.Errorf("no endpoint provided")
	}

	t.connMu.Lock()
	defer t.connMu.Unlock()

	if t.conn != nil {
		return fmt.Errorf("already connected to %s", t.config.Endpoint)
	}

	// Connect to the endpoint
	conn, err := t.connector.Connect(config.Endpoint)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", config.Endpoint, err)
	}

	// Upgrade the connection with protocol-specific settings
	if err := t.connector.UpgradeConnection(conn, config); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to upgrade connection to %s: %w", config.Endpoint, err)
	}

	t.config = config
	t.conn = conn

	Logger.Debugf("Connected to %s using %s transport", config.Endpoint, t.connector.GetName())
	return nil
}

func (t *clientTransport) Send(req []byte) ([]byte, error) {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	// Test if connection is still valid
	if t.conn == nil {
		return nil, transport.ErrNotConnected
	}

	t.nextRequestID++
	requestID := t.nextRequestID

	// Set the deadline for the whole exchange
	if timeout := t.config.CallTimeout(); timeout > 0 {
		if err := t.conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			return nil, t.fail("set deadline", err)
		}
	}

	if err := writeFrame(t.conn, requestID, req); err != nil {
		return nil, t.fail("write request", err)
	}

	respID, data, err := readFrame(t.conn, t.header)
	if err != nil {
		return nil, t.fail("read response", err)
	}

	// The server answers in order, a different id means the stream is out of sync
	if respID != requestID {
		return nil, t.fail("read response", fmt.Errorf("unexpected request id %d, expected %d", respID, requestID))
	}

	// The header buffer is reused, so the payload must not alias it
	if len(data) > 0 && &data[0] == &t.header[0] {
		data = append([]byte(nil), data...)
	}

	return data, nil
}

func (t *clientTransport) IsOpen() bool {
	t.connMu.Lock()
	defer t.connMu.Unlock()
	return t.conn != nil
}

func (t *clientTransport) Close() error {
	t.connMu.Lock()
	defer t.connMu.Unlock()
	return t.closeLocked()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// closeLocked closes the connection, connMu must be held
func (t *clientTransport) closeLocked() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

// fail closes the broken connection and wraps err as a connection error
func (t *clientTransport) fail(op string, err error) error {
	Logger.Warningf("Closing connection to %s after failed %s: %v", t.config.Endpoint, op, err)
	_ = t.closeLocked()
	return fmt.Errorf("%w: %s %s: %w", transport.ErrConnectionBroken, op, t.config.Endpoint, err)
}
