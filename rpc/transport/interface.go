package transport

import (
	"errors"

	"github.com/buzzblog/postrpc/rpc/common"
)

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

var (
	// ErrNotConnected is returned by Send if the transport holds no open connection
	ErrNotConnected = errors.New("transport is not connected")
	// ErrConnectionBroken is returned if the connection failed during a request.
	// The transport closes the connection before returning it, so it must be reconnected
	ErrConnectionBroken = errors.New("connection broken")
)

// IsConnectionError reports whether err means the connection is unusable
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrNotConnected) || errors.Is(err, ErrConnectionBroken)
}

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming requests
// This function is called by a server transport layer when a request is received
// It takes a request as parameter and returns a response
type ServerHandleFunc func(req []byte) (resp []byte)

// IRPCServerTransport is the interface for the RPC transport layer
// It must accept a ServerConfig as a parameter
type IRPCServerTransport interface {
	// RegisterHandler registers a handler for the transport layer
	// This handler should be called when a request is received
	RegisterHandler(handler ServerHandleFunc)
	// Listen starts the transport layer and listens for incoming requests
	// It blocks until the transport is closed
	Listen(config common.ServerConfig) error
	// Addr returns the address the transport listens on, or an empty string if it is not listening yet
	Addr() string
	// Close stops listening and closes all open connections
	Close() error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport.
// A client transport holds a single connection and is not safe for concurrent Send calls.
type IRPCClientTransport interface {
	// Connect opens the connection to config.Endpoint, bounded by its connection timeout
	Connect(config common.ClientConfig) error
	// Send sends a request to the server and blocks until the response arrives
	Send(req []byte) (resp []byte, err error)
	// IsOpen reports whether the transport holds an open connection
	IsOpen() bool
	// Close closes the transport connection. Closing a closed transport is a no-op
	Close() error
}
