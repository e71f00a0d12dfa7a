package client

import (
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/buzzblog/postrpc/rpc/common"
)

var (
	// ErrConnection matches every *ConnectionError with errors.Is
	ErrConnection = errors.New("post service connection error")
	// ErrClientClosed is returned by calls on a closed client
	ErrClientClosed = errors.New("post client is closed")
	// ErrConcurrentCall is returned if a call is started while another call of the same client is in flight
	ErrConcurrentCall = errors.New("post client does not support concurrent calls")
)

// ConnectionError reports that the connection to the post service could not
// be established or broke during a call. The client is closed afterwards.
type ConnectionError struct {
	Endpoint common.Endpoint
	Op       string // "connect" or the name of the remote function
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("post client: %s %s: %v", e.Op, e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrConnection) match any connection error
func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnection
}

// Timeout reports whether the error was caused by the connection or call timeout
func (e *ConnectionError) Timeout() bool {
	if errors.Is(e.Err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}
