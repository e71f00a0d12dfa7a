package common

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Endpoint
// --------------------------------------------------------------------------

// Endpoint fixes where a client connects. It is set once when the client is
// created and never changes afterwards.
type Endpoint struct {
	// Host is a hostname or ip address (or a socket path for unix transports)
	Host string
	// Port is the port of the server, ignored by unix transports
	Port int
	// ConnTimeoutMillisecond bounds the time to establish the connection (0 = no limit)
	ConnTimeoutMillisecond int
}

// NewEndpoint creates a new endpoint
func NewEndpoint(host string, port int, connTimeoutMs int) Endpoint {
	return Endpoint{
		Host:                   host,
		Port:                   port,
		ConnTimeoutMillisecond: connTimeoutMs,
	}
}

// ParseEndpoint parses an endpoint in the form host:port. An input without a
// port is returned as a host only endpoint (e.g. a unix socket path).
func ParseEndpoint(s string, connTimeoutMs int) (Endpoint, error) {
	if !strings.Contains(s, ":") {
		return NewEndpoint(s, 0, connTimeoutMs), nil
	}
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid endpoint %q: %w", s, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return Endpoint{}, fmt.Errorf("invalid port in endpoint %q", s)
	}
	return NewEndpoint(host, port, connTimeoutMs), nil
}

// Address returns the dial address of the endpoint (host:port, or host if no port is set)
func (e Endpoint) Address() string {
	if e.Port <= 0 {
		return e.Host
	}
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// ConnTimeout returns the connection timeout as a duration
func (e Endpoint) ConnTimeout() time.Duration {
	return time.Duration(e.ConnTimeoutMillisecond) * time.Millisecond
}

// String implements fmt.Stringer
func (e Endpoint) String() string {
	return e.Address()
}

// --------------------------------------------------------------------------
// Socket configuration shared by client and server
// --------------------------------------------------------------------------

// SocketConf holds buffer settings applied to every socket
type SocketConf struct {
	WriteBufferSize int // in bytes, 0 = os default
	ReadBufferSize  int // in bytes, 0 = os default
}

// TCPConf holds settings only applied to tcp sockets
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int // 0 = disabled
	TCPLingerSec    int // < 0 = os default
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientTransportConfig holds the transport specific client settings
type ClientTransportConfig struct {
	SocketConf
	TCPConf
}

// ClientConfig holds all parameters of a post client
type ClientConfig struct {
	// Endpoint is the remote post service
	Endpoint Endpoint
	// TimeoutSecond bounds every read and write on the connection (0 = no limit)
	TimeoutSecond int
	// Transport settings
	Transport ClientTransportConfig
}

// CallTimeout returns the per call read/write timeout as a duration
func (c *ClientConfig) CallTimeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Endpoint", c.Endpoint.Address())
	addField("Connect Timeout", fmt.Sprintf("%d ms", c.Endpoint.ConnTimeoutMillisecond))
	addField("Call Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))

	// Socket Settings
	addSection("Transport")
	addField("Write Buffer", fmt.Sprintf("%d bytes", c.Transport.WriteBufferSize))
	addField("Read Buffer", fmt.Sprintf("%d bytes", c.Transport.ReadBufferSize))
	addField("TCP NoDelay", strconv.FormatBool(c.Transport.TCPNoDelay))
	addField("TCP KeepAlive", fmt.Sprintf("%d sec", c.Transport.TCPKeepAliveSec))
	addField("TCP Linger", fmt.Sprintf("%d sec", c.Transport.TCPLingerSec))

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerTransportConfig holds the transport specific server settings
type ServerTransportConfig struct {
	Endpoint          string
	BufferSize        int
	MaxWorkersPerConn int
	SocketConf
	TCPConf
}

// ServerConfig holds all parameters of an RPC server
type ServerConfig struct {
	// TimeoutSecond bounds every read and write on a connection (0 = no limit)
	TimeoutSecond int64

	// Transport settings
	Transport ServerTransportConfig

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Buffer Size", fmt.Sprintf("%d bytes", c.Transport.BufferSize))
	addField("Workers Per Conn", strconv.Itoa(c.Transport.MaxWorkersPerConn))

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
