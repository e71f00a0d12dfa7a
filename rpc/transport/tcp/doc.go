// Package tcp implements TCP socket-based transport for the post RPC system.
// It provides concrete implementations of the base package's connector
// interfaces for TCP connections.
//
// This package builds on the base package's transport functionality, inheriting its
// framing, buffer reuse and connection lifecycle. See the base package documentation
// for detailed information on the underlying transport mechanisms.
//
// Key Components:
//
//   - clientConnector: TCP-specific implementation of base.IClientConnector. The
//     dial is bounded by the endpoint's connection timeout.
//
//   - serverConnector: TCP-specific implementation of base.IServerConnector
//
// Both sides apply the socket options of SocketConf and TCPConf (no delay, keep
// alive, linger and buffer sizes). The default server buffer size is 512 KB.
package tcp
