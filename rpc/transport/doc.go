// Package transport defines the interfaces and abstractions for RPC communication
// with the Post service. It provides a common contract that all transport
// implementations must fulfill, enabling protocol-agnostic communication.
//
// The package focuses on:
//   - Defining clear interfaces for client and server transport layers
//   - A connection lifecycle (Connect, IsOpen, Close) the client adapter builds on
//   - Classifying connection level failures (ErrNotConnected, ErrConnectionBroken)
//
// Key Components:
//
//   - IRPCClientTransport: Interface for client-side transport implementations that
//     hold one connection and exchange one request/response pair at a time.
//
//   - IRPCServerTransport: Interface for server-side transport implementations that
//     receive requests and pass them to the registered handler.
//
//   - ServerHandleFunc: Function type for request handling callbacks.
package transport
