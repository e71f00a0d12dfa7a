// Package common provides core data structures and utilities shared across
// the post RPC system. It defines the message protocol, the configuration
// structures and the logging setup used by the other packages.
//
// The package focuses on:
//   - Message protocol definition for client/server communication
//   - Configuration structures for client and server components
//   - Custom logging implementation integrated with Dragonboat's logger package
//
// Key Components:
//
//   - Message: Core data structure for all RPC communication, with a flexible
//     structure that adapts to the different operations of the Post service.
//     Includes factory methods for every request and response.
//
//   - MessageType: Enumeration of all supported operations. The string form of
//     a type is the remote function name used in the request trace.
//
//   - Endpoint: The immutable (host, port, connection timeout) triple a client
//     connects to.
//
//   - ClientConfig / ServerConfig: Connection parameters, timeouts and socket
//     tuning for clients and servers.
//
//   - Logger: Custom logging implementation that plugs into Dragonboat's
//     logger.ILogger while providing consistent formatting across the application.
package common
