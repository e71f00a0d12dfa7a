// Package rpc provides the remote procedure call layer between clients of the
// post service and the service itself.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC system,
//     including the Message protocol, configuration structures, and logging.
//
//   - transport: Network communication abstractions with pluggable implementations
//     (TCP, Unix sockets).
//
//   - serializer: Message serialization with multiple format options (Binary, JSON, GOB)
//     for converting between Message objects and byte arrays.
//
//   - client: The instrumented post client. Every call is timed and traced with
//     one log line carrying the request id of the caller.
//
//   - server: RPC server dispatching requests to a post.IPostService.
package rpc
