// Package base provides the foundation for the post RPC transport layers,
// implementing framing and connection handling independent of the specific
// network protocol (TCP, Unix sockets). Protocol specifics are injected as
// connectors.
//
// Key Components:
//
//   - IClientConnector/IServerConnector: Interfaces for protocol-specific operations
//     (dialing, listening and socket tuning).
//
//   - clientTransport: Client implementation owning exactly one connection. Each
//     Send writes one request frame and blocks for the matching response frame.
//     There is no pooling, no retry and no reconnect: an I/O failure closes the
//     connection and Send reports transport.ErrConnectionBroken.
//
//   - serverTransport: Server implementation that accepts connections and hands
//     every request frame to the registered handler. Requests of one connection
//     are processed by a bounded set of workers.
//
// Frame format (big endian):
//
//	+-------------------+-------------------+------------------+
//	| request id (8 B)  | payload len (4 B) | payload (N B)    |
//	+-------------------+-------------------+------------------+
//
// The server answers with the request id of the request, which lets the client
// detect a desynchronized stream. Payloads above MaxFrameSize are rejected.
//
// Performance Optimizations:
//
//   - Buffer Pooling: The server uses a sync.Pool to reuse read buffers.
//
//   - Frame Batching: Frames are written with net.Buffers, combining header and
//     payload into a single write.
//
// Thread Safety:
//
//	All public methods are safe for concurrent use. Concurrent Send calls on one
//	client transport are serialized by a mutex.
package base
