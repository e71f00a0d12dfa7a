// Package server implements the RPC server side of the post protocol.
// It decodes request frames, routes them by message type to an adapter and
// lets the adapter call an injected post.IPostService. The server holds no
// business logic of its own; the in-memory mockpost service is used for
// tests and local runs.
//
// Key Components:
//
//   - IRPCServerAdapter: Interface for adapters, each announcing the message
//     types it handles.
//
//   - NewPostServerAdapter: Translates post requests to post.IPostService calls
//     and encodes *post.Error codes into the response.
//
//   - NewRPCServer: Creates a server with the specified transport, serializer
//     and service.
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  Transport:     common.ServerTransportConfig{Endpoint: "0.0.0.0:9000"},
//	  TimeoutSecond: 5,
//	  LogLevel:      "info",
//	}
//
//	s := server.NewRPCServer(
//	  config,
//	  tcp.NewTCPDefaultServerTransport(),
//	  serializer.NewBinarySerializer(),
//	  mockpost.New(),
//	)
//
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Thread Safety:
//
//	Requests are processed concurrently across connections, so the service
//	must be safe for concurrent use. Serve should be called only once.
package server
