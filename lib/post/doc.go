// Package post defines the domain model of the remote Post service and the
// IPostService contract every implementation (remote client or local) fulfills.
//
// The package focuses on:
//   - The records exchanged with the Post service (Post, Account, PostQuery)
//   - The correlation context threaded through every call (RequestMetadata)
//   - A structured error type carrying the remote failure class (Error, RetCode)
//
// Implementations:
//
//   - RPC client: "github.com/buzzblog/postrpc/rpc/client" provides PostClient,
//     which forwards every operation to a remote server and records its latency.
//
//   - Mock service: "github.com/buzzblog/postrpc/lib/post/mockpost" is a
//     thread-safe in-memory implementation used by tests and the serve command.
package post
