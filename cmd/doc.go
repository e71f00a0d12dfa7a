// Package cmd implements the command-line interface postctl. It provides a
// hierarchical command structure for calling a remote post service and for
// running a local in-memory one.
//
// The package is organized into several subpackages:
//
//   - posts: Commands calling the post service (create, get, expanded, delete, list, count, perf)
//   - serve: Command starting an RPC server backed by an in-memory post service
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See postctl -help for a list of all commands.
package cmd
