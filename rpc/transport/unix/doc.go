// Package unix implements Unix domain socket transport for the post RPC system.
// It is meant for clients and servers on the same host, where it avoids the
// TCP stack entirely.
//
// The endpoint host holds the socket path; the port is ignored. The server
// removes a stale socket file before listening.
package unix
