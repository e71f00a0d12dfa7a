// Package client implements the RPC client of the post service.
// PostClient implements post.IPostService by forwarding every operation to a
// remote server over a single connection.
//
// Every call goes through the same wrapper: the call is timed with the
// monotonic clock and, once the response (or error) arrived, exactly one log
// line is written:
//
//	request_id=<id> server=<host:port> function=post:<op> latency=<seconds> status=<ok|error>
//
// The line is logged at info level for successful calls and at warning level
// (with an err field) for failed ones. The latency also feeds the
// postrpc_client_call_duration_seconds histogram of the VictoriaMetrics default set.
//
// Errors:
//
//   - *ConnectionError: the connection could not be established or broke during a
//     call. It matches ErrConnection and its Timeout method reports deadline causes.
//     A broken connection closes the client.
//
//   - *post.Error: the remote service rejected the call. It is returned unchanged.
//
//   - ErrClientClosed, ErrConcurrentCall: the call was rejected locally and never sent.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  Endpoint:      common.NewEndpoint("localhost", 9000, 500),
//	  TimeoutSecond: 5,
//	}
//
//	err := client.WithPostClient(config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer(), nil,
//	  func(c *client.PostClient) error {
//	    p, err := c.RetrieveStandardPost(post.NewRequestMetadata("req-1"), 42)
//	    if err != nil {
//	      return err
//	    }
//	    fmt.Println(p.Text)
//	    return nil
//	  })
//
// Thread Safety:
//
//	A PostClient allows one call at a time. Overlapping calls fail with
//	ErrConcurrentCall; use one client per goroutine. Close may be called from any goroutine.
package client
