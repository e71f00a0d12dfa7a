package client

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/VictoriaMetrics/metrics"
	"github.com/buzzblog/postrpc/lib/post"
	"github.com/buzzblog/postrpc/rpc/common"
	"github.com/buzzblog/postrpc/rpc/transport"
)

// LatencyRecord describes one finished remote call
type LatencyRecord struct {
	Operation string
	Start     time.Time
	Elapsed   time.Duration
	Err       error
}

// Status returns "ok" for successful calls and "error" otherwise
func (r LatencyRecord) Status() string {
	if r.Err != nil {
		return "error"
	}
	return "ok"
}

// logLine formats the trace line of a call. Latency is given in seconds.
func (r LatencyRecord) logLine(requestID, server string) string {
	line := fmt.Sprintf("request_id=%s server=%s function=post:%s latency=%.9f status=%s",
		logValue(requestID), logValue(server), r.Operation, r.Elapsed.Seconds(), r.Status())
	if r.Err != nil {
		line += fmt.Sprintf(" err=%q", r.Err.Error())
	}
	return line
}

// logValue quotes v when it would not read back as a single key=value token
func logValue(v string) string {
	if v == "" || strings.ContainsFunc(v, func(r rune) bool {
		return r == '=' || r == '"' || unicode.IsSpace(r) || !unicode.IsPrint(r)
	}) {
		return strconv.Quote(v)
	}
	return v
}

// instrumented runs one remote call of c, timing it with the monotonic clock
// and emitting exactly one log line and metric sample once it returned.
// Calls rejected before reaching the network are neither timed nor logged.
func instrumented[T any](c *PostClient, meta post.RequestMetadata, op common.MessageType, call func() (T, error)) (T, error) {
	var zero T

	if c.closed.Load() {
		return zero, ErrClientClosed
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		return zero, ErrConcurrentCall
	}
	defer c.inFlight.Store(false)

	start := time.Now()
	result, err := call()
	rec := LatencyRecord{
		Operation: op.String(),
		Start:     start,
		Elapsed:   time.Since(start),
		Err:       err,
	}

	// A broken connection cannot be reused, the client is closed for good
	if err != nil && transport.IsConnectionError(err) {
		c.closed.Store(true)
		_ = c.transport.Close()
		err = &ConnectionError{Endpoint: c.endpoint, Op: op.String(), Err: err}
		rec.Err = err
	}

	c.record(meta, rec)

	if err != nil {
		return zero, err
	}
	return result, nil
}

// record writes the trace line and updates the call metrics
func (c *PostClient) record(meta post.RequestMetadata, rec LatencyRecord) {
	server := c.endpoint.Address()

	metrics.GetOrCreateHistogram(
		fmt.Sprintf(`postrpc_client_call_duration_seconds{operation=%q,server=%q}`, rec.Operation, server),
	).Update(rec.Elapsed.Seconds())

	if rec.Err != nil {
		metrics.GetOrCreateCounter(
			fmt.Sprintf(`postrpc_client_call_errors_total{operation=%q,server=%q}`, rec.Operation, server),
		).Inc()
		c.log.Warningf("%s", rec.logLine(meta.ID, server))
		return
	}
	c.log.Infof("%s", rec.logLine(meta.ID, server))
}
