package client

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/buzzblog/postrpc/lib/post"
	"github.com/buzzblog/postrpc/lib/post/mockpost"
	"github.com/buzzblog/postrpc/rpc/common"
	"github.com/buzzblog/postrpc/rpc/serializer"
	"github.com/buzzblog/postrpc/rpc/server"
	"github.com/buzzblog/postrpc/rpc/transport/tcp"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --------------------------------------------------------------------------
// Test doubles
// --------------------------------------------------------------------------

// recordingLogger keeps every line written at info level or above
type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) add(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+fmt.Sprintf(format, args...))
}

func (l *recordingLogger) SetLevel(logger.LogLevel)                 {}
func (l *recordingLogger) Debugf(string, ...interface{})            {}
func (l *recordingLogger) Infof(format string, args ...interface{}) { l.add("INFO", format, args...) }
func (l *recordingLogger) Warningf(format string, args ...interface{}) {
	l.add("WARN", format, args...)
}
func (l *recordingLogger) Errorf(format string, args ...interface{}) { l.add("ERROR", format, args...) }
func (l *recordingLogger) Panicf(format string, args ...interface{}) {
	panic(fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

// stubService answers with fixed records and can hold a call until released
type stubService struct {
	*mockpost.Service
	entered chan struct{}
	release chan struct{}
}

var fixedPost = post.Post{ID: 42, CreatedAt: 1700000000, Active: true, Text: "hello", AuthorID: 7}

func (s *stubService) RetrieveStandardPost(meta post.RequestMetadata, postID int32) (post.Post, error) {
	if s.release != nil {
		s.entered <- struct{}{}
		<-s.release
	}
	switch postID {
	case 42:
		return fixedPost, nil
	case 500:
		panic("boom")
	default:
		return post.Post{}, post.NewError(post.RetCNotFound, fmt.Sprintf("post %d not found", postID))
	}
}

func (s *stubService) ListPosts(post.RequestMetadata, post.PostQuery, int32, int32) ([]post.Post, error) {
	return []post.Post{{ID: 3, Text: "c"}, {ID: 1, Text: "a"}, {ID: 2, Text: "b"}}, nil
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// startServer runs an RPC server on a random loopback port and returns its endpoint
func startServer(t *testing.T, service post.IPostService, s serializer.IRPCSerializer) common.Endpoint {
	t.Helper()

	srv := server.NewRPCServer(
		common.ServerConfig{Transport: common.ServerTransportConfig{Endpoint: "127.0.0.1:0", TCPConf: common.TCPConf{TCPLingerSec: -1}}},
		tcp.NewTCPDefaultServerTransport(),
		s,
		service,
	)

	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()
	require.Eventually(t, func() bool { return srv.Addr() != "" }, 2*time.Second, 5*time.Millisecond)

	t.Cleanup(func() {
		_ = srv.Close()
		<-done
	})

	ep, err := common.ParseEndpoint(srv.Addr(), 500)
	require.NoError(t, err)
	return ep
}

func clientConfig(ep common.Endpoint) common.ClientConfig {
	return common.ClientConfig{
		Endpoint:      ep,
		TimeoutSecond: 5,
		Transport:     common.ClientTransportConfig{TCPConf: common.TCPConf{TCPNoDelay: true, TCPLingerSec: -1}},
	}
}

func newTestClient(t *testing.T, ep common.Endpoint, s serializer.IRPCSerializer) (*PostClient, *recordingLogger) {
	t.Helper()
	log := &recordingLogger{}
	c, err := NewPostClient(clientConfig(ep), tcp.NewTCPClientTransport(), s, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, log
}

// parseLine splits a trace line into its key value fields
func parseLine(line string) map[string]string {
	fields := map[string]string{}
	for _, part := range strings.Fields(line) {
		if k, v, ok := strings.Cut(part, "="); ok {
			fields[k] = v
		}
	}
	return fields
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestRetrieveStandardPostLogsOneLine(t *testing.T) {
	ep := startServer(t, &stubService{Service: mockpost.New()}, serializer.NewBinarySerializer())
	c, log := newTestClient(t, ep, serializer.NewBinarySerializer())

	meta := post.NewRequestMetadata("req-abc")
	p, err := c.RetrieveStandardPost(meta, 42)
	require.NoError(t, err)
	assert.Equal(t, fixedPost, p)

	lines := log.Lines()
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "INFO "))

	fields := parseLine(lines[0])
	assert.Equal(t, "req-abc", fields["request_id"])
	assert.Equal(t, ep.Address(), fields["server"])
	assert.Equal(t, "post:retrieve_standard_post", fields["function"])
	assert.Equal(t, "ok", fields["status"])

	latency, err := strconv.ParseFloat(fields["latency"], 64)
	require.NoError(t, err)
	assert.Greater(t, latency, 0.0)
}

func TestListPostsPreservesOrder(t *testing.T) {
	ep := startServer(t, &stubService{Service: mockpost.New()}, serializer.NewBinarySerializer())
	c, log := newTestClient(t, ep, serializer.NewBinarySerializer())

	posts, err := c.ListPosts(post.NewRequestMetadata("req-list"), post.PostQuery{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, []int32{3, 1, 2}, []int32{posts[0].ID, posts[1].ID, posts[2].ID})
	assert.Len(t, log.Lines(), 1)
}

func TestRemoteErrorIsReturnedAndLogged(t *testing.T) {
	ep := startServer(t, &stubService{Service: mockpost.New()}, serializer.NewBinarySerializer())
	c, log := newTestClient(t, ep, serializer.NewBinarySerializer())

	_, err := c.RetrieveStandardPost(post.NewRequestMetadata("req-missing"), 7)
	require.Error(t, err)
	assert.ErrorIs(t, err, post.ErrNotFound)

	var perr *post.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "post 7 not found", perr.Msg)

	lines := log.Lines()
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "WARN "))
	fields := parseLine(lines[0])
	assert.Equal(t, "req-missing", fields["request_id"])
	assert.Equal(t, "error", fields["status"])

	// a remote error leaves the connection usable
	assert.True(t, c.IsOpen())
	_, err = c.RetrieveStandardPost(post.NewRequestMetadata("req-ok"), 42)
	assert.NoError(t, err)

	errCounter := metrics.GetOrCreateCounter(
		fmt.Sprintf(`postrpc_client_call_errors_total{operation="retrieve_standard_post",server=%q}`, ep.Address()),
	)
	assert.GreaterOrEqual(t, errCounter.Get(), uint64(1))
}

func TestServerPanicBecomesInternalError(t *testing.T) {
	ep := startServer(t, &stubService{Service: mockpost.New()}, serializer.NewBinarySerializer())
	c, _ := newTestClient(t, ep, serializer.NewBinarySerializer())

	_, err := c.RetrieveStandardPost(post.NewRequestMetadata("req-panic"), 500)
	var perr *post.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, post.RetCInternalError, perr.Code)
	assert.True(t, c.IsOpen())
}

func TestNonUTF8TextOverJSONIsRejectedLocally(t *testing.T) {
	const text = "caf\xe9 \xff"

	svc := mockpost.New(mockpost.WithAccounts(post.Account{ID: 7, Username: "alice", Active: true}))
	ep := startServer(t, svc, serializer.NewJSONSerializer())
	c, log := newTestClient(t, ep, serializer.NewJSONSerializer())

	meta := post.NewRequestMetadata("req-utf8").WithRequester(7)
	_, err := c.CreatePost(meta, text)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConnection)
	assert.True(t, c.IsOpen())
	assert.Equal(t, 0, svc.Len())

	lines := log.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "error", parseLine(lines[0])["status"])

	// The client is still usable afterwards
	created, err := c.CreatePost(meta, "cafe")
	require.NoError(t, err)
	assert.Equal(t, "cafe", created.Text)
}

func TestNonUTF8TextOverBinaryIsPreserved(t *testing.T) {
	const text = "caf\xe9 \xff"

	svc := mockpost.New(mockpost.WithAccounts(post.Account{ID: 7, Username: "alice", Active: true}))
	ep := startServer(t, svc, serializer.NewBinarySerializer())
	c, _ := newTestClient(t, ep, serializer.NewBinarySerializer())

	meta := post.NewRequestMetadata("req-bytes").WithRequester(7)
	created, err := c.CreatePost(meta, text)
	require.NoError(t, err)
	assert.Equal(t, text, created.Text)

	got, err := c.RetrieveStandardPost(meta, created.ID)
	require.NoError(t, err)
	assert.Equal(t, text, got.Text)
}

func TestAllOperationsAllSerializers(t *testing.T) {
	factories := map[string]func() serializer.IRPCSerializer{
		"Binary": serializer.NewBinarySerializer,
		"GOB":    serializer.NewGOBSerializer,
		"JSON":   serializer.NewJSONSerializer,
	}

	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			svc := mockpost.New(mockpost.WithAccounts(post.Account{ID: 7, Username: "alice", Active: true}))
			ep := startServer(t, svc, factory())
			c, log := newTestClient(t, ep, factory())

			meta := post.NewRequestMetadata("req-" + name).WithRequester(7)

			// empty list is not nil
			posts, err := c.ListPosts(meta, post.ByAuthor(7), 10, 0)
			require.NoError(t, err)
			require.NotNil(t, posts)
			assert.Empty(t, posts)

			first, err := c.CreatePost(meta, "first")
			require.NoError(t, err)
			second, err := c.CreatePost(meta, "second")
			require.NoError(t, err)
			assert.Equal(t, int32(7), second.AuthorID)

			std, err := c.RetrieveStandardPost(meta, first.ID)
			require.NoError(t, err)
			assert.Equal(t, "first", std.Text)
			assert.False(t, std.IsExpanded())

			svc.SetLikes(first.ID, 3)
			exp, err := c.RetrieveExpandedPost(meta, first.ID)
			require.NoError(t, err)
			require.True(t, exp.IsExpanded())
			assert.Equal(t, "alice", exp.Author.Username)
			assert.Equal(t, int32(3), exp.NLikes)

			posts, err = c.ListPosts(meta, post.ByAuthor(7), 10, 0)
			require.NoError(t, err)
			require.Len(t, posts, 2)
			assert.Equal(t, second.ID, posts[0].ID)
			assert.Equal(t, first.ID, posts[1].ID)

			n, err := c.CountPostsByAuthor(meta, 7)
			require.NoError(t, err)
			assert.Equal(t, int32(2), n)

			err = c.DeletePost(post.NewRequestMetadata("req-other").WithRequester(8), first.ID)
			assert.ErrorIs(t, err, post.ErrNotAuthorized)

			require.NoError(t, c.DeletePost(meta, first.ID))
			_, err = c.RetrieveStandardPost(meta, first.ID)
			assert.ErrorIs(t, err, post.ErrNotFound)

			_, err = c.CreatePost(meta, "")
			assert.ErrorIs(t, err, post.ErrInvalidAttributes)

			// one line per call
			lines := log.Lines()
			require.Len(t, lines, 11)
			wantOps := []string{
				"list_posts", "create_post", "create_post", "retrieve_standard_post",
				"retrieve_expanded_post", "list_posts", "count_posts_by_author",
				"delete_post", "delete_post", "retrieve_standard_post", "create_post",
			}
			for i, op := range wantOps {
				assert.Equal(t, "post:"+op, parseLine(lines[i])["function"], "line %d", i)
			}
		})
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	ep := startServer(t, mockpost.New(), serializer.NewBinarySerializer())
	c, log := newTestClient(t, ep, serializer.NewBinarySerializer())

	assert.True(t, c.IsOpen())
	assert.NoError(t, c.Close())
	assert.False(t, c.IsOpen())
	assert.NoError(t, c.Close())

	_, err := c.CountPostsByAuthor(post.NewRequestMetadata("req-closed"), 1)
	assert.ErrorIs(t, err, ErrClientClosed)
	assert.Empty(t, log.Lines())
}

func TestConnectFailure(t *testing.T) {
	// reserve a port and free it again, nothing listens there afterwards
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ep, err := common.ParseEndpoint(addr, 100)
	require.NoError(t, err)

	c, err := NewPostClient(clientConfig(ep), tcp.NewTCPClientTransport(), serializer.NewBinarySerializer(), &recordingLogger{})
	require.Error(t, err)
	assert.Nil(t, c)
	assert.ErrorIs(t, err, ErrConnection)

	var cerr *ConnectionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "connect", cerr.Op)
	assert.Equal(t, ep, cerr.Endpoint)
}

func TestBrokenConnectionClosesClient(t *testing.T) {
	srv := server.NewRPCServer(
		common.ServerConfig{Transport: common.ServerTransportConfig{Endpoint: "127.0.0.1:0"}},
		tcp.NewTCPDefaultServerTransport(),
		serializer.NewBinarySerializer(),
		mockpost.New(),
	)
	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()
	require.Eventually(t, func() bool { return srv.Addr() != "" }, 2*time.Second, 5*time.Millisecond)

	ep, err := common.ParseEndpoint(srv.Addr(), 500)
	require.NoError(t, err)
	c, log := newTestClient(t, ep, serializer.NewBinarySerializer())

	meta := post.NewRequestMetadata("req-broken")
	_, err = c.CountPostsByAuthor(meta, 1)
	require.NoError(t, err)

	require.NoError(t, srv.Close())
	require.NoError(t, <-done)

	_, err = c.CountPostsByAuthor(meta, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
	assert.False(t, c.IsOpen())

	_, err = c.CountPostsByAuthor(meta, 1)
	assert.ErrorIs(t, err, ErrClientClosed)

	lines := log.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "error", parseLine(lines[1])["status"])
}

func TestCallTimeout(t *testing.T) {
	svc := &stubService{Service: mockpost.New(), entered: make(chan struct{}, 1), release: make(chan struct{})}
	ep := startServer(t, svc, serializer.NewBinarySerializer())
	t.Cleanup(func() { close(svc.release) })

	config := clientConfig(ep)
	config.TimeoutSecond = 1
	c, err := NewPostClient(config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer(), &recordingLogger{})
	require.NoError(t, err)
	defer c.Close()

	_, err = c.RetrieveStandardPost(post.NewRequestMetadata("req-slow"), 42)
	var cerr *ConnectionError
	require.ErrorAs(t, err, &cerr)
	assert.True(t, cerr.Timeout())
	assert.Equal(t, "retrieve_standard_post", cerr.Op)
	assert.False(t, c.IsOpen())
}

func TestConcurrentCallIsRejected(t *testing.T) {
	svc := &stubService{Service: mockpost.New(), entered: make(chan struct{}, 1), release: make(chan struct{})}
	ep := startServer(t, svc, serializer.NewBinarySerializer())
	c, log := newTestClient(t, ep, serializer.NewBinarySerializer())

	result := make(chan error, 1)
	go func() {
		_, err := c.RetrieveStandardPost(post.NewRequestMetadata("req-first"), 42)
		result <- err
	}()

	<-svc.entered
	_, err := c.CountPostsByAuthor(post.NewRequestMetadata("req-second"), 1)
	assert.ErrorIs(t, err, ErrConcurrentCall)

	close(svc.release)
	require.NoError(t, <-result)

	// the rejected call left no trace
	lines := log.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "req-first", parseLine(lines[0])["request_id"])
}

func TestWithPostClient(t *testing.T) {
	ep := startServer(t, mockpost.New(), serializer.NewBinarySerializer())
	config := clientConfig(ep)

	t.Run("closes after success", func(t *testing.T) {
		var client *PostClient
		err := WithPostClient(config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer(), &recordingLogger{},
			func(c *PostClient) error {
				client = c
				_, err := c.CountPostsByAuthor(post.NewRequestMetadata("req-scope"), 1)
				return err
			})
		require.NoError(t, err)
		assert.False(t, client.IsOpen())
	})

	t.Run("returns the error of fn", func(t *testing.T) {
		var client *PostClient
		want := errors.New("fn failed")
		err := WithPostClient(config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer(), &recordingLogger{},
			func(c *PostClient) error {
				client = c
				return want
			})
		assert.ErrorIs(t, err, want)
		assert.False(t, client.IsOpen())
	})

	t.Run("closes on panic", func(t *testing.T) {
		var client *PostClient
		assert.Panics(t, func() {
			_ = WithPostClient(config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer(), &recordingLogger{},
				func(c *PostClient) error {
					client = c
					panic("boom")
				})
		})
		require.NotNil(t, client)
		assert.False(t, client.IsOpen())
	})
}

func TestNilLoggerFallsBack(t *testing.T) {
	ep := startServer(t, mockpost.New(), serializer.NewBinarySerializer())
	c, err := NewPostClient(clientConfig(ep), tcp.NewTCPClientTransport(), serializer.NewBinarySerializer(), nil)
	require.NoError(t, err)
	defer c.Close()

	assert.NotNil(t, c.log)
	assert.Equal(t, ep, c.Endpoint())
}

func TestConnectionErrorTimeout(t *testing.T) {
	assert.True(t, (&ConnectionError{Err: os.ErrDeadlineExceeded}).Timeout())
	assert.True(t, (&ConnectionError{Err: fmt.Errorf("read: %w", os.ErrDeadlineExceeded)}).Timeout())
	assert.False(t, (&ConnectionError{Err: errors.New("refused")}).Timeout())
}

func TestLatencyRecordLogLine(t *testing.T) {
	rec := LatencyRecord{Operation: "delete_post", Elapsed: 1500 * time.Microsecond}
	assert.Equal(t, "request_id=r1 server=h:1 function=post:delete_post latency=0.001500000 status=ok", rec.logLine("r1", "h:1"))

	rec.Err = errors.New("gone")
	assert.Equal(t, `request_id=r1 server=h:1 function=post:delete_post latency=0.001500000 status=error err="gone"`, rec.logLine("r1", "h:1"))

	// Ids that would split or fake a field are quoted
	rec.Err = nil
	for id, want := range map[string]string{
		"":                   `request_id=""`,
		"a b":                `request_id="a b"`,
		"x status=ok":        `request_id="x status=ok"`,
		`say "hi"`:           `request_id="say \"hi\""`,
		"tab\tid":            `request_id="tab\tid"`,
		"4b7c9b52-ab12-cd34": `request_id=4b7c9b52-ab12-cd34`,
	} {
		line := rec.logLine(id, "h:1")
		assert.True(t, strings.HasPrefix(line, want+" server=h:1 "), "id %q gave %s", id, line)
	}
}

// captureService records the arguments of the last ListPosts call
type captureService struct {
	*mockpost.Service
	mu     sync.Mutex
	meta   post.RequestMetadata
	query  post.PostQuery
	limit  int32
	offset int32
}

func (s *captureService) ListPosts(meta post.RequestMetadata, query post.PostQuery, limit, offset int32) ([]post.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta, s.query, s.limit, s.offset = meta, query, limit, offset
	return []post.Post{}, nil
}

func TestArgumentsForwardedUnchanged(t *testing.T) {
	svc := &captureService{Service: mockpost.New()}
	ep := startServer(t, svc, serializer.NewBinarySerializer())
	c, _ := newTestClient(t, ep, serializer.NewBinarySerializer())

	meta := post.NewRequestMetadata("req-forward").WithRequester(11)
	query := post.ByAuthor(4)
	_, err := c.ListPosts(meta, query, 25, 50)
	require.NoError(t, err)

	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.Equal(t, meta, svc.meta)
	assert.Equal(t, query, svc.query)
	assert.Equal(t, int32(25), svc.limit)
	assert.Equal(t, int32(50), svc.offset)
}

func TestConnectToUnroutableAddressIsBounded(t *testing.T) {
	const addr = "10.255.255.1:9"
	const connTimeout = 100 * time.Millisecond

	// Only meaningful where the address black-holes the SYN
	conn, err := net.DialTimeout("tcp", addr, connTimeout)
	if err == nil {
		_ = conn.Close()
		t.Skipf("%s is reachable from this host", addr)
	}
	var nerr net.Error
	if !errors.As(err, &nerr) || !nerr.Timeout() {
		t.Skipf("%s is rejected without a timeout: %v", addr, err)
	}

	ep, err := common.ParseEndpoint(addr, int(connTimeout/time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	_, err = NewPostClient(clientConfig(ep), tcp.NewTCPClientTransport(), serializer.NewBinarySerializer(), &recordingLogger{})
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrConnection)
	var cerr *ConnectionError
	require.ErrorAs(t, err, &cerr)
	assert.True(t, cerr.Timeout(), "expected a dial timeout, got %v", err)
	assert.Less(t, elapsed, connTimeout+400*time.Millisecond)
}
