package client

import (
	"errors"
	"sync/atomic"

	"github.com/buzzblog/postrpc/lib/post"
	"github.com/buzzblog/postrpc/rpc/common"
	"github.com/buzzblog/postrpc/rpc/serializer"
	"github.com/buzzblog/postrpc/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

// PostClient is the client of one remote post service. It owns a single
// connection and allows one call at a time. Every call is timed and traced
// with one log line carrying the request id of the caller.
type PostClient struct {
	endpoint   common.Endpoint
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
	log        logger.ILogger
	closed     atomic.Bool
	inFlight   atomic.Bool
}

var _ post.IPostService = (*PostClient)(nil)

// NewPostClient connects to config.Endpoint and returns an open client
// The connection attempt is bounded by the endpoint's connection timeout. If it
// fails a *ConnectionError is returned. A nil log uses the "post-client" logger.
func NewPostClient(
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
	log logger.ILogger,
) (*PostClient, error) {
	if transport == nil || serializer == nil {
		return nil, errors.New("post client: transport and serializer are required")
	}
	if log == nil {
		log = logger.GetLogger(common.LoggerClient)
	}

	// Connect the transport
	if err := transport.Connect(config); err != nil {
		return nil, &ConnectionError{Endpoint: config.Endpoint, Op: "connect", Err: err}
	}

	return &PostClient{
		endpoint:   config.Endpoint,
		transport:  transport,
		serializer: serializer,
		log:        log,
	}, nil
}

// WithPostClient creates a client, passes it to fn and closes it when fn
// returns or panics. The error of fn takes precedence over the close error.
func WithPostClient(
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
	log logger.ILogger,
	fn func(c *PostClient) error,
) (err error) {
	c, err := NewPostClient(config, transport, serializer, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(c)
}

// Close releases the connection. Closing a closed client is a no-op.
func (c *PostClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.transport.Close()
}

// IsOpen reports whether the client can still be used
func (c *PostClient) IsOpen() bool {
	return !c.closed.Load() && c.transport.IsOpen()
}

// Endpoint returns the endpoint the client is connected to
func (c *PostClient) Endpoint() common.Endpoint {
	return c.endpoint
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the post package in interface.go)
// --------------------------------------------------------------------------

func (c *PostClient) CreatePost(meta post.RequestMetadata, text string) (post.Post, error) {
	return instrumented(c, meta, common.MsgTCreatePost, func() (post.Post, error) {
		resp, err := invokeRPCRequest(common.NewCreatePostRequest(meta, text), c.transport, c.serializer)
		if err != nil {
			return post.Post{}, err
		}
		return singlePost(resp)
	})
}

func (c *PostClient) RetrieveStandardPost(meta post.RequestMetadata, postID int32) (post.Post, error) {
	return instrumented(c, meta, common.MsgTRetrieveStandardPost, func() (post.Post, error) {
		resp, err := invokeRPCRequest(common.NewRetrieveStandardPostRequest(meta, postID), c.transport, c.serializer)
		if err != nil {
			return post.Post{}, err
		}
		return singlePost(resp)
	})
}

func (c *PostClient) RetrieveExpandedPost(meta post.RequestMetadata, postID int32) (post.Post, error) {
	return instrumented(c, meta, common.MsgTRetrieveExpandedPost, func() (post.Post, error) {
		resp, err := invokeRPCRequest(common.NewRetrieveExpandedPostRequest(meta, postID), c.transport, c.serializer)
		if err != nil {
			return post.Post{}, err
		}
		return singlePost(resp)
	})
}

func (c *PostClient) DeletePost(meta post.RequestMetadata, postID int32) error {
	_, err := instrumented(c, meta, common.MsgTDeletePost, func() (struct{}, error) {
		_, err := invokeRPCRequest(common.NewDeletePostRequest(meta, postID), c.transport, c.serializer)
		return struct{}{}, err
	})
	return err
}

func (c *PostClient) ListPosts(meta post.RequestMetadata, query post.PostQuery, limit, offset int32) ([]post.Post, error) {
	return instrumented(c, meta, common.MsgTListPosts, func() ([]post.Post, error) {
		resp, err := invokeRPCRequest(common.NewListPostsRequest(meta, query, limit, offset), c.transport, c.serializer)
		if err != nil {
			return nil, err
		}
		// gob and json drop empty slices
		if resp.Posts == nil {
			return []post.Post{}, nil
		}
		return resp.Posts, nil
	})
}

func (c *PostClient) CountPostsByAuthor(meta post.RequestMetadata, authorID int32) (int32, error) {
	return instrumented(c, meta, common.MsgTCountPostsByAuthor, func() (int32, error) {
		resp, err := invokeRPCRequest(common.NewCountPostsByAuthorRequest(meta, authorID), c.transport, c.serializer)
		if err != nil {
			return 0, err
		}
		return resp.Count, nil
	})
}
