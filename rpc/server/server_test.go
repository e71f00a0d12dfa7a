package server

import (
	"testing"

	"github.com/buzzblog/postrpc/lib/post"
	"github.com/buzzblog/postrpc/lib/post/mockpost"
	"github.com/buzzblog/postrpc/rpc/common"
	"github.com/buzzblog/postrpc/rpc/serializer"
	"github.com/buzzblog/postrpc/rpc/transport/tcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(service post.IPostService) *rpcServer {
	return NewRPCServer(
		common.ServerConfig{Transport: common.ServerTransportConfig{Endpoint: "127.0.0.1:0"}},
		tcp.NewTCPDefaultServerTransport(),
		serializer.NewBinarySerializer(),
		service,
	)
}

// roundTrip encodes req, passes it through the server handler and decodes the answer
func roundTrip(t *testing.T, s *rpcServer, req *common.Message) common.Message {
	t.Helper()

	data, err := s.serializer.Serialize(*req)
	require.NoError(t, err)

	var resp common.Message
	require.NoError(t, s.serializer.Deserialize(s.handle(data), &resp))
	return resp
}

func TestHandleDispatchesToService(t *testing.T) {
	svc := mockpost.New()
	s := newTestServer(svc)
	meta := post.NewRequestMetadata("req-1").WithRequester(3)

	resp := roundTrip(t, s, common.NewCreatePostRequest(meta, "hello"))
	require.NoError(t, resp.RemoteError())
	assert.Equal(t, common.MsgTCreatePost, resp.MsgType)
	require.Len(t, resp.Posts, 1)
	assert.Equal(t, "hello", resp.Posts[0].Text)
	assert.Equal(t, int32(3), resp.Posts[0].AuthorID)
	assert.Equal(t, 1, svc.Len())

	resp = roundTrip(t, s, common.NewCountPostsByAuthorRequest(meta, 3))
	require.NoError(t, resp.RemoteError())
	assert.Equal(t, int32(1), resp.Count)
}

func TestHandleEncodesServiceErrors(t *testing.T) {
	s := newTestServer(mockpost.New())

	resp := roundTrip(t, s, common.NewRetrieveStandardPostRequest(post.NewRequestMetadata("req-2"), 99))
	err := resp.RemoteError()
	require.Error(t, err)
	assert.ErrorIs(t, err, post.ErrNotFound)
	assert.Equal(t, common.MsgTRetrieveStandardPost, resp.MsgType)
}

func TestHandleRejectsInvalidRequests(t *testing.T) {
	s := newTestServer(mockpost.New())

	t.Run("undecodable", func(t *testing.T) {
		var resp common.Message
		require.NoError(t, s.serializer.Deserialize(s.handle([]byte{0xff}), &resp))
		assert.Equal(t, common.MsgTError, resp.MsgType)
		assert.Equal(t, post.RetCProtocolError, resp.ErrCode)
	})

	t.Run("unsupported type", func(t *testing.T) {
		resp := roundTrip(t, s, &common.Message{MsgType: common.MsgTSuccess})
		assert.Equal(t, common.MsgTError, resp.MsgType)
		assert.Equal(t, post.RetCProtocolError, resp.ErrCode)
	})
}

func TestPostAdapterWithoutService(t *testing.T) {
	resp := NewPostServerAdapter().Handle(common.NewDeletePostRequest(post.NewRequestMetadata("x"), 1), nil)
	assert.Equal(t, common.MsgTError, resp.MsgType)
	assert.Equal(t, post.RetCInternalError, resp.ErrCode)
}
