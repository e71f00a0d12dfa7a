package client

import (
	"fmt"

	"github.com/buzzblog/postrpc/lib/post"
	"github.com/buzzblog/postrpc/rpc/common"
	"github.com/buzzblog/postrpc/rpc/serializer"
	"github.com/buzzblog/postrpc/rpc/transport"
)

// invokeRPCRequest sends one request and waits for its response
// It returns the response message, the remote error carried by it, or the transport error
// This method also checks if the type of the response is the expected type
func invokeRPCRequest(req *common.Message, transport transport.IRPCClientTransport, serializer serializer.IRPCSerializer) (*common.Message, error) {
	// Serialize the request
	reqBytes, err := serializer.Serialize(*req)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %s request: %w", req.MsgType, err)
	}

	// Send the request, connection errors are passed on unchanged
	respBytes, err := transport.Send(reqBytes)
	if err != nil {
		return nil, err
	}

	// Deserialize the response
	resp := &common.Message{}
	if err := serializer.Deserialize(respBytes, resp); err != nil {
		return nil, post.NewError(post.RetCProtocolError, fmt.Sprintf("failed to deserialize %s response: %s", req.MsgType, err))
	}

	// Check if the response is an error response
	if err := resp.RemoteError(); err != nil {
		return nil, err
	}

	// Check if the type of the response is the expected type
	if resp.MsgType != req.MsgType {
		return nil, post.NewError(post.RetCProtocolError, fmt.Sprintf("unexpected message type: %s, expected %s", resp.MsgType, req.MsgType))
	}

	return resp, nil
}

// singlePost extracts the post of a create or retrieve response
func singlePost(resp *common.Message) (post.Post, error) {
	if len(resp.Posts) != 1 {
		return post.Post{}, post.NewError(post.RetCProtocolError, fmt.Sprintf("%s response carries %d posts, expected 1", resp.MsgType, len(resp.Posts)))
	}
	return resp.Posts[0], nil
}
