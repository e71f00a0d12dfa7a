package server

import (
	"fmt"

	"github.com/buzzblog/postrpc/lib/post"
	"github.com/buzzblog/postrpc/rpc/common"
)

// NewPostServerAdapter returns the adapter translating post requests to post.IPostService calls
func NewPostServerAdapter() IRPCServerAdapter {
	return &postServerAdapterImpl{}
}

type postServerAdapterImpl struct{}

func (adapter *postServerAdapterImpl) MessageTypes() []common.MessageType {
	return []common.MessageType{
		common.MsgTCreatePost,
		common.MsgTRetrieveStandardPost,
		common.MsgTRetrieveExpandedPost,
		common.MsgTDeletePost,
		common.MsgTListPosts,
		common.MsgTCountPostsByAuthor,
	}
}

func (adapter *postServerAdapterImpl) Handle(req *common.Message, service post.IPostService) *common.Message {
	// Check for nil service
	if service == nil {
		return common.NewErrorResponse(post.RetCInternalError, "handler: service is nil")
	}

	meta := req.Metadata()

	// Handle different message types
	switch req.MsgType {
	case common.MsgTCreatePost:
		p, err := service.CreatePost(meta, req.Text)
		return common.NewCreatePostResponse(p, err)
	case common.MsgTRetrieveStandardPost:
		p, err := service.RetrieveStandardPost(meta, req.PostID)
		return common.NewRetrieveStandardPostResponse(p, err)
	case common.MsgTRetrieveExpandedPost:
		p, err := service.RetrieveExpandedPost(meta, req.PostID)
		return common.NewRetrieveExpandedPostResponse(p, err)
	case common.MsgTDeletePost:
		err := service.DeletePost(meta, req.PostID)
		return common.NewDeletePostResponse(err)
	case common.MsgTListPosts:
		posts, err := service.ListPosts(meta, req.Query(), req.Limit, req.Offset)
		return common.NewListPostsResponse(posts, err)
	case common.MsgTCountPostsByAuthor:
		n, err := service.CountPostsByAuthor(meta, req.AuthorID)
		return common.NewCountPostsByAuthorResponse(n, err)
	default:
		return common.NewErrorResponse(post.RetCProtocolError,
			fmt.Sprintf("post adapter: unsupported message type: %s", req.MsgType),
		)
	}
}
