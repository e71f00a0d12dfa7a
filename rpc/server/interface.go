package server

import (
	"github.com/buzzblog/postrpc/lib/post"
	"github.com/buzzblog/postrpc/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters
// It is responsible for handling requests and responses
type IRPCServerAdapter interface {
	// MessageTypes returns the request types this adapter handles
	MessageTypes() []common.MessageType
	// Handle handles a request and returns a response
	// It takes a Message and the service as parameters.
	// It returns a Message as a response
	// If an error occurs, it should be set in the response
	Handle(req *common.Message, service post.IPostService) (resp *common.Message)
}
