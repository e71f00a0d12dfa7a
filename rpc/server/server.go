package server

import (
	"fmt"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/buzzblog/postrpc/lib/post"
	"github.com/buzzblog/postrpc/rpc/common"
	"github.com/buzzblog/postrpc/rpc/serializer"
	"github.com/buzzblog/postrpc/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger(common.LoggerRPC)

// NewRPCServer creates a new RPC server
// It takes a config, transport, serializer and the service answering the requests as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		config,
//		tcp.NewTCPDefaultServerTransport(),
//		serializer.NewBinarySerializer(),
//		mockpost.New(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
	service post.IPostService,
) *rpcServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	s := &rpcServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		service:    service,
		adapters:   xsync.NewMapOf[common.MessageType, IRPCServerAdapter](),
	}
	s.RegisterAdapter(NewPostServerAdapter())

	Logger.Infof("Created RPC Server")
	Logger.Infof("%s", config.String())

	return s
}

type rpcServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	service    post.IPostService
	adapters   *xsync.MapOf[common.MessageType, IRPCServerAdapter]
}

// RegisterAdapter routes all message types of the adapter to it, replacing earlier registrations
func (s *rpcServer) RegisterAdapter(adapter IRPCServerAdapter) {
	for _, t := range adapter.MessageTypes() {
		s.adapters.Store(t, adapter)
	}
}

// Serve registers the request handler and blocks serving requests until Close is called
func (s *rpcServer) Serve() error {
	if s.config.LogLevel != "" {
		if err := common.InitLoggers(s.config.LogLevel); err != nil {
			return err
		}
	}

	s.transport.RegisterHandler(s.handle)
	return s.transport.Listen(s.config)
}

// Addr returns the address the server listens on, or an empty string before Serve
func (s *rpcServer) Addr() string {
	return s.transport.Addr()
}

// Close stops the server and closes all client connections
func (s *rpcServer) Close() error {
	return s.transport.Close()
}

// handle decodes a request, lets the registered adapter answer it and encodes the response
func (s *rpcServer) handle(req []byte) []byte {
	var msg common.Message
	var respMsg *common.Message

	if err := s.serializer.Deserialize(req, &msg); err != nil {
		respMsg = common.NewErrorResponse(post.RetCProtocolError, fmt.Sprintf("failed to deserialize request: %s", err))
	} else if adapter, ok := s.adapters.Load(msg.MsgType); !ok {
		respMsg = common.NewErrorResponse(post.RetCProtocolError, fmt.Sprintf("unsupported message type: %s", msg.MsgType))
	} else {
		respMsg = s.dispatch(adapter, &msg)
	}

	val, err := s.serializer.Serialize(*respMsg)
	if err != nil {
		Logger.Errorf("failed to serialize %s response: %v", respMsg.MsgType, err)
		val, _ = s.serializer.Serialize(*common.NewErrorResponse(post.RetCInternalError, fmt.Sprintf("failed to serialize response: %s", err)))
	}
	return val
}

// dispatch runs the adapter, turning a panic of the service into an internal error response
func (s *rpcServer) dispatch(adapter IRPCServerAdapter, msg *common.Message) (resp *common.Message) {
	defer func() {
		if r := recover(); r != nil {
			Logger.Errorf("panic while handling %s (request_id=%s): %v", msg.MsgType, msg.RequestID, r)
			resp = common.NewErrorResponse(post.RetCInternalError, fmt.Sprintf("internal error: %v", r))
		}
	}()

	resp = adapter.Handle(msg, s.service)
	Logger.Debugf("request_id=%s function=post:%s err=%q", msg.RequestID, msg.MsgType, resp.Err)
	return resp
}
