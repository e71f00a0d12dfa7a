package serializer

import "github.com/buzzblog/postrpc/rpc/common"

// IRPCSerializer converts messages to and from the payload of a transport frame.
// Implementations are stateless and may be shared between clients and servers.
type IRPCSerializer interface {
	// Serialize encodes msg. An error means msg cannot be represented in this
	// format and nothing must be sent.
	Serialize(msg common.Message) ([]byte, error)
	// Deserialize replaces *msg with the message decoded from b.
	// Fields not present in b are left at their zero value.
	Deserialize(b []byte, msg *common.Message) error
}
