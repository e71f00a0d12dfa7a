package serializer

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/buzzblog/postrpc/rpc/common"
)

// NewJSONSerializer creates a new serializer using json encoding
func NewJSONSerializer() IRPCSerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements the IRPCSerializer interface using json encoding.
// JSON strings are UTF-8, so messages carrying other bytes in a string field are
// rejected instead of being sent with replacement characters.
type jsonSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	if field, ok := invalidUTF8Field(&msg); ok {
		return nil, fmt.Errorf("json: %s of %s message is not valid UTF-8", field, msg.MsgType)
	}
	return json.Marshal(msg)
}

func (j jsonSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	// Reset the message, json only sets the fields present in b
	*msg = common.Message{}
	return json.Unmarshal(b, msg)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// invalidUTF8Field returns the name of the first string field of msg that is not valid UTF-8
func invalidUTF8Field(msg *common.Message) (string, bool) {
	switch {
	case !utf8.ValidString(msg.RequestID):
		return "request id", true
	case !utf8.ValidString(msg.Text):
		return "text", true
	case !utf8.ValidString(msg.Err):
		return "error", true
	}
	for _, p := range msg.Posts {
		if !utf8.ValidString(p.Text) {
			return fmt.Sprintf("text of post %d", p.ID), true
		}
		if a := p.Author; a != nil &&
			!(utf8.ValidString(a.Username) && utf8.ValidString(a.FirstName) && utf8.ValidString(a.LastName)) {
			return fmt.Sprintf("author of post %d", p.ID), true
		}
	}
	return "", false
}
