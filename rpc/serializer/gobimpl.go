package serializer

import (
	"bytes"
	"encoding/gob"

	"github.com/buzzblog/postrpc/rpc/common"
)

// NewGOBSerializer returns a serializer backed by encoding/gob
func NewGOBSerializer() IRPCSerializer {
	return &gobSerializerImpl{}
}

// gobSerializerImpl encodes every message as a self-describing gob stream.
// Each call uses a fresh encoder, so the type description is repeated per message.
type gobSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (g gobSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(msg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g gobSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	// gob skips zero values on the wire, stale fields of a reused message would survive otherwise
	*msg = common.Message{}
	return gob.NewDecoder(bytes.NewReader(b)).Decode(msg)
}
