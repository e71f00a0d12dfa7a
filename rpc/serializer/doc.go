// Package serializer turns post RPC messages into frame payloads and back.
//
// Three formats share the IRPCSerializer interface and are selected by name on
// the command line (binary, gob, json). Client and server must agree on the
// format, nothing on the wire identifies it.
//
// Formats:
//
//   - binary: a hand written layout with a flag word that marks which fields
//     follow. Smallest payloads and fastest encoding, and the only format that
//     keeps an empty post list distinct from a missing one. Default of postctl.
//
//   - gob: encoding/gob with a new encoder per message. Every payload repeats
//     the type description, so messages are several times larger than binary.
//
//   - json: encoding/json, readable in a packet dump. Strings must be valid
//     UTF-8; Serialize rejects messages with other bytes in a string field
//     rather than silently replacing them. Use binary or gob for arbitrary
//     byte content.
//
// Deserialize always starts from a zero Message, so a message value can be
// reused across calls.
//
// Usage:
//
//	s := serializer.NewBinarySerializer()
//	data, err := s.Serialize(msg)
//	// ... send data, receive reply ...
//	var resp common.Message
//	err = s.Deserialize(reply, &resp)
package serializer
