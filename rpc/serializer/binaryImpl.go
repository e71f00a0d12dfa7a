package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/buzzblog/postrpc/lib/post"
	"github.com/buzzblog/postrpc/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
//
// Layout: 1 byte MsgType, 2 bytes flags (big endian), then every field whose
// flag is set in the order of the flag bits below.
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasRequestID    uint16 = 1 << 0
	hasRequesterID  uint16 = 1 << 1
	hasRequesterSet uint16 = 1 << 2 // no payload
	hasPostID       uint16 = 1 << 3
	hasAuthorID     uint16 = 1 << 4
	hasAuthorSet    uint16 = 1 << 5 // no payload
	hasText         uint16 = 1 << 6
	hasLimit        uint16 = 1 << 7
	hasOffset       uint16 = 1 << 8
	hasCount        uint16 = 1 << 9
	hasPosts        uint16 = 1 << 10
	hasErrCode      uint16 = 1 << 11
	hasErr          uint16 = 1 << 12
)

// Bit flags of a single encoded post
const (
	postActive    byte = 1 << 0
	postHasAuthor byte = 1 << 1
	accountActive byte = 1 << 2
)

const headerSize = 3

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	// Allocate once for the whole message
	result := make([]byte, headerSize, b.sizeBytes(msg))

	// Write message type
	result[0] = byte(msg.MsgType)

	// Initialize flags
	var flags uint16 = 0

	if msg.RequestID != "" {
		flags |= hasRequestID
		result = appendString(result, msg.RequestID)
	}
	if msg.RequesterID != 0 {
		flags |= hasRequesterID
		result = appendInt32(result, msg.RequesterID)
	}
	if msg.HasRequester {
		flags |= hasRequesterSet
	}
	if msg.PostID != 0 {
		flags |= hasPostID
		result = appendInt32(result, msg.PostID)
	}
	if msg.AuthorID != 0 {
		flags |= hasAuthorID
		result = appendInt32(result, msg.AuthorID)
	}
	if msg.HasAuthor {
		flags |= hasAuthorSet
	}
	if msg.Text != "" {
		flags |= hasText
		result = appendString(result, msg.Text)
	}
	if msg.Limit != 0 {
		flags |= hasLimit
		result = appendInt32(result, msg.Limit)
	}
	if msg.Offset != 0 {
		flags |= hasOffset
		result = appendInt32(result, msg.Offset)
	}
	if msg.Count != 0 {
		flags |= hasCount
		result = appendInt32(result, msg.Count)
	}

	// Handle Posts (an empty but non-nil slice is kept as such)
	if msg.Posts != nil {
		flags |= hasPosts
		result = binary.BigEndian.AppendUint32(result, uint32(len(msg.Posts)))
		for i := range msg.Posts {
			result = appendPost(result, &msg.Posts[i])
		}
	}

	if msg.ErrCode != post.RetCSuccess {
		flags |= hasErrCode
		result = append(result, byte(msg.ErrCode))
	}
	if msg.Err != "" {
		flags |= hasErr
		result = appendString(result, msg.Err)
	}

	// Set flags after knowing which fields are present
	binary.BigEndian.PutUint16(result[1:3], flags)

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < headerSize {
		return fmt.Errorf("data too short for message header")
	}

	// Reset the message, the decoder only sets present fields
	*msg = common.Message{}

	// Read message type and flags
	msg.MsgType = common.MessageType(data[0])
	flags := binary.BigEndian.Uint16(data[1:3])

	r := &reader{data: data, pos: headerSize}

	if flags&hasRequestID != 0 {
		msg.RequestID = r.readString("request id")
	}
	if flags&hasRequesterID != 0 {
		msg.RequesterID = r.readInt32("requester id")
	}
	msg.HasRequester = flags&hasRequesterSet != 0
	if flags&hasPostID != 0 {
		msg.PostID = r.readInt32("post id")
	}
	if flags&hasAuthorID != 0 {
		msg.AuthorID = r.readInt32("author id")
	}
	msg.HasAuthor = flags&hasAuthorSet != 0
	if flags&hasText != 0 {
		msg.Text = r.readString("text")
	}
	if flags&hasLimit != 0 {
		msg.Limit = r.readInt32("limit")
	}
	if flags&hasOffset != 0 {
		msg.Offset = r.readInt32("offset")
	}
	if flags&hasCount != 0 {
		msg.Count = r.readInt32("count")
	}

	// Read Posts if present
	if flags&hasPosts != 0 {
		n := r.readUint32("post count")
		if r.err == nil && uint64(n) > uint64(len(data)-r.pos) {
			// every post needs at least one byte, reject absurd counts before allocating
			return fmt.Errorf("data too short for %d posts", n)
		}
		msg.Posts = make([]post.Post, 0, n)
		for i := uint32(0); i < n && r.err == nil; i++ {
			msg.Posts = append(msg.Posts, r.readPost())
		}
	}

	if flags&hasErrCode != 0 {
		msg.ErrCode = post.RetCode(r.readByte("error code"))
	}
	if flags&hasErr != 0 {
		msg.Err = r.readString("error")
	}

	return r.err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	// 1 byte for MsgType + 2 bytes for flags
	size := headerSize

	if msg.RequestID != "" {
		size += 4 + len(msg.RequestID)
	}
	// Fixed size int32 fields (RequesterID, PostID, AuthorID, Limit, Offset, Count)
	for _, v := range []int32{msg.RequesterID, msg.PostID, msg.AuthorID, msg.Limit, msg.Offset, msg.Count} {
		if v != 0 {
			size += 4
		}
	}
	if msg.Text != "" {
		size += 4 + len(msg.Text)
	}
	if msg.Posts != nil {
		size += 4
		for i := range msg.Posts {
			size += postSize(&msg.Posts[i])
		}
	}
	if msg.ErrCode != post.RetCSuccess {
		size += 1
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err)
	}

	return size
}

// postSize calculates the encoded size of a single post
func postSize(p *post.Post) int {
	// flags + ID + CreatedAt + AuthorID + NLikes + Text
	size := 1 + 4 + 8 + 4 + 4 + 4 + len(p.Text)
	if p.Author != nil {
		// ID + CreatedAt + three strings
		size += 4 + 8 + 12 + len(p.Author.Username) + len(p.Author.FirstName) + len(p.Author.LastName)
	}
	return size
}

// appendPost encodes a single post
func appendPost(buf []byte, p *post.Post) []byte {
	var flags byte
	if p.Active {
		flags |= postActive
	}
	if p.Author != nil {
		flags |= postHasAuthor
		if p.Author.Active {
			flags |= accountActive
		}
	}

	buf = append(buf, flags)
	buf = appendInt32(buf, p.ID)
	buf = binary.BigEndian.AppendUint64(buf, uint64(p.CreatedAt))
	buf = appendInt32(buf, p.AuthorID)
	buf = appendInt32(buf, p.NLikes)
	buf = appendString(buf, p.Text)

	if p.Author != nil {
		buf = appendInt32(buf, p.Author.ID)
		buf = binary.BigEndian.AppendUint64(buf, uint64(p.Author.CreatedAt))
		buf = appendString(buf, p.Author.Username)
		buf = appendString(buf, p.Author.FirstName)
		buf = appendString(buf, p.Author.LastName)
	}
	return buf
}

func appendInt32(buf []byte, v int32) []byte {
	return binary.BigEndian.AppendUint32(buf, uint32(v))
}

func appendString(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

// reader decodes fields from a byte slice, remembering the first error
// so that callers can check it once at the end
type reader struct {
	data []byte
	pos  int
	err  error
}

// next returns the next n bytes or nil if the data is too short
func (r *reader) next(n int, field string) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.data) {
		r.err = fmt.Errorf("data too short for %s", field)
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) readByte(field string) byte {
	b := r.next(1, field)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) readUint32(field string) uint32 {
	b := r.next(4, field)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *reader) readInt32(field string) int32 {
	return int32(r.readUint32(field))
}

func (r *reader) readInt64(field string) int64 {
	b := r.next(8, field)
	if b == nil {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}

func (r *reader) readString(field string) string {
	n := r.readUint32(field + " length")
	if r.err != nil {
		return ""
	}
	if uint64(n) > uint64(len(r.data)-r.pos) {
		r.err = fmt.Errorf("data too short for %s data", field)
		return ""
	}
	return string(r.next(int(n), field))
}

func (r *reader) readPost() post.Post {
	var p post.Post
	flags := r.readByte("post flags")
	p.Active = flags&postActive != 0
	p.ID = r.readInt32("post id")
	p.CreatedAt = r.readInt64("post created at")
	p.AuthorID = r.readInt32("post author id")
	p.NLikes = r.readInt32("post likes")
	p.Text = r.readString("post text")

	if flags&postHasAuthor != 0 {
		a := &post.Account{Active: flags&accountActive != 0}
		a.ID = r.readInt32("account id")
		a.CreatedAt = r.readInt64("account created at")
		a.Username = r.readString("account username")
		a.FirstName = r.readString("account first name")
		a.LastName = r.readString("account last name")
		p.Author = a
	}
	return p
}
