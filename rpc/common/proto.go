package common

import (
	"encoding/json"
	"fmt"

	"github.com/buzzblog/postrpc/lib/post"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// Request metadata, present on every request
	RequestID    string `json:"request_id,omitempty"`
	RequesterID  int32  `json:"requester_id,omitempty"`
	HasRequester bool   `json:"has_requester,omitempty"`

	// Arguments
	PostID    int32  `json:"post_id,omitempty"`   // Used for: RetrieveStandard, RetrieveExpanded, Delete
	AuthorID  int32  `json:"author_id,omitempty"` // Used for: List (query), CountByAuthor
	HasAuthor bool   `json:"has_author,omitempty"`
	Text      string `json:"text,omitempty"`   // Used for: Create
	Limit     int32  `json:"limit,omitempty"`  // Used for: List
	Offset    int32  `json:"offset,omitempty"` // Used for: List

	// Response only fields
	Count   int32        `json:"count,omitempty"`    // Used for: CountByAuthor responses
	Posts   []post.Post  `json:"posts,omitempty"`    // Used for: Create, Retrieve (one element) and List responses
	ErrCode post.RetCode `json:"err_code,omitempty"` // Zero if no error, otherwise the class of the remote failure
	Err     string       `json:"err,omitempty"`      // Empty if no error, otherwise contains the error message
}

// Metadata returns the request metadata carried by the message
func (m *Message) Metadata() post.RequestMetadata {
	return post.RequestMetadata{
		ID:           m.RequestID,
		RequesterID:  m.RequesterID,
		HasRequester: m.HasRequester,
	}
}

// Query returns the list filter carried by the message
func (m *Message) Query() post.PostQuery {
	return post.PostQuery{
		AuthorID:  m.AuthorID,
		HasAuthor: m.HasAuthor,
	}
}

// RemoteError returns the remote error carried by a response or nil
func (m *Message) RemoteError() error {
	if m.MsgType != MsgTError && m.Err == "" && m.ErrCode == post.RetCSuccess {
		return nil
	}
	code := m.ErrCode
	if code == post.RetCSuccess {
		code = post.RetCInternalError
	}
	return post.NewError(code, m.Err)
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// newRequest creates a request of the given type carrying the metadata
func newRequest(msgType MessageType, meta post.RequestMetadata) *Message {
	return &Message{
		MsgType:      msgType,
		RequestID:    meta.ID,
		RequesterID:  meta.RequesterID,
		HasRequester: meta.HasRequester,
	}
}

// newResponse creates a response of the given type, setting the error fields if err is not nil
func newResponse(msgType MessageType, err error) *Message {
	msg := &Message{
		MsgType: msgType,
	}
	if err != nil {
		msg.Err = err.Error()
		msg.ErrCode = post.RetCInternalError
		if perr, ok := err.(*post.Error); ok {
			msg.ErrCode = perr.Code
			msg.Err = perr.Msg
		}
	}
	return msg
}

// NewCreatePostRequest creates a new CreatePost request
func NewCreatePostRequest(meta post.RequestMetadata, text string) *Message {
	msg := newRequest(MsgTCreatePost, meta)
	msg.Text = text
	return msg
}

// NewCreatePostResponse creates a new CreatePost response
func NewCreatePostResponse(p post.Post, err error) *Message {
	msg := newResponse(MsgTCreatePost, err)
	if err == nil {
		msg.Posts = []post.Post{p}
	}
	return msg
}

// NewRetrieveStandardPostRequest creates a new RetrieveStandardPost request
func NewRetrieveStandardPostRequest(meta post.RequestMetadata, postID int32) *Message {
	msg := newRequest(MsgTRetrieveStandardPost, meta)
	msg.PostID = postID
	return msg
}

// NewRetrieveStandardPostResponse creates a new RetrieveStandardPost response
func NewRetrieveStandardPostResponse(p post.Post, err error) *Message {
	msg := newResponse(MsgTRetrieveStandardPost, err)
	if err == nil {
		msg.Posts = []post.Post{p}
	}
	return msg
}

// NewRetrieveExpandedPostRequest creates a new RetrieveExpandedPost request
func NewRetrieveExpandedPostRequest(meta post.RequestMetadata, postID int32) *Message {
	msg := newRequest(MsgTRetrieveExpandedPost, meta)
	msg.PostID = postID
	return msg
}

// NewRetrieveExpandedPostResponse creates a new RetrieveExpandedPost response
func NewRetrieveExpandedPostResponse(p post.Post, err error) *Message {
	msg := newResponse(MsgTRetrieveExpandedPost, err)
	if err == nil {
		msg.Posts = []post.Post{p}
	}
	return msg
}

// NewDeletePostRequest creates a new DeletePost request
func NewDeletePostRequest(meta post.RequestMetadata, postID int32) *Message {
	msg := newRequest(MsgTDeletePost, meta)
	msg.PostID = postID
	return msg
}

// NewDeletePostResponse creates a new DeletePost response
func NewDeletePostResponse(err error) *Message {
	return newResponse(MsgTDeletePost, err)
}

// NewListPostsRequest creates a new ListPosts request
func NewListPostsRequest(meta post.RequestMetadata, query post.PostQuery, limit, offset int32) *Message {
	msg := newRequest(MsgTListPosts, meta)
	msg.AuthorID = query.AuthorID
	msg.HasAuthor = query.HasAuthor
	msg.Limit = limit
	msg.Offset = offset
	return msg
}

// NewListPostsResponse creates a new ListPosts response
func NewListPostsResponse(posts []post.Post, err error) *Message {
	msg := newResponse(MsgTListPosts, err)
	if err == nil {
		msg.Posts = posts
	}
	return msg
}

// NewCountPostsByAuthorRequest creates a new CountPostsByAuthor request
func NewCountPostsByAuthorRequest(meta post.RequestMetadata, authorID int32) *Message {
	msg := newRequest(MsgTCountPostsByAuthor, meta)
	msg.AuthorID = authorID
	msg.HasAuthor = true
	return msg
}

// NewCountPostsByAuthorResponse creates a new CountPostsByAuthor response
func NewCountPostsByAuthorResponse(count int32, err error) *Message {
	msg := newResponse(MsgTCountPostsByAuthor, err)
	msg.Count = count
	return msg
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(code post.RetCode, err string) *Message {
	return &Message{
		MsgType: MsgTError,
		ErrCode: code,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
// The string form of a request type is the name of the remote function.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTCreatePost:
		return "create_post"
	case MsgTRetrieveStandardPost:
		return "retrieve_standard_post"
	case MsgTRetrieveExpandedPost:
		return "retrieve_expanded_post"
	case MsgTDeletePost:
		return "delete_post"
	case MsgTListPosts:
		return "list_posts"
	case MsgTCountPostsByAuthor:
		return "count_posts_by_author"
	case MsgTError:
		return "error"
	case MsgTSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// ParseMessageType returns the MessageType with the given string form.
func ParseMessageType(s string) (MessageType, error) {
	for t := MsgTSuccess; t <= MsgTCountPostsByAuthor; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return MsgTUnknown, fmt.Errorf("unknown message type: %s", s)
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	parsed, err := ParseMessageType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// IPostService operations

	MsgTCreatePost           // Create a post
	MsgTRetrieveStandardPost // Retrieve the basic fields of a post
	MsgTRetrieveExpandedPost // Retrieve a post with author and like count
	MsgTDeletePost           // Delete a post
	MsgTListPosts            // List posts with filter and pagination
	MsgTCountPostsByAuthor   // Count the posts of an author
)
