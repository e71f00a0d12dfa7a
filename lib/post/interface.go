package post

import (
	"fmt"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IPostService is the set of operations offered by the Post service.
// Every method takes the caller's RequestMetadata, which implementations
// must pass on unchanged.
type IPostService interface {
	// CreatePost stores a new post authored by the requester and returns the full record.
	CreatePost(meta RequestMetadata, text string) (p Post, err error)
	// RetrieveStandardPost returns the basic fields of a post.
	RetrieveStandardPost(meta RequestMetadata, postID int32) (p Post, err error)
	// RetrieveExpandedPost returns a post together with its author and like count.
	RetrieveExpandedPost(meta RequestMetadata, postID int32) (p Post, err error)
	// DeletePost removes a post. Only the author may delete it.
	DeletePost(meta RequestMetadata, postID int32) (err error)
	// ListPosts returns the posts matching the query, paginated by limit and offset.
	// The order of the result is the order chosen by the service.
	ListPosts(meta RequestMetadata, query PostQuery, limit, offset int32) (posts []Post, err error)
	// CountPostsByAuthor returns how many posts an account has written.
	CountPostsByAuthor(meta RequestMetadata, authorID int32) (count int32, err error)
}

// --------------------------------------------------------------------------
// Records
// --------------------------------------------------------------------------

// RequestMetadata is the correlation context of a request. ID joins the log
// lines of all services that took part in the same request.
type RequestMetadata struct {
	ID           string `json:"id"`
	RequesterID  int32  `json:"requester_id,omitempty"`
	HasRequester bool   `json:"has_requester,omitempty"`
}

// NewRequestMetadata creates metadata for an anonymous request.
func NewRequestMetadata(id string) RequestMetadata {
	return RequestMetadata{ID: id}
}

// WithRequester returns a copy of the metadata identifying the requesting account.
func (m RequestMetadata) WithRequester(accountID int32) RequestMetadata {
	m.RequesterID = accountID
	m.HasRequester = true
	return m
}

// Account is the author projection embedded in expanded posts.
type Account struct {
	ID        int32  `json:"id"`
	CreatedAt int64  `json:"created_at"`
	Active    bool   `json:"active"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Post is a single post. Author and NLikes are only filled in by expanded retrievals.
type Post struct {
	ID        int32    `json:"id"`
	CreatedAt int64    `json:"created_at"`
	Active    bool     `json:"active"`
	Text      string   `json:"text"`
	AuthorID  int32    `json:"author_id"`
	Author    *Account `json:"author,omitempty"`
	NLikes    int32    `json:"n_likes,omitempty"`
}

// IsExpanded reports whether the post carries the denormalized author fields.
func (p Post) IsExpanded() bool {
	return p.Author != nil
}

// PostQuery filters the posts returned by ListPosts. The zero value matches all posts.
type PostQuery struct {
	AuthorID  int32 `json:"author_id,omitempty"`
	HasAuthor bool  `json:"has_author,omitempty"`
}

// ByAuthor returns a query matching the posts of one author.
func ByAuthor(authorID int32) PostQuery {
	return PostQuery{AuthorID: authorID, HasAuthor: true}
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is returned by the Post service when an operation fails.
// It wraps a return code (of type RetCode) and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("PostServiceError (code %s): %s", e.Code, e.Msg)
}

// Is matches two post errors by their code, so errors.Is(err, &post.Error{Code: RetCNotFound}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new post Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint8

const (
	RetCSuccess           RetCode = iota // 0: Operation executed successfully.
	RetCInternalError                    // 1: Operation failed due to an internal error.
	RetCNotFound                         // 2: The post (or referenced account) does not exist.
	RetCInvalidAttributes                // 3: The request carried invalid attributes (e.g. empty text).
	RetCNotAuthorized                    // 4: The requester may not perform the operation.
	RetCProtocolError                    // 5: The server could not decode or route the request.
)

// String returns the name of the return code.
func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCNotFound:
		return "NotFound"
	case RetCInvalidAttributes:
		return "InvalidAttributes"
	case RetCNotAuthorized:
		return "NotAuthorized"
	case RetCProtocolError:
		return "ProtocolError"
	default:
		return "Unknown"
	}
}

// Sentinel errors for use with errors.Is.
var (
	ErrNotFound          = NewError(RetCNotFound, "post not found")
	ErrInvalidAttributes = NewError(RetCInvalidAttributes, "invalid post attributes")
	ErrNotAuthorized     = NewError(RetCNotAuthorized, "not authorized")
)
