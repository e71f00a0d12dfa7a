package mockpost

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/buzzblog/postrpc/lib/post"
	"github.com/puzpuzpuz/xsync/v3"
)

// Option customises the mock service.
type Option func(*Service)

// WithClock replaces the clock used for CreatedAt timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithAccounts seeds the service with known accounts.
func WithAccounts(accounts ...post.Account) Option {
	return func(s *Service) {
		for _, a := range accounts {
			s.accounts.Store(a.ID, a)
		}
	}
}

// Service is an in-memory post.IPostService. All methods are safe for concurrent use.
type Service struct {
	posts    *xsync.MapOf[int32, post.Post]
	accounts *xsync.MapOf[int32, post.Account]
	likes    *xsync.MapOf[int32, int32]
	nextID   atomic.Int32
	now      func() time.Time
}

// New creates an empty mock service.
func New(opts ...Option) *Service {
	s := &Service{
		posts:    xsync.NewMapOf[int32, post.Post](),
		accounts: xsync.NewMapOf[int32, post.Account](),
		likes:    xsync.NewMapOf[int32, int32](),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// SetLikes sets the like counter reported for a post in expanded retrievals.
func (s *Service) SetLikes(postID int32, n int32) {
	s.likes.Store(postID, n)
}

// Len returns the number of stored posts.
func (s *Service) Len() int {
	return s.posts.Size()
}

// --------------------------------------------------------------------------
// Interface Methods (docu see post.IPostService)
// --------------------------------------------------------------------------

func (s *Service) CreatePost(meta post.RequestMetadata, text string) (post.Post, error) {
	if !meta.HasRequester {
		return post.Post{}, post.NewError(post.RetCNotAuthorized, "create_post requires a requester")
	}
	if strings.TrimSpace(text) == "" {
		return post.Post{}, post.NewError(post.RetCInvalidAttributes, "text must not be empty")
	}

	// Authors are registered on their first post
	s.accounts.LoadOrStore(meta.RequesterID, post.Account{
		ID:        meta.RequesterID,
		CreatedAt: s.now().Unix(),
		Active:    true,
		Username:  fmt.Sprintf("user%d", meta.RequesterID),
	})

	p := post.Post{
		ID:        s.nextID.Add(1),
		CreatedAt: s.now().Unix(),
		Active:    true,
		Text:      text,
		AuthorID:  meta.RequesterID,
	}
	s.posts.Store(p.ID, p)
	return p, nil
}

func (s *Service) RetrieveStandardPost(_ post.RequestMetadata, postID int32) (post.Post, error) {
	p, ok := s.posts.Load(postID)
	if !ok {
		return post.Post{}, post.NewError(post.RetCNotFound, fmt.Sprintf("post %d not found", postID))
	}
	return p, nil
}

func (s *Service) RetrieveExpandedPost(meta post.RequestMetadata, postID int32) (post.Post, error) {
	p, err := s.RetrieveStandardPost(meta, postID)
	if err != nil {
		return post.Post{}, err
	}
	return s.expand(p), nil
}

func (s *Service) DeletePost(meta post.RequestMetadata, postID int32) error {
	p, ok := s.posts.Load(postID)
	if !ok {
		return post.NewError(post.RetCNotFound, fmt.Sprintf("post %d not found", postID))
	}
	if !meta.HasRequester || meta.RequesterID != p.AuthorID {
		return post.NewError(post.RetCNotAuthorized, fmt.Sprintf("post %d can only be deleted by its author", postID))
	}
	s.posts.Delete(postID)
	s.likes.Delete(postID)
	return nil
}

func (s *Service) ListPosts(_ post.RequestMetadata, query post.PostQuery, limit, offset int32) ([]post.Post, error) {
	if limit < 0 || offset < 0 {
		return nil, post.NewError(post.RetCInvalidAttributes, "limit and offset must not be negative")
	}
	if query.HasAuthor {
		if _, ok := s.accounts.Load(query.AuthorID); !ok {
			return nil, post.NewError(post.RetCNotFound, fmt.Sprintf("account %d not found", query.AuthorID))
		}
	}

	matches := make([]post.Post, 0)
	s.posts.Range(func(_ int32, p post.Post) bool {
		if !query.HasAuthor || p.AuthorID == query.AuthorID {
			matches = append(matches, p)
		}
		return true
	})

	// newest first
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID > matches[j].ID })

	if int(offset) >= len(matches) {
		return []post.Post{}, nil
	}
	end := len(matches)
	if int(offset)+int(limit) < end {
		end = int(offset) + int(limit)
	}

	page := make([]post.Post, 0, end-int(offset))
	for _, p := range matches[offset:end] {
		page = append(page, s.expand(p))
	}
	return page, nil
}

func (s *Service) CountPostsByAuthor(_ post.RequestMetadata, authorID int32) (int32, error) {
	var count int32
	s.posts.Range(func(_ int32, p post.Post) bool {
		if p.AuthorID == authorID {
			count++
		}
		return true
	})
	return count, nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// expand fills in the author and like count of a post
func (s *Service) expand(p post.Post) post.Post {
	author, ok := s.accounts.Load(p.AuthorID)
	if !ok {
		author = post.Account{ID: p.AuthorID}
	}
	p.Author = &author
	p.NLikes, _ = s.likes.Load(p.ID)
	return p
}
