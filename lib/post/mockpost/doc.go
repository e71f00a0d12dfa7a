// Package mockpost implements post.IPostService in memory.
//
// The mock follows the observable rules of the real Post service closely enough
// to exercise clients end to end: ids are assigned in creation order, posts are
// listed newest first, empty texts are rejected, and only the author of a post
// may delete it. It is used by the test suites and by the "serve" command for
// local development. Nothing is persisted.
package mockpost
