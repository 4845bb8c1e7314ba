package store

import (
	"context"

	"github.com/revittco/postdesk/internal/post"
)

// Store is the composite interface for all data access.
type Store interface {
	PostStore
	TagStore
	Tx(ctx context.Context, fn func(Store) error) error
	Close() error
}

// PostStore manages post records.
type PostStore interface {
	CreatePost(ctx context.Context, p *post.Post) error
	GetPost(ctx context.Context, id string) (*post.Post, error)
	// ListPosts returns one keyset page of posts matching q.
	ListPosts(ctx context.Context, q post.ListQuery) (post.Page, error)
	ListPostsBySource(ctx context.Context, source string) ([]post.Post, error)
	// UpdatePost writes the mutable fields of p. Title and CreatedAt are
	// never changed.
	UpdatePost(ctx context.Context, p *post.Post) error
	DeletePost(ctx context.Context, id string) error
	CountPostsWithTag(ctx context.Context, name string) (int, error)
}

// TagStore manages tag records.
type TagStore interface {
	CreateTag(ctx context.Context, t *post.Tag) error
	GetTag(ctx context.Context, id string) (*post.Tag, error)
	GetTagByName(ctx context.Context, name string) (*post.Tag, error)
	ListTags(ctx context.Context) ([]post.Tag, error)
	UpdateTag(ctx context.Context, t *post.Tag) error
	DeleteTag(ctx context.Context, id string) error
}
