// Package post holds the blog post domain types shared by the store, the
// list-posts query layer and the cache-consistency engine.
package post

import (
	"fmt"
	"time"
)

// Status is the editorial status of a post.
type Status string

const (
	StatusPublished   Status = "PUBLISHED"
	StatusUnpublished Status = "UNPUBLISHED"
)

// ParseStatus converts a wire string to a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPublished, StatusUnpublished:
		return Status(s), nil
	default:
		return "", fmt.Errorf("invalid status %q (must be PUBLISHED or UNPUBLISHED)", s)
	}
}

// Classification is the mutable part of a post that decides which list views
// it belongs to. Binned is independent of Status: restoring a binned post
// brings it back with the status it had before.
type Classification struct {
	Status  Status
	Binned  bool
	Deleted bool
}

// Present reports whether the item still exists outside the bin.
func (c Classification) Present() bool {
	return !c.Binned && !c.Deleted
}

func (c Classification) String() string {
	switch {
	case c.Deleted:
		return "DELETED"
	case c.Binned:
		return "BINNED(" + string(c.Status) + ")"
	default:
		return string(c.Status)
	}
}

// Post is a blog post as stored and as cached inside list pages.
// Title and CreatedAt are sort attributes and never change after creation.
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	Status    Status    `json:"status"`
	Binned    bool      `json:"binned"`
	Tags      []string  `json:"tags,omitempty"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Classification returns the post's current classification.
func (p Post) Classification() Classification {
	return Classification{Status: p.Status, Binned: p.Binned}
}

// Cursor returns the keyset position of p under any sort key.
func (p Post) Cursor() Cursor {
	return Cursor{CreatedAt: p.CreatedAt.UnixNano(), Title: p.Title, ID: p.ID}
}

// Patch holds the classification fields a mutation changed. Nil fields are
// left untouched when merged.
type Patch struct {
	Status    *Status
	Binned    *bool
	UpdatedAt time.Time
}

// PatchFor builds a Patch that moves an item to c.
func PatchFor(c Classification, at time.Time) Patch {
	st, binned := c.Status, c.Binned
	p := Patch{Binned: &binned, UpdatedAt: at}
	if st != "" {
		p.Status = &st
	}
	return p
}

// Apply merges the patch into p and reports whether anything changed.
func (pt Patch) Apply(p *Post) bool {
	changed := false
	if pt.Status != nil && p.Status != *pt.Status {
		p.Status = *pt.Status
		changed = true
	}
	if pt.Binned != nil && p.Binned != *pt.Binned {
		p.Binned = *pt.Binned
		changed = true
	}
	if !pt.UpdatedAt.IsZero() && !p.UpdatedAt.Equal(pt.UpdatedAt) {
		p.UpdatedAt = pt.UpdatedAt
		changed = true
	}
	return changed
}

// Tag is a label that can be attached to posts.
type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}
