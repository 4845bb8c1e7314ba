package post

import "strings"

// StatusFilter selects which posts a list view shows.
type StatusFilter int

const (
	// FilterNone shows every post that is neither binned nor deleted.
	FilterNone StatusFilter = iota
	FilterPublished
	FilterUnpublished
	FilterBinned
)

func (f StatusFilter) String() string {
	switch f {
	case FilterNone:
		return "ALL"
	case FilterPublished:
		return "PUBLISHED"
	case FilterUnpublished:
		return "UNPUBLISHED"
	case FilterBinned:
		return "BINNED"
	default:
		return "UNKNOWN"
	}
}

// Matches reports whether an item with classification c is a member of
// views using this filter.
func (f StatusFilter) Matches(c Classification) bool {
	if c.Deleted {
		return false
	}
	switch f {
	case FilterNone:
		return !c.Binned
	case FilterPublished:
		return !c.Binned && c.Status == StatusPublished
	case FilterUnpublished:
		return !c.Binned && c.Status == StatusUnpublished
	case FilterBinned:
		return c.Binned
	default:
		return false
	}
}

// SortKey is the order of a list view. Ties are broken by post ID in the
// same direction.
type SortKey int

const (
	SortCreatedDesc SortKey = iota
	SortCreatedAsc
	SortTitleAsc
	SortTitleDesc
)

func (s SortKey) String() string {
	switch s {
	case SortCreatedDesc:
		return "created_at desc"
	case SortCreatedAsc:
		return "created_at asc"
	case SortTitleAsc:
		return "title asc"
	case SortTitleDesc:
		return "title desc"
	default:
		return "unknown"
	}
}

// Desc reports whether the sort is descending.
func (s SortKey) Desc() bool {
	return s == SortCreatedDesc || s == SortTitleDesc
}

// Less reports whether a sorts strictly before b under s.
func (s SortKey) Less(a, b Cursor) bool {
	var c int
	switch s {
	case SortTitleAsc, SortTitleDesc:
		c = strings.Compare(a.Title, b.Title)
	default:
		c = cmpInt64(a.CreatedAt, b.CreatedAt)
	}
	if c == 0 {
		c = strings.Compare(a.ID, b.ID)
	}
	if s.Desc() {
		return c > 0
	}
	return c < 0
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Cursor is a keyset pagination position: a page at Cursor c holds the items
// sorting strictly after c. The zero Cursor is the first page.
type Cursor struct {
	CreatedAt int64
	Title     string
	ID        string
}

// IsFirstPage reports whether c is the first-page cursor.
func (c Cursor) IsFirstPage() bool {
	return c == Cursor{}
}

// ListQuery is one list-posts page request.
type ListQuery struct {
	Filter StatusFilter
	Sort   SortKey
	After  Cursor
	Limit  int
}

// Page is one page of list-posts results. Next is the zero Cursor when the
// page is the last one.
type Page struct {
	Items   []Post
	After   Cursor
	Next    Cursor
	HasNext bool
}
