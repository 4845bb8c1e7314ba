package listing

import (
	"fmt"

	"github.com/revittco/postdesk/internal/post"
	"go.einride.tech/aip/ordering"
)

// sortPaths are the fields a list view may be ordered by.
var sortPaths = []string{"created_at", "title"}

// ParseOrderBy parses an order_by string. An empty string is the default
// newest-first order.
func ParseOrderBy(s string) (post.SortKey, error) {
	var ob ordering.OrderBy
	if err := ob.UnmarshalString(s); err != nil {
		return 0, err
	}
	if len(ob.Fields) == 0 {
		return post.SortCreatedDesc, nil
	}
	if len(ob.Fields) > 1 {
		return 0, fmt.Errorf("order by %q: only one field is supported", s)
	}
	if err := ob.ValidateForPaths(sortPaths...); err != nil {
		return 0, fmt.Errorf("order by %q: %w", s, err)
	}

	f := ob.Fields[0]
	switch {
	case f.Path == "created_at" && f.Desc:
		return post.SortCreatedDesc, nil
	case f.Path == "created_at":
		return post.SortCreatedAsc, nil
	case f.Desc:
		return post.SortTitleDesc, nil
	default:
		return post.SortTitleAsc, nil
	}
}

// FormatOrderBy returns the canonical order_by string for s.
func FormatOrderBy(s post.SortKey) string {
	return s.String()
}
