package consistency

import (
	"encoding/json"
	"fmt"

	"github.com/revittco/postdesk/internal/listing"
	"github.com/revittco/postdesk/internal/post"
)

// ViewSignature identifies one cached list-posts page by its parsed
// arguments. It is comparable and usable as a map key; two signatures are
// equal iff filter, sort and cursor are equal, however the arguments were
// spelled.
type ViewSignature struct {
	Filter post.StatusFilter
	Sort   post.SortKey
	Cursor post.Cursor
}

// ParseSignature canonicalizes raw list-posts arguments.
func ParseSignature(args json.RawMessage) (ViewSignature, error) {
	a, err := listing.ParseArgs(args)
	if err != nil {
		return ViewSignature{}, err
	}
	q, err := a.Query(0)
	if err != nil {
		return ViewSignature{}, err
	}
	return ViewSignature{Filter: q.Filter, Sort: q.Sort, Cursor: q.After}, nil
}

// At returns the signature of the page of the same (filter, sort) that
// starts after c.
func (s ViewSignature) At(c post.Cursor) ViewSignature {
	s.Cursor = c
	return s
}

// Args returns the canonical list-posts arguments for s.
func (s ViewSignature) Args() listing.Args {
	return listing.ArgsFor(s.Filter, s.Sort, s.Cursor)
}

func (s ViewSignature) String() string {
	cur := "first"
	if !s.Cursor.IsFirstPage() {
		cur = "after:" + s.Cursor.ID
	}
	return fmt.Sprintf("%s/%s/%s", s.Filter, s.Sort, cur)
}
