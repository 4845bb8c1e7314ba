package listing

import (
	"encoding/json"
	"fmt"

	"github.com/revittco/postdesk/internal/post"
)

// Field is the cache field name of the list-posts query.
const Field = "listPosts"

// Argument names accepted by the list-posts query.
const (
	ArgFilter    = "filter"
	ArgOrderBy   = "order_by"
	ArgPageToken = "page_token"
)

// Args are the raw arguments of one list-posts call.
type Args struct {
	Filter    string `json:"filter,omitempty"`
	OrderBy   string `json:"order_by,omitempty"`
	PageToken string `json:"page_token,omitempty"`
}

// ParseArgs decodes a raw argument object. Unknown argument names and
// non-string values are rejected.
func ParseArgs(raw json.RawMessage) (Args, error) {
	if len(raw) == 0 {
		return Args{}, nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return Args{}, fmt.Errorf("decode args: %w", err)
	}

	var a Args
	for k, v := range m {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return Args{}, fmt.Errorf("arg %s: expected string", k)
		}
		switch k {
		case ArgFilter:
			a.Filter = s
		case ArgOrderBy:
			a.OrderBy = s
		case ArgPageToken:
			a.PageToken = s
		default:
			return Args{}, fmt.Errorf("unknown arg %q", k)
		}
	}
	return a, nil
}

// Raw encodes the arguments as a JSON object with sorted keys, omitting empty
// values.
func (a Args) Raw() json.RawMessage {
	m := make(map[string]string, 3)
	if a.Filter != "" {
		m[ArgFilter] = a.Filter
	}
	if a.OrderBy != "" {
		m[ArgOrderBy] = a.OrderBy
	}
	if a.PageToken != "" {
		m[ArgPageToken] = a.PageToken
	}
	data, _ := json.Marshal(m)
	return data
}

// Query parses the arguments into a typed page request.
func (a Args) Query(limit int) (post.ListQuery, error) {
	filter, err := ParseFilter(a.Filter)
	if err != nil {
		return post.ListQuery{}, err
	}
	sort, err := ParseOrderBy(a.OrderBy)
	if err != nil {
		return post.ListQuery{}, err
	}
	after, err := DecodeCursor(a.PageToken)
	if err != nil {
		return post.ListQuery{}, err
	}
	return post.ListQuery{Filter: filter, Sort: sort, After: after, Limit: limit}, nil
}

// ArgsFor returns the canonical arguments addressing the page of
// (filter, sort) that starts after cursor.
func ArgsFor(filter post.StatusFilter, sort post.SortKey, after post.Cursor) Args {
	return Args{
		Filter:    FormatFilter(filter),
		OrderBy:   FormatOrderBy(sort),
		PageToken: EncodeCursor(after),
	}
}
