package listing

import (
	"errors"
	"fmt"

	"github.com/revittco/postdesk/internal/post"
	"go.einride.tech/aip/pagination"
)

// pageToken is the encoded form of a post.Cursor.
type pageToken struct {
	CreatedAt int64
	Title     string
	ID        string
}

// EncodeCursor returns the opaque page token for c. The first-page cursor
// encodes to the empty string.
func EncodeCursor(c post.Cursor) string {
	if c.IsFirstPage() {
		return ""
	}
	return pagination.EncodePageTokenStruct(&pageToken{
		CreatedAt: c.CreatedAt,
		Title:     c.Title,
		ID:        c.ID,
	})
}

// DecodeCursor parses a page token produced by EncodeCursor.
func DecodeCursor(token string) (post.Cursor, error) {
	if token == "" {
		return post.Cursor{}, nil
	}
	var pt pageToken
	if err := pagination.DecodePageTokenStruct(token, &pt); err != nil {
		return post.Cursor{}, fmt.Errorf("decode page token: %w", err)
	}
	if pt.ID == "" {
		return post.Cursor{}, errors.New("decode page token: missing item id")
	}
	return post.Cursor{CreatedAt: pt.CreatedAt, Title: pt.Title, ID: pt.ID}, nil
}
