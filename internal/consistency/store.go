package consistency

import (
	"github.com/revittco/postdesk/internal/post"
	"github.com/revittco/postdesk/internal/querycache"
)

// CacheStore is the query-result cache the engine repairs.
// *querycache.Store satisfies it.
type CacheStore interface {
	// Enumerate returns every stored entry for field.
	Enumerate(field string) []querycache.Entry
	// Evict removes one entry and reports whether it was present.
	Evict(key querycache.Key) bool
	// PatchItem merges patch into one item of one entry.
	PatchItem(key querycache.Key, itemID string, patch post.Patch) bool
	// EvictField removes every entry for field.
	EvictField(field string) int
	// Advance keeps loads that started before the call out of the store.
	Advance()
}

var _ CacheStore = (*querycache.Store)(nil)
