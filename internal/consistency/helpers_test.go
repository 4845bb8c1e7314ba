package consistency

import (
	"fmt"
	"testing"
	"time"

	"github.com/revittco/postdesk/internal/listing"
	"github.com/revittco/postdesk/internal/post"
	"github.com/revittco/postdesk/internal/querycache"
)

var (
	published   = post.Classification{Status: post.StatusPublished}
	unpublished = post.Classification{Status: post.StatusUnpublished}
	binnedPub   = post.Classification{Status: post.StatusPublished, Binned: true}
	deleted     = post.Classification{Status: post.StatusPublished, Deleted: true}
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// fixture returns posts P1..Pn, all published, created one hour apart so
// that newest-first order is Pn..P1.
func fixture(n int) map[string]post.Post {
	out := make(map[string]post.Post, n)
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("P%d", i)
		out[id] = post.Post{
			ID:        id,
			Title:     fmt.Sprintf("Post %02d", i),
			Status:    post.StatusPublished,
			CreatedAt: epoch.Add(time.Duration(i) * time.Hour),
			UpdatedAt: epoch.Add(time.Duration(i) * time.Hour),
		}
	}
	return out
}

func pick(posts map[string]post.Post, ids ...string) []post.Post {
	out := make([]post.Post, 0, len(ids))
	for _, id := range ids {
		out = append(out, posts[id])
	}
	return out
}

// putPage caches a page of (filter, sort) starting after `after`. A zero
// next marks the last page.
func putPage(t *testing.T, s *querycache.Store, filter post.StatusFilter, sort post.SortKey,
	after post.Cursor, items []post.Post, next post.Cursor,
) ViewSignature {
	t.Helper()
	sig := ViewSignature{Filter: filter, Sort: sort, Cursor: after}
	info := querycache.PageInfo{After: listing.EncodeCursor(after)}
	if !next.IsFirstPage() {
		info.Next = listing.EncodeCursor(next)
	}
	s.Put(listing.Field, sig.Args().Raw(), items, info)
	return sig
}

func keyOf(sig ViewSignature) querycache.Key {
	return querycache.MakeKey(listing.Field, sig.Args().Raw())
}

func cached(s *querycache.Store, sig ViewSignature) (querycache.Entry, bool) {
	return s.Read(keyOf(sig))
}

func newStore() *querycache.Store {
	return querycache.NewStore(querycache.Config{MaxEntries: 100, TTL: time.Hour})
}

// scenario caches the three views used throughout the engine tests:
//
//	v1: published, first page [P10 P9 P8], next after P8
//	v2: published, after P8 [P7 P6 P5], last page
//	v3: unfiltered, first page [P10 P9 P8 P7], next after P7
func scenario(t *testing.T) (s *querycache.Store, posts map[string]post.Post, v1, v2, v3 ViewSignature) {
	t.Helper()
	s = newStore()
	posts = fixture(10)
	v1 = putPage(t, s, post.FilterPublished, post.SortCreatedDesc, post.Cursor{},
		pick(posts, "P10", "P9", "P8"), posts["P8"].Cursor())
	v2 = putPage(t, s, post.FilterPublished, post.SortCreatedDesc, posts["P8"].Cursor(),
		pick(posts, "P7", "P6", "P5"), post.Cursor{})
	v3 = putPage(t, s, post.FilterNone, post.SortCreatedDesc, post.Cursor{},
		pick(posts, "P10", "P9", "P8", "P7"), posts["P7"].Cursor())
	return s, posts, v1, v2, v3
}
