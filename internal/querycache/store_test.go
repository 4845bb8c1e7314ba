package querycache

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/revittco/postdesk/internal/post"
)

func items(ids ...string) []post.Post {
	out := make([]post.Post, 0, len(ids))
	for _, id := range ids {
		out = append(out, post.Post{ID: id, Title: "t-" + id, Status: post.StatusPublished})
	}
	return out
}

func TestMakeKey_Canonical(t *testing.T) {
	a := MakeKey("listPosts", json.RawMessage(`{"filter":"x","order_by":"title"}`))
	b := MakeKey("listPosts", json.RawMessage(`{ "order_by": "title", "filter": "x" }`))
	if a != b {
		t.Fatalf("key order changed hash: %v vs %v", a, b)
	}

	empty := MakeKey("listPosts", nil)
	for _, raw := range []string{`{}`, `null`, ` `} {
		if k := MakeKey("listPosts", json.RawMessage(raw)); k != empty {
			t.Errorf("MakeKey(%q) = %v; want %v", raw, k, empty)
		}
	}

	if MakeKey("listTags", nil) == empty {
		t.Error("different fields share a key")
	}
}

func TestPutLookup(t *testing.T) {
	s := NewStore(DefaultConfig())
	args := json.RawMessage(`{"filter":"x"}`)
	info := PageInfo{Next: "n1"}
	key := s.Put("listPosts", args, items("a", "b"), info)

	e, _, ok := s.Lookup("listPosts", json.RawMessage(`{"filter": "x"}`))
	if !ok {
		t.Fatal("expected hit")
	}
	if e.Key != key || e.PageInfo != info || len(e.Items) != 2 {
		t.Fatalf("entry = %+v", e)
	}

	// Returned entries are copies.
	e.Items[0].Title = "mutated"
	again, _ := s.Read(key)
	if again.Items[0].Title != "t-a" {
		t.Fatal("caller mutation leaked into the store")
	}
}

func TestPatchItem(t *testing.T) {
	s := NewStore(DefaultConfig())
	info := PageInfo{After: "a0", Next: "n1"}
	key := s.Put("listPosts", nil, items("a", "b", "c"), info)

	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	patch := post.PatchFor(post.Classification{Status: post.StatusUnpublished}, at)
	if !s.PatchItem(key, "b", patch) {
		t.Fatal("PatchItem reported miss")
	}

	e, _ := s.Read(key)
	if e.Items[1].Status != post.StatusUnpublished || !e.Items[1].UpdatedAt.Equal(at) {
		t.Fatalf("item b = %+v", e.Items[1])
	}
	if e.PageInfo != info {
		t.Fatalf("page info = %+v; want %+v", e.PageInfo, info)
	}
	ids := []string{e.Items[0].ID, e.Items[1].ID, e.Items[2].ID}
	if diff := cmp.Diff([]string{"a", "b", "c"}, ids); diff != "" {
		t.Fatalf("order changed (-want +got):\n%s", diff)
	}

	if s.PatchItem(key, "zzz", patch) {
		t.Error("PatchItem hit for missing item")
	}
	if s.PatchItem(MakeKey("listPosts", json.RawMessage(`{"filter":"y"}`)), "a", patch) {
		t.Error("PatchItem hit for missing entry")
	}
}

func TestEnumerateAndEvictField(t *testing.T) {
	s := NewStore(DefaultConfig())
	s.Put("listPosts", json.RawMessage(`{"filter":"a"}`), nil, PageInfo{})
	s.Put("listPosts", json.RawMessage(`{"filter":"b"}`), nil, PageInfo{})
	tags := s.Put("listTags", nil, nil, PageInfo{})

	if got := len(s.Enumerate("listPosts")); got != 2 {
		t.Fatalf("Enumerate = %d entries; want 2", got)
	}
	if got := s.EvictField("listPosts"); got != 2 {
		t.Fatalf("EvictField = %d; want 2", got)
	}
	if got := len(s.Enumerate("listPosts")); got != 0 {
		t.Fatalf("Enumerate after evict = %d; want 0", got)
	}
	if _, ok := s.Read(tags); !ok {
		t.Fatal("other field evicted")
	}
}

func TestEvict(t *testing.T) {
	s := NewStore(DefaultConfig())
	key := s.Put("listPosts", nil, nil, PageInfo{})
	if !s.Evict(key) {
		t.Fatal("Evict reported miss")
	}
	if s.Evict(key) {
		t.Fatal("second Evict reported hit")
	}
	if _, ok := s.Read(key); ok {
		t.Fatal("entry still readable")
	}
}

func TestGetOrLoad(t *testing.T) {
	s := NewStore(DefaultConfig())
	args := json.RawMessage(`{"filter":"x"}`)
	var calls atomic.Int32
	load := func() ([]post.Post, PageInfo, error) {
		calls.Add(1)
		time.Sleep(10 * time.Millisecond)
		return items("a"), PageInfo{Next: "n"}, nil
	}

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.GetOrLoad("listPosts", args, load); err != nil {
				t.Errorf("GetOrLoad: %v", err)
			}
		}()
	}
	wg.Wait()
	if got := calls.Load(); got != 1 {
		t.Fatalf("load called %d times; want 1", got)
	}

	res, err := s.GetOrLoad("listPosts", args, load)
	if err != nil || !res.Hit {
		t.Fatalf("GetOrLoad = hit %v, err %v; want cached hit", res.Hit, err)
	}
	if res.PageInfo.Next != "n" {
		t.Fatalf("page info = %+v", res.PageInfo)
	}
}

func TestGetOrLoad_CountsOnce(t *testing.T) {
	s := NewStore(DefaultConfig())
	args := json.RawMessage(`{"filter":"x"}`)
	load := func() ([]post.Post, PageInfo, error) { return items("a"), PageInfo{}, nil }

	cold, err := s.GetOrLoad("listPosts", args, load)
	if err != nil || cold.Hit || cold.Age != 0 {
		t.Fatalf("cold = %+v, err %v; want miss with zero age", cold, err)
	}
	warm, err := s.GetOrLoad("listPosts", args, load)
	if err != nil || !warm.Hit {
		t.Fatalf("warm = %+v, err %v; want hit", warm, err)
	}

	st := s.Stats()
	if st.Hits != 1 || st.Misses != 1 {
		t.Fatalf("hits = %d, misses = %d; want 1 and 1", st.Hits, st.Misses)
	}
	if st.HitRate != 0.5 {
		t.Fatalf("hit rate = %v; want 0.5", st.HitRate)
	}
}

func TestGetOrLoad_AdvanceDuringLoad(t *testing.T) {
	s := NewStore(DefaultConfig())
	args := json.RawMessage(`{"filter":"x"}`)

	res, err := s.GetOrLoad("listPosts", args, func() ([]post.Post, PageInfo, error) {
		// A repair pass starts while the page is being read.
		s.Advance()
		return items("a", "b"), PageInfo{Next: "n"}, nil
	})
	if err != nil {
		t.Fatalf("GetOrLoad: %v", err)
	}
	if res.Hit || len(res.Items) != 2 || res.PageInfo.Next != "n" {
		t.Fatalf("result = %+v; want the loaded page", res)
	}
	if s.Len() != 0 {
		t.Fatalf("stale page cached: %d entries", s.Len())
	}

	// The next load starts in the new generation and is kept.
	if _, err := s.GetOrLoad("listPosts", args, func() ([]post.Post, PageInfo, error) {
		return items("a"), PageInfo{}, nil
	}); err != nil {
		t.Fatalf("GetOrLoad: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("entries = %d; want 1", s.Len())
	}
}

func TestDroppedPagesLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := NewStore(Config{MaxEntries: 1}, WithLogger(logger))

	first := s.Put("listPosts", json.RawMessage(`{"filter":"a"}`), items("a"), PageInfo{})
	s.Put("listPosts", json.RawMessage(`{"filter":"b"}`), items("b"), PageInfo{})

	if _, ok := s.Read(first); ok {
		t.Fatal("oldest page still cached")
	}
	if !strings.Contains(buf.String(), "cached page dropped") || !strings.Contains(buf.String(), first.String()) {
		t.Fatalf("log = %q; want drop of %s", buf.String(), first)
	}

	// Explicit eviction is not a drop.
	buf.Reset()
	s.EvictField("listPosts")
	if buf.Len() != 0 {
		t.Fatalf("log after EvictField = %q; want empty", buf.String())
	}
}

func TestGetOrLoad_ErrorNotCached(t *testing.T) {
	s := NewStore(DefaultConfig())
	boom := errors.New("boom")
	_, err := s.GetOrLoad("listPosts", nil, func() ([]post.Post, PageInfo, error) {
		return nil, PageInfo{}, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v; want boom", err)
	}
	if s.Len() != 0 {
		t.Fatal("failed load was cached")
	}
}

func TestResolveTTL(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want time.Duration
	}{
		{0, 100 * 365 * 24 * time.Hour},
		{-1, 30 * time.Minute},
		{5 * time.Minute, 5 * time.Minute},
	}
	for _, tt := range tests {
		if got := (Config{TTL: tt.ttl}).resolveTTL(); got != tt.want {
			t.Errorf("resolveTTL(%v) = %v; want %v", tt.ttl, got, tt.want)
		}
	}
}
