// Package querycache stores query results as entries keyed by the queried
// field name plus a hash of the call arguments.
package querycache

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/revittco/postdesk/internal/cache"
	"github.com/revittco/postdesk/internal/post"
	"golang.org/x/sync/singleflight"
)

// Key uniquely identifies a cached query result.
type Key struct {
	Field    string
	ArgsHash uint64
}

func (k Key) String() string {
	return k.Field + ":" + strconv.FormatUint(k.ArgsHash, 16)
}

// PageInfo holds the pagination tokens of a cached page. An empty Next means
// the page is the last one; an empty After means it is the first.
type PageInfo struct {
	After string `json:"after"`
	Next  string `json:"next,omitempty"`
}

// Entry is one cached query result.
type Entry struct {
	Key       Key             `json:"-"`
	Field     string          `json:"field"`
	Args      json.RawMessage `json:"args"`
	Items     []post.Post     `json:"items"`
	PageInfo  PageInfo        `json:"page_info"`
	FetchedAt time.Time       `json:"fetched_at"`
}

func (e Entry) clone() Entry {
	e.Items = slices.Clone(e.Items)
	e.Args = slices.Clone(e.Args)
	return e
}

// Store is an in-memory query-result cache with LRU eviction and TTL
// expiry. All returned entries are copies.
type Store struct {
	cache  *cache.Cache[Key, Entry]
	cfg    Config
	group  singleflight.Group
	logger *slog.Logger

	// genMu orders Advance against the store step of GetOrLoad.
	genMu sync.Mutex
	gen   uint64
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger that reports pages dropped by capacity or TTL.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a store with the given sizing.
func NewStore(cfg Config, opts ...StoreOption) *Store {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultConfig().MaxEntries
	}
	s := &Store{
		cache:  cache.New[Key, Entry](cfg.MaxEntries, cfg.resolveTTL()),
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	s.cache.OnEvict(s.dropped)
	return s
}

// dropped runs with the cache lock held and must not call back into it.
// A dropped page cuts the cursor chain it belonged to; the pages after it
// stay cached and are still reachable by their own tokens.
func (s *Store) dropped(key Key, e Entry) {
	s.logger.Debug("cached page dropped",
		"key", key.String(), "items", len(e.Items),
		"age", time.Since(e.FetchedAt).Round(time.Millisecond))
}

// Advance starts a new generation. Loads that began before the call still
// return their result but do not store it, so a page read before a write
// cannot land in the cache after that write was repaired.
func (s *Store) Advance() {
	s.genMu.Lock()
	s.gen++
	s.genMu.Unlock()
}

func (s *Store) generation() uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gen
}

// MakeKey creates a Key from a field name and its arguments. Argument objects
// that differ only in key order or whitespace hash the same.
func MakeKey(field string, args json.RawMessage) Key {
	return Key{Field: field, ArgsHash: xxhash.Sum64(canonicalArgs(args))}
}

// canonicalArgs re-encodes a JSON object with sorted keys. Anything that is
// not valid JSON is hashed as given.
func canonicalArgs(args json.RawMessage) []byte {
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []byte("{}")
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return trimmed
	}
	out, err := json.Marshal(v)
	if err != nil {
		return trimmed
	}
	return out
}

func newEntry(key Key, field string, args json.RawMessage, items []post.Post, info PageInfo) Entry {
	return Entry{
		Key:       key,
		Field:     field,
		Args:      slices.Clone(args),
		Items:     slices.Clone(items),
		PageInfo:  info,
		FetchedAt: time.Now().UTC(),
	}
}

// Put stores a query result and returns its key.
func (s *Store) Put(field string, args json.RawMessage, items []post.Post, info PageInfo) Key {
	key := MakeKey(field, args)
	s.cache.Set(key, newEntry(key, field, args, items, info))
	return key
}

// Lookup retrieves a cached result by field and arguments, marking it as
// recently used. Returns the entry, its age and whether it was found.
func (s *Store) Lookup(field string, args json.RawMessage) (Entry, time.Duration, bool) {
	e, age, ok := s.cache.GetWithAge(MakeKey(field, args))
	if !ok {
		return Entry{}, 0, false
	}
	return e.clone(), age, true
}

// Result is what GetOrLoad returns.
type Result struct {
	Entry
	Hit bool
	// Age is the age of the cached entry; zero after a load.
	Age time.Duration
}

// GetOrLoad returns the cached result for field and args, or calls loadFn
// and stores what it returns. Concurrent calls for the same key share one
// load. Each call counts once in the hit and miss statistics.
func (s *Store) GetOrLoad(field string, args json.RawMessage, loadFn func() ([]post.Post, PageInfo, error)) (Result, error) {
	if e, age, ok := s.Lookup(field, args); ok {
		return Result{Entry: e, Hit: true, Age: age}, nil
	}

	key := MakeKey(field, args)
	v, err, _ := s.group.Do(key.String(), func() (any, error) {
		gen := s.generation()
		items, info, err := loadFn()
		if err != nil {
			return nil, err
		}

		s.genMu.Lock()
		defer s.genMu.Unlock()
		if s.gen != gen {
			s.logger.Debug("stale load not cached", "key", key.String())
			return newEntry(key, field, args, items, info), nil
		}
		s.Put(field, args, items, info)
		e, _ := s.cache.Peek(key)
		return e, nil
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Entry: v.(Entry).clone()}, nil
}

// Read returns the entry stored under key without marking it as used.
func (s *Store) Read(key Key) (Entry, bool) {
	e, ok := s.cache.Peek(key)
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

// Evict removes the entry under key and reports whether one was present.
func (s *Store) Evict(key Key) bool {
	return s.cache.Invalidate(key)
}

// PatchItem merges patch into the item with itemID inside the entry under
// key. Page membership, order and PageInfo are left as they are. Returns
// false if the entry is gone or does not hold the item.
func (s *Store) PatchItem(key Key, itemID string, patch post.Patch) bool {
	return s.cache.Update(key, func(e *Entry) bool {
		i := slices.IndexFunc(e.Items, func(p post.Post) bool { return p.ID == itemID })
		if i < 0 {
			return false
		}
		patch.Apply(&e.Items[i])
		return true
	})
}

// Enumerate returns every live entry stored for field, most recently used
// first.
func (s *Store) Enumerate(field string) []Entry {
	items := s.cache.Range(func(k Key) bool { return k.Field == field })
	out := make([]Entry, 0, len(items))
	for _, it := range items {
		out = append(out, it.Value.clone())
	}
	return out
}

// EvictField removes every entry stored for field and returns how many
// were removed.
func (s *Store) EvictField(field string) int {
	return s.cache.InvalidateFunc(func(k Key) bool { return k.Field == field })
}

// Flush removes all entries.
func (s *Store) Flush() {
	s.cache.Flush()
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	return s.cache.Len()
}

// Stats returns cache performance metrics.
func (s *Store) Stats() cache.Stats {
	return s.cache.Stats()
}
