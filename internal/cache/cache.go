package cache

import (
	"container/list"
	"sync"
	"time"
)

// Cache is a generic in-memory cache with LRU eviction and TTL expiry.
// Reads through Peek and Range do not count as use and never reorder the
// eviction list.
type Cache[K comparable, V any] struct {
	mu         sync.Mutex
	items      map[K]*list.Element
	evictList  *list.List
	maxEntries int
	defaultTTL time.Duration
	stats      Stats
	onEvict    func(K, V)
}

type entry[K comparable, V any] struct {
	key       K
	value     V
	createdAt time.Time
	expiresAt time.Time
}

// Item is a point-in-time copy of one cache entry.
type Item[K comparable, V any] struct {
	Key       K
	Value     V
	CreatedAt time.Time
}

// New creates a cache with the given max entries and default TTL.
func New[K comparable, V any](maxEntries int, defaultTTL time.Duration) *Cache[K, V] {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &Cache[K, V]{
		items:      make(map[K]*list.Element),
		evictList:  list.New(),
		maxEntries: maxEntries,
		defaultTTL: defaultTTL,
	}
}

// OnEvict registers fn to be called, with the lock held, for every entry
// dropped by capacity or expiry. Explicit invalidation does not call it.
func (c *Cache[K, V]) OnEvict(fn func(K, V)) {
	c.mu.Lock()
	c.onEvict = fn
	c.mu.Unlock()
}

// Get retrieves a value and marks it as recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	v, _, ok := c.GetWithAge(key)
	return v, ok
}

// GetWithAge retrieves a value and its age. Returns the value, the time
// since it was stored, and true if found and not expired.
func (c *Cache[K, V]) GetWithAge(key K) (V, time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	el, ok := c.liveLocked(key, now)
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, 0, false
	}

	e := el.Value.(*entry[K, V])
	c.evictList.MoveToFront(el)
	c.stats.Hits++
	return e.value, now.Sub(e.createdAt), true
}

// Peek retrieves a value without touching recency or hit counters.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	e := el.Value.(*entry[K, V])
	if time.Now().After(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores a value with the default TTL.
func (c *Cache[K, V]) Set(key K, value V) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL stores a value with a custom TTL.
func (c *Cache[K, V]) SetWithTTL(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if el, ok := c.items[key]; ok {
		c.evictList.MoveToFront(el)
		e := el.Value.(*entry[K, V])
		e.value = value
		e.createdAt = now
		e.expiresAt = now.Add(ttl)
		return
	}

	e := &entry[K, V]{
		key:       key,
		value:     value,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
	el := c.evictList.PushFront(e)
	c.items[key] = el

	for c.evictList.Len() > c.maxEntries {
		c.evictOldestLocked()
	}
}

// Update calls fn with a pointer to the stored value so it can be changed in
// place. The entry keeps its age, TTL and position in the eviction list.
// Returns false if the key is absent or expired, or if fn returns false.
func (c *Cache[K, V]) Update(key K, fn func(*V) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.liveLocked(key, time.Now())
	if !ok {
		return false
	}
	e := el.Value.(*entry[K, V])
	if !fn(&e.value) {
		return false
	}
	c.stats.Updates++
	return true
}

// Invalidate removes a single key and reports whether it was present.
func (c *Cache[K, V]) Invalidate(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.removeLocked(el)
	return true
}

// InvalidateFunc removes all entries for which predicate returns true and
// returns how many were removed.
func (c *Cache[K, V]) InvalidateFunc(predicate func(K) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key, el := range c.items {
		if predicate(key) {
			c.removeLocked(el)
			n++
		}
	}
	return n
}

// Range returns copies of all live entries accepted by predicate, most
// recently used first. A nil predicate accepts everything.
func (c *Cache[K, V]) Range(predicate func(K) bool) []Item[K, V] {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var out []Item[K, V]
	for el := c.evictList.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry[K, V])
		if now.After(e.expiresAt) {
			continue
		}
		if predicate != nil && !predicate(e.key) {
			continue
		}
		out = append(out, Item[K, V]{Key: e.key, Value: e.value, CreatedAt: e.createdAt})
	}
	return out
}

// Flush removes all entries from the cache.
func (c *Cache[K, V]) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[K]*list.Element)
	c.evictList.Init()
}

// Len returns the number of entries in the cache, expired or not.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns a snapshot of cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = len(c.items)
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

// ResetStats zeroes the counters.
func (c *Cache[K, V]) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = Stats{}
}

// liveLocked returns the element for key, dropping it first if it expired.
func (c *Cache[K, V]) liveLocked(key K, now time.Time) (*list.Element, bool) {
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry[K, V])
	if now.After(e.expiresAt) {
		c.removeLocked(el)
		c.stats.Expirations++
		if c.onEvict != nil {
			c.onEvict(e.key, e.value)
		}
		return nil, false
	}
	return el, true
}

func (c *Cache[K, V]) removeLocked(el *list.Element) {
	e := el.Value.(*entry[K, V])
	delete(c.items, e.key)
	c.evictList.Remove(el)
}

func (c *Cache[K, V]) evictOldestLocked() {
	el := c.evictList.Back()
	if el == nil {
		return
	}
	e := el.Value.(*entry[K, V])
	c.removeLocked(el)
	c.stats.Evictions++
	if c.onEvict != nil {
		c.onEvict(e.key, e.value)
	}
}
