package consistency

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/revittco/postdesk/internal/post"
	"github.com/revittco/postdesk/internal/querycache"
)

// View is one cached page as seen by a snapshot. Keys holds every stored
// entry whose arguments canonicalize to Signature; Items and PageInfo come
// from the most recently used of them.
type View struct {
	Signature ViewSignature
	Keys      []querycache.Key
	Items     []post.Post
	PageInfo  querycache.PageInfo
}

// Snapshot is an immutable listing of the views cached at one instant.
type Snapshot struct {
	order []ViewSignature
	views map[ViewSignature]*View
}

// Views returns the views in enumeration order.
func (s *Snapshot) Views() []View {
	out := make([]View, 0, len(s.order))
	for _, sig := range s.order {
		out = append(out, *s.views[sig])
	}
	return out
}

// Lookup returns the view cached under sig.
func (s *Snapshot) Lookup(sig ViewSignature) (View, bool) {
	v, ok := s.views[sig]
	if !ok {
		return View{}, false
	}
	return *v, true
}

// ReadPageInfo returns the pagination tokens the view under sig had when
// the snapshot was taken.
func (s *Snapshot) ReadPageInfo(sig ViewSignature) (querycache.PageInfo, bool) {
	v, ok := s.views[sig]
	if !ok {
		return querycache.PageInfo{}, false
	}
	return v.PageInfo, true
}

// Len returns the number of distinct views.
func (s *Snapshot) Len() int {
	return len(s.order)
}

// Registry enumerates cached list-posts pages as views.
type Registry struct {
	store  CacheStore
	field  string
	logger *slog.Logger

	mu sync.Mutex
	// seen maps each key that parsed in the previous snapshot to the
	// signature it produced.
	seen map[querycache.Key]ViewSignature
}

// NewRegistry creates a registry over the entries of field in store.
func NewRegistry(store CacheStore, field string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		store:  store,
		field:  field,
		logger: logger,
		seen:   make(map[querycache.Key]ViewSignature),
	}
}

// Snapshot enumerates the store and parses every entry. Entries that cannot
// be parsed are skipped. It returns a CacheIntegrityError if an entry that
// parsed in an earlier snapshot now fails or yields another signature.
func (r *Registry) Snapshot() (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.store.Enumerate(r.field)
	snap := &Snapshot{views: make(map[ViewSignature]*View, len(entries))}
	seen := make(map[querycache.Key]ViewSignature, len(entries))

	for _, e := range entries {
		sig, err := ParseSignature(e.Args)
		prev, known := r.seen[e.Key]
		if err != nil {
			if known {
				return nil, &CacheIntegrityError{Reason: "entry no longer parses", Signature: prev, Err: err}
			}
			r.logger.Debug("skipping unparsable cache entry",
				"key", e.Key.String(), "args", string(e.Args), "error", err)
			continue
		}
		if known && prev != sig {
			return nil, &CacheIntegrityError{Reason: "entry changed signature to " + sig.String(), Signature: prev}
		}
		seen[e.Key] = sig

		if v, ok := snap.views[sig]; ok {
			v.Keys = append(v.Keys, e.Key)
			continue
		}
		snap.views[sig] = &View{
			Signature: sig,
			Keys:      []querycache.Key{e.Key},
			Items:     slices.Clone(e.Items),
			PageInfo:  e.PageInfo,
		}
		snap.order = append(snap.order, sig)
	}

	r.seen = seen
	return snap, nil
}

// Forget drops what the registry remembers about earlier snapshots. Used
// after the whole field has been evicted.
func (r *Registry) Forget() {
	r.mu.Lock()
	r.seen = make(map[querycache.Key]ViewSignature)
	r.mu.Unlock()
}
