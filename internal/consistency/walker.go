package consistency

import (
	"log/slog"

	"github.com/revittco/postdesk/internal/listing"
	"github.com/revittco/postdesk/internal/querycache"
)

// PageInfoReader resolves the materialized pagination tokens of a view.
// *Snapshot satisfies it.
type PageInfoReader interface {
	ReadPageInfo(sig ViewSignature) (querycache.PageInfo, bool)
}

// Walker follows cursor chains between cached views. It only ever looks at
// what is materialized; a continuation that is not cached ends the chain.
type Walker struct {
	pages  PageInfoReader
	logger *slog.Logger
}

// NewWalker creates a walker over pages.
func NewWalker(pages PageInfoReader, logger *slog.Logger) *Walker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Walker{pages: pages, logger: logger}
}

// NextSignature returns the signature of the page after sig, if sig is
// cached, has a next cursor, and that next page is cached too.
func (w *Walker) NextSignature(sig ViewSignature) (ViewSignature, bool) {
	info, ok := w.pages.ReadPageInfo(sig)
	if !ok || info.Next == "" {
		return ViewSignature{}, false
	}
	c, err := listing.DecodeCursor(info.Next)
	if err != nil {
		w.logger.Debug("unreadable next cursor ends chain", "view", sig.String(), "error", err)
		return ViewSignature{}, false
	}
	next := sig.At(c)
	if _, ok := w.pages.ReadPageInfo(next); !ok {
		return ViewSignature{}, false
	}
	return next, true
}

// Walk calls visit for sig and then for each following page in the chain.
// It stops at the end of the chain or as soon as visit returns false. A
// signature that comes round a second time is a CacheIntegrityError.
func (w *Walker) Walk(sig ViewSignature, visit func(ViewSignature) bool) error {
	visited := make(map[ViewSignature]bool)
	for cur, ok := sig, true; ok; {
		if visited[cur] {
			return &CacheIntegrityError{Reason: "cursor chain cycle", Signature: cur}
		}
		visited[cur] = true

		// Resolve the successor before visiting: visit may evict cur.
		next, hasNext := w.NextSignature(cur)
		if !visit(cur) {
			return nil
		}
		cur, ok = next, hasNext
	}
	return nil
}
