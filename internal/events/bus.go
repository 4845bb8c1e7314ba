// Package events fans invalidation reports out to in-process listeners.
package events

import (
	"sync"
	"sync/atomic"

	"github.com/revittco/postdesk/internal/consistency"
)

// Filter selects the reports a subscriber receives. The zero Filter
// accepts every report.
type Filter struct {
	// Changed drops passes that neither patched nor evicted a page.
	Changed bool
	// FullFlush keeps only passes that flushed the whole list-posts field,
	// including integrity recoveries.
	FullFlush bool
}

// Match reports whether rep passes f.
func (f Filter) Match(rep consistency.Report) bool {
	if f.FullFlush && !rep.FullFlush {
		return false
	}
	if f.Changed && !rep.FullFlush && len(rep.Patched) == 0 && len(rep.Evicted) == 0 {
		return false
	}
	return true
}

type subscriber struct {
	ch     chan consistency.Report
	filter Filter
}

// Bus fans out invalidation reports to subscribers in real time.
// It satisfies consistency.Publisher.
type Bus struct {
	mu      sync.RWMutex
	subs    map[<-chan consistency.Report]subscriber
	dropped atomic.Uint64
}

var _ consistency.Publisher = (*Bus)(nil)

// NewBus creates a new report bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[<-chan consistency.Report]subscriber),
	}
}

// Subscribe registers a listener for the reports f matches and returns a
// receive-only channel. The caller must call Unsubscribe when done.
func (b *Bus) Subscribe(f Filter) <-chan consistency.Report {
	ch := make(chan consistency.Report, 64)
	b.mu.Lock()
	b.subs[ch] = subscriber{ch: ch, filter: f}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener and closes its channel.
func (b *Bus) Unsubscribe(ch <-chan consistency.Report) {
	b.mu.Lock()
	if s, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(s.ch)
	}
	b.mu.Unlock()
}

// Publish sends a report to every matching subscriber without blocking.
// Reports a full subscriber cannot take are dropped and counted.
func (b *Bus) Publish(rep consistency.Report) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		if !s.filter.Match(rep) {
			continue
		}
		select {
		case s.ch <- rep:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped returns how many reports were lost to full subscribers.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close unsubscribes every listener.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, s := range b.subs {
		delete(b.subs, k)
		close(s.ch)
	}
}
