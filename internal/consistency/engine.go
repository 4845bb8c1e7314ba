package consistency

import (
	"log/slog"
	"sync"
	"time"

	"github.com/revittco/postdesk/internal/listing"
)

// Report describes what one pass did.
type Report struct {
	Effects   int             `json:"effects"`
	Views     int             `json:"views"`
	Patched   []ViewSignature `json:"-"`
	Evicted   []ViewSignature `json:"-"`
	FullFlush bool            `json:"full_flush"`
	// Recovered holds the CacheIntegrityError that aborted the pass, if any.
	// The field namespace was evicted in its place.
	Recovered error         `json:"-"`
	Duration  time.Duration `json:"duration"`
}

// Publisher receives a Report after every pass.
type Publisher interface {
	Publish(Report)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithPolicy sets the invalidation policy.
func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithPublisher sets where pass reports are sent.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithField overrides the cache field holding list-posts pages.
func WithField(field string) Option {
	return func(e *Engine) { e.field = field }
}

// Engine applies mutation effects to the cached list-posts views.
type Engine struct {
	store     CacheStore
	field     string
	policy    Policy
	logger    *slog.Logger
	publisher Publisher
	registry  *Registry

	// mu serializes passes; Apply is not reentrant.
	mu sync.Mutex
}

// NewEngine creates an engine repairing the list-posts entries of store.
func NewEngine(store CacheStore, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		field:  listing.Field,
		policy: Policy{BulkUnfiltered: BulkPatch},
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	e.registry = NewRegistry(store, e.field, e.logger)
	return e
}

// Apply runs one pass for a single effect.
func (e *Engine) Apply(effect MutationEffect) Report {
	return e.ApplyBatch([]MutationEffect{effect})
}

// ApplyBatch runs one pass for effects that resolved together. All effects
// are classified against the same snapshot.
func (e *Engine) ApplyBatch(effects []MutationEffect) Report {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	// Loads already in flight read the collection before this write.
	e.store.Advance()
	rep, err := e.run(effects)
	if err != nil {
		removed := e.store.EvictField(e.field)
		e.registry.Forget()
		e.logger.Error("cache integrity failure, evicted field",
			"field", e.field, "removed", removed, "error", err)
		rep.FullFlush = true
		rep.Recovered = err
	}
	rep.Effects = len(effects)
	rep.Duration = time.Since(start)

	e.logger.Debug("invalidation pass",
		"effects", rep.Effects, "views", rep.Views,
		"patched", len(rep.Patched), "evicted", len(rep.Evicted),
		"full_flush", rep.FullFlush)
	if e.publisher != nil {
		e.publisher.Publish(rep)
	}
	return rep
}

// pass is the state of one ApplyBatch call.
type pass struct {
	engine  *Engine
	snap    *Snapshot
	walker  *Walker
	evicted map[ViewSignature]bool
	patched map[ViewSignature]bool
	report  Report
}

func (e *Engine) run(effects []MutationEffect) (Report, error) {
	snap, err := e.registry.Snapshot()
	if err != nil {
		return Report{}, err
	}
	p := &pass{
		engine:  e,
		snap:    snap,
		walker:  NewWalker(snap, e.logger),
		evicted: make(map[ViewSignature]bool),
		patched: make(map[ViewSignature]bool),
		report:  Report{Views: snap.Len()},
	}

	for _, eff := range effects {
		if eff.FullyUnknown {
			for _, v := range snap.Views() {
				p.evict(v.Signature)
			}
			p.report.FullFlush = true
			return p.report, nil
		}
	}

	batched := len(effects) > 1
	for _, eff := range effects {
		if err := p.applyEffect(eff, batched); err != nil {
			return p.report, err
		}
	}
	return p.report, nil
}

func (p *pass) applyEffect(eff MutationEffect, batched bool) error {
	policy := p.engine.policy
	for _, v := range p.snap.Views() {
		if p.evicted[v.Signature] {
			continue
		}
		switch policy.Decide(v.Signature.Filter, eff.Old, eff.New, batched) {
		case PatchInPlace:
			p.patch(v, eff)
		case EvictFromHere:
			err := p.walker.Walk(v.Signature, func(sig ViewSignature) bool {
				if p.evicted[sig] {
					// Its tail went with it.
					return false
				}
				p.evict(sig)
				return true
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *pass) patch(v View, eff MutationEffect) {
	hit := false
	for _, k := range v.Keys {
		if p.engine.store.PatchItem(k, eff.ItemID, eff.patch()) {
			hit = true
		}
	}
	if hit && !p.patched[v.Signature] {
		p.patched[v.Signature] = true
		p.report.Patched = append(p.report.Patched, v.Signature)
	}
}

func (p *pass) evict(sig ViewSignature) {
	if p.evicted[sig] {
		return
	}
	v, ok := p.snap.Lookup(sig)
	if !ok {
		return
	}
	for _, k := range v.Keys {
		p.engine.store.Evict(k)
	}
	p.evicted[sig] = true
	p.report.Evicted = append(p.report.Evicted, sig)
}
