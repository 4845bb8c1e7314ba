// Package blog is the query and mutation layer over the post store. Reads
// go through the query-result cache; every mutation hands its effect to the
// consistency engine so cached list views stay correct.
package blog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/revittco/postdesk/internal/consistency"
	"github.com/revittco/postdesk/internal/listing"
	"github.com/revittco/postdesk/internal/post"
	"github.com/revittco/postdesk/internal/querycache"
	"github.com/revittco/postdesk/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultPageSize is the number of posts per list page.
const DefaultPageSize = 20

var tracer = otel.Tracer("github.com/revittco/postdesk/internal/blog")

// Service serves list-posts queries from the cache and applies mutations.
type Service struct {
	store    store.Store
	cache    *querycache.Store
	engine   *consistency.Engine
	pageSize int
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithPageSize sets the number of posts per list page.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithLogger sets the service's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service. engine must repair the entries of qc.
func NewService(st store.Store, qc *querycache.Store, engine *consistency.Engine, opts ...Option) *Service {
	s := &Service{
		store:    st,
		cache:    qc,
		engine:   engine,
		pageSize: DefaultPageSize,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ListResult is one list-posts page with cache metadata.
type ListResult struct {
	Items    []post.Post
	PageInfo querycache.PageInfo
	CacheHit bool
	CacheAge time.Duration // age of cached data; zero if not a cache hit
}

// ListPosts runs the list-posts query for raw arguments, serving the page
// from the cache when it is there. The arguments are cached exactly as
// given.
func (s *Service) ListPosts(ctx context.Context, args json.RawMessage) (ListResult, error) {
	ctx, span := tracer.Start(ctx, "blog.ListPosts")
	defer span.End()

	a, err := listing.ParseArgs(args)
	if err != nil {
		return ListResult{}, s.fail(span, invalid("args", "%v", err))
	}
	q, err := a.Query(s.pageSize)
	if err != nil {
		return ListResult{}, s.fail(span, invalid("args", "%v", err))
	}
	span.SetAttributes(
		attribute.String("list.filter", q.Filter.String()),
		attribute.String("list.order_by", q.Sort.String()),
	)

	res, err := s.cache.GetOrLoad(listing.Field, args, func() ([]post.Post, querycache.PageInfo, error) {
		page, err := s.store.ListPosts(ctx, q)
		if err != nil {
			return nil, querycache.PageInfo{}, err
		}
		info := querycache.PageInfo{After: listing.EncodeCursor(page.After)}
		if page.HasNext {
			info.Next = listing.EncodeCursor(page.Next)
		}
		return page.Items, info, nil
	})
	if err != nil {
		return ListResult{}, s.fail(span, fmt.Errorf("list posts: %w", err))
	}
	span.SetAttributes(attribute.Bool("cache.hit", res.Hit))
	return ListResult{Items: res.Items, PageInfo: res.PageInfo, CacheHit: res.Hit, CacheAge: res.Age}, nil
}

// ListPage is ListPosts for already parsed arguments.
func (s *Service) ListPage(ctx context.Context, filter post.StatusFilter, sort post.SortKey, pageToken string) (ListResult, error) {
	a := listing.Args{
		Filter:    listing.FormatFilter(filter),
		OrderBy:   listing.FormatOrderBy(sort),
		PageToken: pageToken,
	}
	return s.ListPosts(ctx, a.Raw())
}

// GetPost reads one post from the store.
func (s *Service) GetPost(ctx context.Context, id string) (*post.Post, error) {
	p, err := s.store.GetPost(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get post %s: %w", id, err)
	}
	return p, nil
}

// apply hands resolved changes to the engine. A single change runs as its
// own pass; several share one.
func (s *Service) apply(o Outcome, changes []change, failed []string) consistency.Report {
	effects := effectsFor(o, changes, failed)
	switch len(effects) {
	case 0:
		return consistency.Report{}
	case 1:
		return s.engine.Apply(effects[0])
	default:
		return s.engine.ApplyBatch(effects)
	}
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
