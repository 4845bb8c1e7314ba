package blog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/revittco/postdesk/internal/post"
	"github.com/revittco/postdesk/internal/store"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// absent is the classification of an item that does not exist (yet).
var absent = post.Classification{Deleted: true}

const maxTitleLen = 200

// NewPost holds the fields of a post to create.
type NewPost struct {
	Title  string
	Body   string
	Status post.Status
	Tags   []string
}

// CreatePost validates and stores a new post. Cached views the post
// qualifies for are evicted; the engine never guesses where it would sort.
func (s *Service) CreatePost(ctx context.Context, in NewPost) (MutationResult, error) {
	ctx, span := tracer.Start(ctx, "blog.CreatePost")
	defer span.End()

	p := &post.Post{
		Title:  strings.TrimSpace(in.Title),
		Body:   in.Body,
		Status: in.Status,
		Tags:   in.Tags,
	}
	if p.Status == "" {
		p.Status = post.StatusUnpublished
	}
	if err := s.validateNew(ctx, p); err != nil {
		return s.rejected(span, err)
	}
	if err := s.store.CreatePost(ctx, p); err != nil {
		return MutationResult{}, s.fail(span, fmt.Errorf("create post: %w", err))
	}
	span.SetAttributes(attribute.String("post.id", p.ID))

	rep := s.apply(Success, []change{{id: p.ID, old: absent, new: p.Classification(), at: p.UpdatedAt}}, nil)
	s.done(span, Success)
	return MutationResult{Outcome: Success, Post: p, Report: rep}, nil
}

func (s *Service) validateNew(ctx context.Context, p *post.Post) error {
	if p.Title == "" {
		return invalid("title", "must not be empty")
	}
	if len(p.Title) > maxTitleLen {
		return invalid("title", "longer than %d characters", maxTitleLen)
	}
	if _, err := post.ParseStatus(string(p.Status)); err != nil {
		return invalid("status", "%v", err)
	}
	return s.validateTags(ctx, p.Tags)
}

func (s *Service) validateTags(ctx context.Context, tags []string) error {
	for _, name := range tags {
		if _, err := s.store.GetTagByName(ctx, name); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return invalid("tags", "unknown tag %q", name)
			}
			return fmt.Errorf("look up tag %q: %w", name, err)
		}
	}
	return nil
}

// Publish makes a post PUBLISHED.
func (s *Service) Publish(ctx context.Context, id string) (MutationResult, error) {
	return s.transition(ctx, "Publish", id, setStatus(post.StatusPublished))
}

// Unpublish makes a post UNPUBLISHED.
func (s *Service) Unpublish(ctx context.Context, id string) (MutationResult, error) {
	return s.transition(ctx, "Unpublish", id, setStatus(post.StatusUnpublished))
}

// Bin moves a post to the bin. Its status is kept for a later restore.
func (s *Service) Bin(ctx context.Context, id string) (MutationResult, error) {
	return s.transition(ctx, "Bin", id, setBinned(true))
}

// Restore takes a post out of the bin.
func (s *Service) Restore(ctx context.Context, id string) (MutationResult, error) {
	return s.transition(ctx, "Restore", id, setBinned(false))
}

func setStatus(st post.Status) func(*post.Post) error {
	return func(p *post.Post) error {
		if p.Binned {
			return invalid("status", "post %s is binned; restore it first", p.ID)
		}
		if st == post.StatusPublished && strings.TrimSpace(p.Title) == "" {
			return invalid("title", "a post needs a title before it can be published")
		}
		p.Status = st
		return nil
	}
}

func setBinned(binned bool) func(*post.Post) error {
	return func(p *post.Post) error {
		p.Binned = binned
		return nil
	}
}

// Delete removes a post for good.
func (s *Service) Delete(ctx context.Context, id string) (MutationResult, error) {
	ctx, span := tracer.Start(ctx, "blog.Delete", trace.WithAttributes(attribute.String("post.id", id)))
	defer span.End()

	p, err := s.store.GetPost(ctx, id)
	if err != nil {
		return MutationResult{}, s.fail(span, fmt.Errorf("delete post %s: %w", id, err))
	}
	if err := s.store.DeletePost(ctx, id); err != nil {
		return MutationResult{}, s.fail(span, fmt.Errorf("delete post %s: %w", id, err))
	}

	rep := s.apply(Success, []change{{id: id, old: p.Classification(), new: absent}}, nil)
	s.done(span, Success)
	return MutationResult{Outcome: Success, Report: rep}, nil
}

// transition reads a post, lets fn change its classification and writes it
// back. Nothing is written when fn leaves the classification as it was.
func (s *Service) transition(ctx context.Context, op, id string, fn func(*post.Post) error) (MutationResult, error) {
	ctx, span := tracer.Start(ctx, "blog."+op, trace.WithAttributes(attribute.String("post.id", id)))
	defer span.End()

	p, err := s.store.GetPost(ctx, id)
	if err != nil {
		return MutationResult{}, s.fail(span, fmt.Errorf("%s %s: %w", strings.ToLower(op), id, err))
	}
	old := p.Classification()
	next := *p
	if err := fn(&next); err != nil {
		return s.rejected(span, err)
	}
	if next.Classification() == old {
		s.done(span, Unchanged)
		return MutationResult{Outcome: Unchanged, Post: p}, nil
	}
	if err := s.store.UpdatePost(ctx, &next); err != nil {
		return MutationResult{}, s.fail(span, fmt.Errorf("%s %s: %w", strings.ToLower(op), id, err))
	}

	rep := s.apply(Success, []change{{id: id, old: old, new: next.Classification(), at: next.UpdatedAt}}, nil)
	s.done(span, Success)
	return MutationResult{Outcome: Success, Post: &next, Report: rep}, nil
}

// BulkSetStatus sets the status of several posts.
func (s *Service) BulkSetStatus(ctx context.Context, ids []string, st post.Status) (MutationResult, error) {
	if _, err := post.ParseStatus(string(st)); err != nil {
		return MutationResult{Outcome: Invalid}, invalid("status", "%v", err)
	}
	return s.bulk(ctx, "BulkSetStatus", ids, setStatus(st))
}

// BulkBin moves several posts to the bin.
func (s *Service) BulkBin(ctx context.Context, ids []string) (MutationResult, error) {
	return s.bulk(ctx, "BulkBin", ids, setBinned(true))
}

// BulkRestore takes several posts out of the bin.
func (s *Service) BulkRestore(ctx context.Context, ids []string) (MutationResult, error) {
	return s.bulk(ctx, "BulkRestore", ids, setBinned(false))
}

// bulk applies fn to each post independently. Posts that fail do not stop
// the others; if some fail and some are written the outcome is a partial
// success and the resulting state is treated as unknown.
func (s *Service) bulk(ctx context.Context, op string, ids []string, fn func(*post.Post) error) (MutationResult, error) {
	ctx, span := tracer.Start(ctx, "blog."+op, trace.WithAttributes(attribute.Int("post.count", len(ids))))
	defer span.End()

	if len(ids) == 0 {
		return s.rejected(span, invalid("ids", "no posts selected"))
	}

	var (
		changes []change
		written []post.Post
		failed  []string
		errs    []error
	)
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		p, err := s.store.GetPost(ctx, id)
		if err != nil {
			failed = append(failed, id)
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		old := p.Classification()
		next := *p
		if err := fn(&next); err != nil {
			failed = append(failed, id)
			errs = append(errs, err)
			continue
		}
		if next.Classification() == old {
			continue
		}
		if err := s.store.UpdatePost(ctx, &next); err != nil {
			failed = append(failed, id)
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		changes = append(changes, change{id: id, old: old, new: next.Classification(), at: next.UpdatedAt})
		written = append(written, next)
	}

	var res MutationResult
	switch {
	case len(failed) == 0 && len(changes) == 0:
		res = MutationResult{Outcome: Unchanged}
	case len(failed) == 0:
		res = MutationResult{Outcome: Success, Posts: written}
	case len(changes) == 0:
		err := errors.Join(errs...)
		s.done(span, Invalid)
		return MutationResult{Outcome: Invalid}, s.fail(span, fmt.Errorf("%s: %w", strings.ToLower(op), err))
	default:
		res = MutationResult{
			Outcome: PartialSuccess,
			Posts:   written,
			Warning: fmt.Sprintf("%d of %d posts failed: %s", len(failed), len(seen), joinErrors(errs)),
		}
		s.logger.Warn("bulk mutation partially failed",
			"op", op, "failed", len(failed), "written", len(changes))
	}

	res.Report = s.apply(res.Outcome, changes, failed)
	s.done(span, res.Outcome)
	return res, nil
}

// rejected returns an Invalid result for validation errors and passes other
// errors through.
func (s *Service) rejected(span trace.Span, err error) (MutationResult, error) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		s.done(span, Invalid)
		return MutationResult{Outcome: Invalid}, s.fail(span, err)
	}
	return MutationResult{}, s.fail(span, err)
}

func (s *Service) done(span trace.Span, o Outcome) {
	span.SetAttributes(attribute.String("mutation.outcome", o.String()))
}

func joinErrors(errs []error) string {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}
