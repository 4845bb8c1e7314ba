package blog

import (
	"context"
	"fmt"
	"regexp"

	"github.com/revittco/postdesk/internal/consistency"
	"github.com/revittco/postdesk/internal/post"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tagNameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,39}$`)

// ValidateTagName reports whether name is a usable tag name: lower-case
// letters, digits and dashes, at most 40 characters.
func ValidateTagName(name string) error {
	if !tagNameRe.MatchString(name) {
		return invalid("name", "tag %q must match %s", name, tagNameRe)
	}
	return nil
}

// ListTags returns every tag ordered by name.
func (s *Service) ListTags(ctx context.Context) ([]post.Tag, error) {
	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

// CreateTag creates a tag.
func (s *Service) CreateTag(ctx context.Context, name string) (*post.Tag, error) {
	ctx, span := tracer.Start(ctx, "blog.CreateTag")
	defer span.End()

	if err := ValidateTagName(name); err != nil {
		return nil, s.fail(span, err)
	}
	t := &post.Tag{Name: name}
	if err := s.store.CreateTag(ctx, t); err != nil {
		return nil, s.fail(span, fmt.Errorf("create tag %q: %w", name, err))
	}
	return t, nil
}

// RenameTag renames a tag on every post carrying it. Cached pages show tag
// names, so when any post carries the tag the list-posts cache is flushed.
func (s *Service) RenameTag(ctx context.Context, id, name string) (*post.Tag, consistency.Report, error) {
	ctx, span := tracer.Start(ctx, "blog.RenameTag", trace.WithAttributes(attribute.String("tag.id", id)))
	defer span.End()

	if err := ValidateTagName(name); err != nil {
		return nil, consistency.Report{}, s.fail(span, err)
	}
	t, err := s.store.GetTag(ctx, id)
	if err != nil {
		return nil, consistency.Report{}, s.fail(span, fmt.Errorf("rename tag %s: %w", id, err))
	}
	if t.Name == name {
		return t, consistency.Report{}, nil
	}
	used, err := s.store.CountPostsWithTag(ctx, t.Name)
	if err != nil {
		return nil, consistency.Report{}, s.fail(span, fmt.Errorf("rename tag %s: %w", id, err))
	}

	t.Name = name
	if err := s.store.UpdateTag(ctx, t); err != nil {
		return nil, consistency.Report{}, s.fail(span, fmt.Errorf("rename tag %s: %w", id, err))
	}

	var rep consistency.Report
	if used > 0 {
		rep = s.engine.Apply(consistency.Unknown(""))
	}
	return t, rep, nil
}

// DeleteTag deletes a tag that no post carries.
func (s *Service) DeleteTag(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "blog.DeleteTag", trace.WithAttributes(attribute.String("tag.id", id)))
	defer span.End()

	if err := s.store.DeleteTag(ctx, id); err != nil {
		return s.fail(span, fmt.Errorf("delete tag %s: %w", id, err))
	}
	return nil
}
