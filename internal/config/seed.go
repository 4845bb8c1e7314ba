package config

import (
	"context"
	"log/slog"

	"github.com/revittco/postdesk/internal/post"
	"github.com/revittco/postdesk/internal/store"
)

// defaultTags defines the built-in tags seeded on first run.
var defaultTags = []post.Tag{
	{Name: "announcements", Source: "default"},
	{Name: "general", Source: "default"},
}

// SeedDefaultTags creates tag records if none exist.
func SeedDefaultTags(ctx context.Context, s store.Store) error {
	existing, err := s.ListTags(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	slog.Info("seeding default tags", "count", len(defaultTags))

	for _, t := range defaultTags {
		if err := s.CreateTag(ctx, &t); err != nil {
			return err
		}
		slog.Info("seeded tag", "id", t.ID, "name", t.Name)
	}
	return nil
}
