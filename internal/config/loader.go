package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/revittco/postdesk/internal/consistency"
	"github.com/revittco/postdesk/internal/post"
	"github.com/revittco/postdesk/internal/querycache"
	"github.com/revittco/postdesk/internal/store"
	"gopkg.in/yaml.v3"
)

// FileConfig represents the top-level postdesk.yaml structure.
type FileConfig struct {
	Cache        cacheConfig        `yaml:"cache"`
	Invalidation invalidationConfig `yaml:"invalidation"`
	Tags         []tagConfig        `yaml:"tags"`
	Posts        []postConfig       `yaml:"posts"`
}

type cacheConfig struct {
	MaxEntries int           `yaml:"max_entries"`
	TTL        time.Duration `yaml:"ttl"`      // 0 keeps pages until evicted
	PageSize   int           `yaml:"page_size"` // posts per list page
}

type invalidationConfig struct {
	// BulkUnfiltered is "patch" (default) or "evict".
	BulkUnfiltered string `yaml:"bulk_unfiltered"`
}

type tagConfig struct {
	Name string `yaml:"name"`
}

type postConfig struct {
	ID        string    `yaml:"id"`
	Title     string    `yaml:"title"`
	Body      string    `yaml:"body,omitempty"`
	Status    string    `yaml:"status"`
	Binned    bool      `yaml:"binned,omitempty"`
	Tags      []string  `yaml:"tags,omitempty"`
	CreatedAt time.Time `yaml:"created_at,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *FileConfig {
	def := querycache.DefaultConfig()
	return &FileConfig{
		Cache: cacheConfig{MaxEntries: def.MaxEntries, TTL: def.TTL},
	}
}

// LoadFile reads, parses, and validates a YAML config file.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates YAML config data. Omitted cache settings keep
// their defaults.
func Parse(data []byte) (*FileConfig, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// QueryCache returns the sizing of the query-result cache.
func (c *FileConfig) QueryCache() querycache.Config {
	return querycache.Config{MaxEntries: c.Cache.MaxEntries, TTL: c.Cache.TTL}
}

// PageSize returns the number of posts per list page; 0 means the service
// default.
func (c *FileConfig) PageSize() int {
	return c.Cache.PageSize
}

// Policy returns the invalidation policy.
func (c *FileConfig) Policy() consistency.Policy {
	mode, _ := consistency.ParseBulkMode(c.Invalidation.BulkUnfiltered)
	return consistency.Policy{BulkUnfiltered: mode}
}

// Apply upserts tags and posts from config into the store.
// Items from YAML are tagged with source="yaml". Stale yaml-sourced rows
// that no longer appear in the file are deleted automatically.
func Apply(ctx context.Context, s store.Store, cfg *FileConfig) error {
	return s.Tx(ctx, func(tx store.Store) error {
		if err := applyTags(ctx, tx, cfg.Tags); err != nil {
			return err
		}
		if err := applyPosts(ctx, tx, cfg.Posts); err != nil {
			return err
		}
		return pruneStaleTags(ctx, tx, cfg.Tags)
	})
}

func applyTags(ctx context.Context, tx store.Store, items []tagConfig) error {
	for _, t := range items {
		existing, err := tx.GetTagByName(ctx, t.Name)
		if errors.Is(err, store.ErrNotFound) {
			if err := tx.CreateTag(ctx, &post.Tag{Name: t.Name, Source: "yaml"}); err != nil {
				return fmt.Errorf("create tag %s: %w", t.Name, err)
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("get tag %s: %w", t.Name, err)
		}
		if existing.Source == "yaml" {
			continue
		}
		existing.Source = "yaml"
		if err := tx.UpdateTag(ctx, existing); err != nil {
			return fmt.Errorf("update tag %s: %w", t.Name, err)
		}
	}
	return nil
}

func applyPosts(ctx context.Context, tx store.Store, items []postConfig) error {
	yamlIDs := make(map[string]bool, len(items))
	for _, pc := range items {
		yamlIDs[pc.ID] = true
		status := post.Status(pc.Status)
		if status == "" {
			status = post.StatusUnpublished
		}

		existing, err := tx.GetPost(ctx, pc.ID)
		if errors.Is(err, store.ErrNotFound) {
			p := &post.Post{
				ID: pc.ID, Title: pc.Title, Body: pc.Body,
				Status: status, Binned: pc.Binned, Tags: pc.Tags,
				Source: "yaml", CreatedAt: pc.CreatedAt,
			}
			if err := tx.CreatePost(ctx, p); err != nil {
				return fmt.Errorf("create post %s: %w", pc.ID, err)
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("get post %s: %w", pc.ID, err)
		}
		if existing.Title != pc.Title {
			slog.Warn("post title cannot change; keeping stored title",
				"id", pc.ID, "stored", existing.Title, "file", pc.Title)
		}
		existing.Body = pc.Body
		existing.Status = status
		existing.Binned = pc.Binned
		existing.Tags = pc.Tags
		existing.Source = "yaml"
		if err := tx.UpdatePost(ctx, existing); err != nil {
			return fmt.Errorf("update post %s: %w", pc.ID, err)
		}
	}
	return pruneStalePosts(ctx, tx, yamlIDs)
}

func pruneStalePosts(ctx context.Context, tx store.Store, yamlIDs map[string]bool) error {
	all, err := tx.ListPostsBySource(ctx, "yaml")
	if err != nil {
		return fmt.Errorf("list posts for prune: %w", err)
	}
	for _, p := range all {
		if yamlIDs[p.ID] {
			continue
		}
		slog.Info("pruning stale yaml post", "id", p.ID)
		if err := tx.DeletePost(ctx, p.ID); err != nil {
			return fmt.Errorf("delete stale post %s: %w", p.ID, err)
		}
	}
	return nil
}

// pruneStaleTags runs after posts so tags dropped together with their
// posts can go. Tags still carried by a post are kept.
func pruneStaleTags(ctx context.Context, tx store.Store, items []tagConfig) error {
	names := make(map[string]bool, len(items))
	for _, t := range items {
		names[t.Name] = true
	}
	all, err := tx.ListTags(ctx)
	if err != nil {
		return fmt.Errorf("list tags for prune: %w", err)
	}
	for _, t := range all {
		if t.Source != "yaml" || names[t.Name] {
			continue
		}
		err := tx.DeleteTag(ctx, t.ID)
		if errors.Is(err, store.ErrConflict) {
			slog.Warn("keeping stale yaml tag still in use", "name", t.Name)
			continue
		}
		if err != nil {
			return fmt.Errorf("delete stale tag %s: %w", t.Name, err)
		}
		slog.Info("pruned stale yaml tag", "name", t.Name)
	}
	return nil
}
