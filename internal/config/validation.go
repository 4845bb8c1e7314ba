package config

import (
	"fmt"
	"strings"

	"github.com/revittco/postdesk/internal/blog"
	"github.com/revittco/postdesk/internal/consistency"
	"github.com/revittco/postdesk/internal/post"
)

const maxPageSize = 100

// ValidationError holds all validation failures for a config file.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: %s", strings.Join(e.Errors, "; "))
}

// validate checks the parsed config for correctness.
func validate(cfg *FileConfig) error {
	var errs []string

	if cfg.Cache.MaxEntries < 0 {
		errs = append(errs, "cache.max_entries: must not be negative")
	}
	if cfg.Cache.TTL < 0 {
		errs = append(errs, "cache.ttl: must not be negative")
	}
	if cfg.Cache.PageSize < 0 || cfg.Cache.PageSize > maxPageSize {
		errs = append(errs, fmt.Sprintf("cache.page_size: must be between 0 and %d", maxPageSize))
	}
	if _, err := consistency.ParseBulkMode(cfg.Invalidation.BulkUnfiltered); err != nil {
		errs = append(errs, fmt.Sprintf("invalidation.bulk_unfiltered: %v", err))
	}

	tagNames := make(map[string]bool, len(cfg.Tags))
	for i, t := range cfg.Tags {
		if err := blog.ValidateTagName(t.Name); err != nil {
			errs = append(errs, fmt.Sprintf("tags[%d]: %v", i, err))
		}
		if tagNames[t.Name] {
			errs = append(errs, fmt.Sprintf("tags[%d]: duplicate name %q", i, t.Name))
		}
		tagNames[t.Name] = true
	}

	postIDs := make(map[string]bool, len(cfg.Posts))
	for i, p := range cfg.Posts {
		if p.ID == "" {
			errs = append(errs, fmt.Sprintf("posts[%d]: id is required", i))
		}
		if postIDs[p.ID] {
			errs = append(errs, fmt.Sprintf("posts[%d]: duplicate id %q", i, p.ID))
		}
		postIDs[p.ID] = true
		if strings.TrimSpace(p.Title) == "" {
			errs = append(errs, fmt.Sprintf("posts[%d]: title is required", i))
		}
		if p.Status != "" {
			if _, err := post.ParseStatus(p.Status); err != nil {
				errs = append(errs, fmt.Sprintf("posts[%d]: %v", i, err))
			}
		}
		for _, tag := range p.Tags {
			if !tagNames[tag] {
				errs = append(errs, fmt.Sprintf("posts[%d]: tag %q is not declared in tags", i, tag))
			}
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
