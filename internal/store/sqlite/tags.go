package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/revittco/postdesk/internal/post"
	"github.com/revittco/postdesk/internal/store"
)

func (d *DB) CreateTag(ctx context.Context, t *post.Tag) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = time.Now().UTC()
	if t.Source == "" {
		t.Source = "api"
	}

	_, err := d.q.ExecContext(ctx, `
		INSERT INTO tags (id, name, source, created_at) VALUES (?, ?, ?, ?)`,
		t.ID, t.Name, t.Source, formatTime(t.CreatedAt),
	)
	if err != nil {
		return mapConstraintError(err)
	}
	return nil
}

func (d *DB) GetTag(ctx context.Context, id string) (*post.Tag, error) {
	row := d.q.QueryRowContext(ctx, `
		SELECT id, name, source, created_at FROM tags WHERE id = ?`, id)
	return scanTag(row)
}

func (d *DB) GetTagByName(ctx context.Context, name string) (*post.Tag, error) {
	row := d.q.QueryRowContext(ctx, `
		SELECT id, name, source, created_at FROM tags WHERE name = ?`, name)
	return scanTag(row)
}

func (d *DB) ListTags(ctx context.Context) ([]post.Tag, error) {
	rows, err := d.q.QueryContext(ctx, `
		SELECT id, name, source, created_at FROM tags ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []post.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// UpdateTag renames a tag and rewrites the name on every post carrying it.
func (d *DB) UpdateTag(ctx context.Context, t *post.Tag) error {
	if t.Source == "" {
		t.Source = "api"
	}
	return d.withTx(ctx, func(q queryable) error {
		var old string
		err := q.QueryRowContext(ctx, `SELECT name FROM tags WHERE id = ?`, t.ID).Scan(&old)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}

		if _, err := q.ExecContext(ctx,
			`UPDATE tags SET name = ?, source = ? WHERE id = ?`,
			t.Name, t.Source, t.ID,
		); err != nil {
			return mapConstraintError(err)
		}
		if old == t.Name {
			return nil
		}
		_, err = q.ExecContext(ctx, `
			UPDATE posts
			SET tags = (
				SELECT json_group_array(CASE WHEN value = ? THEN ? ELSE value END)
				FROM json_each(posts.tags)
			)
			WHERE EXISTS (SELECT 1 FROM json_each(posts.tags) WHERE value = ?)`,
			old, t.Name, old,
		)
		if err != nil {
			return fmt.Errorf("rename tag on posts: %w", err)
		}
		return nil
	})
}

// DeleteTag removes a tag. A tag still attached to posts is not deleted
// and ErrConflict is returned.
func (d *DB) DeleteTag(ctx context.Context, id string) error {
	return d.withTx(ctx, func(q queryable) error {
		var name string
		err := q.QueryRowContext(ctx, `SELECT name FROM tags WHERE id = ?`, id).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}

		var inUse int
		if err := q.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM posts, json_each(posts.tags)
			WHERE json_each.value = ?`, name).Scan(&inUse); err != nil {
			return err
		}
		if inUse > 0 {
			return fmt.Errorf("tag %q is used by %d posts: %w", name, inUse, store.ErrConflict)
		}

		res, err := q.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return checkRowsAffected(res)
	})
}

func scanTag(s rowScanner) (*post.Tag, error) {
	var t post.Tag
	var createdAt string
	err := s.Scan(&t.ID, &t.Name, &t.Source, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.CreatedAt = parseTime(createdAt)
	return &t, nil
}
