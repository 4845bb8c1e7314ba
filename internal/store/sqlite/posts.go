package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/revittco/postdesk/internal/post"
	"github.com/revittco/postdesk/internal/store"
)

const postColumns = `id, title, body, status, binned, tags, source, created_at, updated_at`

func (d *DB) CreatePost(ctx context.Context, p *post.Post) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = post.StatusUnpublished
	}
	if p.Source == "" {
		p.Source = "api"
	}

	_, err := d.q.ExecContext(ctx, `
		INSERT INTO posts (`+postColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Body, string(p.Status), boolToInt(p.Binned),
		encodeTags(p.Tags), p.Source,
		formatNanos(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return mapConstraintError(err)
	}
	return nil
}

func (d *DB) GetPost(ctx context.Context, id string) (*post.Post, error) {
	row := d.q.QueryRowContext(ctx, `
		SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return p, err
}

// ListPosts reads one page with keyset pagination: it selects the rows
// sorting strictly after q.After and fetches one extra row to learn whether
// another page follows.
func (d *DB) ListPosts(ctx context.Context, q post.ListQuery) (post.Page, error) {
	if q.Limit <= 0 {
		return post.Page{}, fmt.Errorf("list posts: limit must be positive")
	}

	var (
		where []string
		args  []any
	)
	switch q.Filter {
	case post.FilterNone:
		where = append(where, "binned = 0")
	case post.FilterPublished:
		where = append(where, "binned = 0", "status = ?")
		args = append(args, string(post.StatusPublished))
	case post.FilterUnpublished:
		where = append(where, "binned = 0", "status = ?")
		args = append(args, string(post.StatusUnpublished))
	case post.FilterBinned:
		where = append(where, "binned = 1")
	default:
		return post.Page{}, fmt.Errorf("list posts: unknown filter %v", q.Filter)
	}

	col, dir, op := sortSQL(q.Sort)
	if !q.After.IsFirstPage() {
		where = append(where, fmt.Sprintf("(%s, id) %s (?, ?)", col, op))
		if col == "title" {
			args = append(args, q.After.Title, q.After.ID)
		} else {
			args = append(args, q.After.CreatedAt, q.After.ID)
		}
	}
	args = append(args, q.Limit+1)

	query := `SELECT ` + postColumns + ` FROM posts WHERE ` + strings.Join(where, " AND ") +
		fmt.Sprintf(" ORDER BY %s %s, id %s LIMIT ?", col, dir, dir)

	rows, err := d.q.QueryContext(ctx, query, args...)
	if err != nil {
		return post.Page{}, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var items []post.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return post.Page{}, err
		}
		items = append(items, *p)
	}
	if err := rows.Err(); err != nil {
		return post.Page{}, err
	}

	page := post.Page{After: q.After}
	if len(items) > q.Limit {
		items = items[:q.Limit]
		page.HasNext = true
		page.Next = items[len(items)-1].Cursor()
	}
	page.Items = items
	return page, nil
}

// sortSQL returns the sort column, direction and the keyset comparison
// operator selecting rows after a cursor.
func sortSQL(s post.SortKey) (col, dir, op string) {
	col = "created_at"
	if s == post.SortTitleAsc || s == post.SortTitleDesc {
		col = "title"
	}
	if s.Desc() {
		return col, "DESC", "<"
	}
	return col, "ASC", ">"
}

func (d *DB) ListPostsBySource(ctx context.Context, source string) ([]post.Post, error) {
	rows, err := d.q.QueryContext(ctx, `
		SELECT `+postColumns+` FROM posts WHERE source = ? ORDER BY created_at, id`, source)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []post.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (d *DB) UpdatePost(ctx context.Context, p *post.Post) error {
	p.UpdatedAt = time.Now().UTC()
	if p.Source == "" {
		p.Source = "api"
	}

	res, err := d.q.ExecContext(ctx, `
		UPDATE posts
		SET body = ?, status = ?, binned = ?, tags = ?, source = ?, updated_at = ?
		WHERE id = ?`,
		p.Body, string(p.Status), boolToInt(p.Binned), encodeTags(p.Tags),
		p.Source, formatTime(p.UpdatedAt), p.ID,
	)
	if err != nil {
		return mapConstraintError(err)
	}
	return checkRowsAffected(res)
}

func (d *DB) DeletePost(ctx context.Context, id string) error {
	res, err := d.q.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (d *DB) CountPostsWithTag(ctx context.Context, name string) (int, error) {
	var n int
	err := d.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM posts, json_each(posts.tags)
		WHERE json_each.value = ?`, name).Scan(&n)
	return n, err
}

func scanPost(s rowScanner) (*post.Post, error) {
	var p post.Post
	var status, tags, updatedAt string
	var binned int
	var createdAt int64
	err := s.Scan(&p.ID, &p.Title, &p.Body, &status, &binned, &tags,
		&p.Source, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = post.Status(status)
	p.Binned = binned != 0
	p.Tags = decodeTags(tags)
	p.CreatedAt = parseNanos(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}
