package sqlite_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/revittco/postdesk/internal/post"
	"github.com/revittco/postdesk/internal/store"
	"github.com/revittco/postdesk/internal/store/sqlite"
)

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(context.Background(), t.TempDir()+"/test.db")
	if err != nil {
		t.Fatalf("new test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// seedPosts creates n posts P1..Pn created one minute apart. Posts whose
// number is divisible by 3 are unpublished, and P5 is binned.
func seedPosts(t *testing.T, db *sqlite.DB, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 1; i <= n; i++ {
		p := &post.Post{
			ID:        fmt.Sprintf("P%02d", i),
			Title:     fmt.Sprintf("Title %c", 'A'+rune(n-i)),
			Status:    post.StatusPublished,
			Binned:    i == 5,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if i%3 == 0 {
			p.Status = post.StatusUnpublished
		}
		if err := db.CreatePost(ctx, p); err != nil {
			t.Fatalf("create %s: %v", p.ID, err)
		}
	}
}

func ids(items []post.Post) []string {
	out := make([]string, 0, len(items))
	for _, p := range items {
		out = append(out, p.ID)
	}
	return out
}

// collect pages through q until the last page.
func collect(t *testing.T, db *sqlite.DB, q post.ListQuery) [][]string {
	t.Helper()
	var pages [][]string
	for range 20 {
		page, err := db.ListPosts(context.Background(), q)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		pages = append(pages, ids(page.Items))
		if !page.HasNext {
			if !page.Next.IsFirstPage() {
				t.Fatalf("last page has next cursor %+v", page.Next)
			}
			return pages
		}
		q.After = page.Next
	}
	t.Fatal("pagination did not terminate")
	return nil
}

func TestPostCRUD(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p := &post.Post{Title: "Hello", Body: "first", Status: post.StatusPublished, Tags: []string{"go"}}
	if err := db.CreatePost(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == "" {
		t.Fatal("expected ID to be set")
	}

	got, err := db.GetPost(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Hello" || got.Source != "api" || !got.CreatedAt.Equal(p.CreatedAt) {
		t.Fatalf("got %+v", got)
	}
	if diff := cmp.Diff([]string{"go"}, got.Tags); diff != "" {
		t.Fatalf("tags (-want +got):\n%s", diff)
	}

	got.Status = post.StatusUnpublished
	got.Binned = true
	got.Title = "ignored"
	if err := db.UpdatePost(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	got2, _ := db.GetPost(ctx, p.ID)
	if got2.Status != post.StatusUnpublished || !got2.Binned {
		t.Fatalf("after update = %+v", got2)
	}
	if got2.Title != "Hello" {
		t.Fatalf("title changed to %q", got2.Title)
	}

	if err := db.DeletePost(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.GetPost(ctx, p.ID); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := db.DeletePost(ctx, p.ID); err != store.ErrNotFound {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
	if err := db.UpdatePost(ctx, got2); err != store.ErrNotFound {
		t.Fatalf("update missing: expected ErrNotFound, got %v", err)
	}
}

func TestPostDuplicateID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	if err := db.CreatePost(ctx, &post.Post{ID: "x", Title: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := db.CreatePost(ctx, &post.Post{ID: "x", Title: "b"}); err != store.ErrAlreadyExists {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestListPosts_KeysetPages(t *testing.T) {
	db := newTestDB(t)
	seedPosts(t, db, 10)

	tests := []struct {
		name string
		q    post.ListQuery
		want [][]string
	}{
		{
			name: "unfiltered newest first",
			q:    post.ListQuery{Filter: post.FilterNone, Sort: post.SortCreatedDesc, Limit: 4},
			want: [][]string{{"P10", "P09", "P08", "P07"}, {"P06", "P04", "P03", "P02"}, {"P01"}},
		},
		{
			name: "published oldest first",
			q:    post.ListQuery{Filter: post.FilterPublished, Sort: post.SortCreatedAsc, Limit: 3},
			want: [][]string{{"P01", "P02", "P04"}, {"P07", "P08", "P10"}},
		},
		{
			name: "unpublished",
			q:    post.ListQuery{Filter: post.FilterUnpublished, Sort: post.SortCreatedDesc, Limit: 10},
			want: [][]string{{"P09", "P06", "P03"}},
		},
		{
			name: "binned",
			q:    post.ListQuery{Filter: post.FilterBinned, Sort: post.SortCreatedDesc, Limit: 10},
			want: [][]string{{"P05"}},
		},
		{
			name: "title ascending",
			q:    post.ListQuery{Filter: post.FilterPublished, Sort: post.SortTitleAsc, Limit: 4},
			want: [][]string{{"P10", "P08", "P07", "P04"}, {"P02", "P01"}},
		},
		{
			name: "title descending",
			q:    post.ListQuery{Filter: post.FilterPublished, Sort: post.SortTitleDesc, Limit: 4},
			want: [][]string{{"P01", "P02", "P04", "P07"}, {"P08", "P10"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, collect(t, db, tt.q)); diff != "" {
				t.Fatalf("pages (-want +got):\n%s", diff)
			}
		})
	}
}

func TestListPosts_CursorMatchesSortOrder(t *testing.T) {
	db := newTestDB(t)
	seedPosts(t, db, 6)

	page, err := db.ListPosts(context.Background(),
		post.ListQuery{Filter: post.FilterNone, Sort: post.SortCreatedDesc, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	last := page.Items[len(page.Items)-1]
	if page.Next != last.Cursor() {
		t.Fatalf("next = %+v; want cursor of last item %+v", page.Next, last.Cursor())
	}
	for i := 1; i < len(page.Items); i++ {
		if !post.SortCreatedDesc.Less(page.Items[i-1].Cursor(), page.Items[i].Cursor()) {
			t.Fatalf("items %d and %d out of order", i-1, i)
		}
	}
}

func TestListPosts_TieBrokenByID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	for _, id := range []string{"b", "a", "c"} {
		if err := db.CreatePost(ctx, &post.Post{ID: id, Title: "Same", Status: post.StatusPublished, CreatedAt: base}); err != nil {
			t.Fatal(err)
		}
	}
	got := collect(t, db, post.ListQuery{Sort: post.SortTitleAsc, Limit: 2})
	if diff := cmp.Diff([][]string{{"a", "b"}, {"c"}}, got); diff != "" {
		t.Fatalf("pages (-want +got):\n%s", diff)
	}
}

func TestListPosts_InvalidLimit(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.ListPosts(context.Background(), post.ListQuery{}); err == nil {
		t.Fatal("expected error for zero limit")
	}
}

func TestListPostsBySource(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	if err := db.CreatePost(ctx, &post.Post{Title: "api"}); err != nil {
		t.Fatal(err)
	}
	if err := db.CreatePost(ctx, &post.Post{ID: "seeded", Title: "yaml", Source: "yaml"}); err != nil {
		t.Fatal(err)
	}
	got, err := db.ListPostsBySource(ctx, "yaml")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "seeded" {
		t.Fatalf("got %v; want [seeded]", ids(got))
	}
}

func TestTagCRUD(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	tag := &post.Tag{Name: "golang"}
	if err := db.CreateTag(ctx, tag); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := db.CreateTag(ctx, &post.Tag{Name: "golang"}); err != store.ErrAlreadyExists {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	got, err := db.GetTagByName(ctx, "golang")
	if err != nil || got.ID != tag.ID {
		t.Fatalf("get by name = %+v, %v", got, err)
	}

	p := &post.Post{Title: "tagged", Tags: []string{"golang", "other"}}
	if err := db.CreatePost(ctx, p); err != nil {
		t.Fatal(err)
	}

	got.Name = "go"
	if err := db.UpdateTag(ctx, got); err != nil {
		t.Fatalf("rename: %v", err)
	}
	renamed, _ := db.GetPost(ctx, p.ID)
	if diff := cmp.Diff([]string{"go", "other"}, renamed.Tags); diff != "" {
		t.Fatalf("post tags after rename (-want +got):\n%s", diff)
	}
	if n, _ := db.CountPostsWithTag(ctx, "go"); n != 1 {
		t.Fatalf("posts with tag = %d; want 1", n)
	}

	if err := db.DeleteTag(ctx, tag.ID); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("delete in-use tag: expected ErrConflict, got %v", err)
	}
	renamed.Tags = nil
	if err := db.UpdatePost(ctx, renamed); err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteTag(ctx, tag.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.GetTag(ctx, tag.ID); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := db.UpdateTag(ctx, got); err != store.ErrNotFound {
		t.Fatalf("update missing: expected ErrNotFound, got %v", err)
	}

	list, err := db.ListTags(ctx)
	if err != nil || len(list) != 0 {
		t.Fatalf("list = %v, %v; want empty", list, err)
	}
}

func TestTxRollback(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.Tx(ctx, func(s store.Store) error {
		if err := s.CreateTag(ctx, &post.Tag{Name: "temp"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("tx err = %v; want boom", err)
	}
	if _, err := db.GetTagByName(ctx, "temp"); err != store.ErrNotFound {
		t.Fatalf("rolled back tag still present: %v", err)
	}
}
