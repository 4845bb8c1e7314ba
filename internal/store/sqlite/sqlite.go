// Package sqlite stores posts and tags in a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/revittco/postdesk/internal/store"
	_ "modernc.org/sqlite"
)

var _ store.Store = (*DB)(nil)

// queryable abstracts *sql.DB and *sql.Tx for shared query code.
type queryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB is the SQLite-backed post and tag store.
type DB struct {
	db *sql.DB
	q  queryable // db, or the tx of a Tx callback
}

// pragmas run on every connection. Tags live in a JSON column, so there
// are no foreign keys to enforce.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
}

func dsn(path string) string {
	v := url.Values{}
	for _, p := range pragmas {
		v.Add("_pragma", p)
	}
	return filepath.Clean(path) + "?" + v.Encode()
}

// New opens the database at path and brings its schema up to date.
func New(ctx context.Context, path string) (*DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("database path is required")
	}
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer keeps keyset reads consistent with the mutation that
	// preceded them.
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db, migrationsFS); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return &DB{db: db, q: db}, nil
}

// Tx runs fn against a store bound to one transaction.
func (d *DB) Tx(ctx context.Context, fn func(store.Store) error) error {
	return d.withTx(ctx, func(tx queryable) error {
		return fn(&DB{db: d.db, q: tx})
	})
}

// withTx runs fn inside a transaction, reusing the current one when d is
// already bound to a tx. Starting a second would block on the single
// connection.
func (d *DB) withTx(ctx context.Context, fn func(q queryable) error) error {
	if tx, ok := d.q.(*sql.Tx); ok {
		return fn(tx)
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}
