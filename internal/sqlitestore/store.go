// Package sqlitestore implements an indexed-store [schema.Backend] on top of
// SQLite. Every resource is a row in a resources table and its bytes are
// spread over fixed-size rows of a chunks table, so that positional reads and
// writes only touch the chunks they cover.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertwitch/randacc/internal/schema"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const (
	// DefaultChunkSize is the chunk size used when none is configured.
	DefaultChunkSize = 64 * 1024

	schemaSQL = `
CREATE TABLE IF NOT EXISTS resources (
	key      TEXT PRIMARY KEY,
	size     INTEGER NOT NULL DEFAULT 0,
	mod_time INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS chunks (
	key  TEXT NOT NULL,
	idx  INTEGER NOT NULL,
	data BLOB NOT NULL,
	PRIMARY KEY (key, idx)
);`
)

var (
	// ErrEmptyPath is an error that occurs when a mount is attempted without
	// a database path.
	ErrEmptyPath = errors.New("database path is required")

	// ErrNotMounted is an error that occurs when a resource is accessed
	// before the [Store] was mounted.
	ErrNotMounted = errors.New("store not mounted")

	// ErrNotWritable is an error that occurs when a write is attempted on a
	// [Resource] that was not opened for writing.
	ErrNotWritable = errors.New("resource not opened for writing")
)

// Store is the principal implementation of the SQLite [schema.Backend].
type Store struct {
	sqlDB     *sql.DB
	root      string
	chunkSize int
}

// NewStore returns a pointer to a new, unmounted [Store] using the given chunk
// size, or [DefaultChunkSize] if it is not positive.
func NewStore(chunkSize int) *Store {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	return &Store{
		chunkSize: chunkSize,
	}
}

func (s *Store) String() string {
	return "sqlite"
}

// Mount opens the SQLite database at the mount URL and applies the schema.
// Resource URLs are keyed relative to the mount URL.
func (s *Store) Mount(ctx context.Context, opts schema.MountOptions) error {
	path := strings.TrimSpace(opts.URL)
	if path == "" {
		return fmt.Errorf("(sqlite-mount) %w", ErrEmptyPath)
	}
	cleanPath := filepath.Clean(path)

	dsn := "file:" + cleanPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)"
	if !opts.Write {
		dsn = "file:" + cleanPath + "?mode=ro&_pragma=busy_timeout(5000)"
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("(sqlite-mount) open sqlite db: %w", err)
	}

	// Chunk updates are read-modify-write transactions, a single connection
	// keeps them from racing into SQLITE_BUSY across handles.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()

		return fmt.Errorf("(sqlite-mount) ping sqlite db: %w", err)
	}

	if opts.Write {
		if _, err := sqlDB.ExecContext(ctx, schemaSQL); err != nil {
			_ = sqlDB.Close()

			return fmt.Errorf("(sqlite-mount) apply schema: %w", err)
		}
	}

	s.sqlDB = sqlDB
	s.root = strings.TrimSuffix(path, "/")

	return nil
}

// Close closes the SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}

	return s.sqlDB.Close()
}

func (s *Store) key(url string) (string, error) {
	if s.sqlDB == nil {
		return "", ErrNotMounted
	}

	return strings.TrimPrefix(strings.TrimPrefix(url, s.root), "/"), nil
}

// Open opens the named resource, creating or truncating it as requested.
func (s *Store) Open(ctx context.Context, url string, opts schema.OpenOptions) (schema.Resource, error) { //nolint:ireturn
	key, err := s.key(url)
	if err != nil {
		return nil, fmt.Errorf("(sqlite-open) %w", err)
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM resources WHERE key = ?`, key).Scan(&exists); err != nil {
			return fmt.Errorf("lookup resource: %w", err)
		}

		if exists == 0 {
			if !opts.Create {
				return &fs.PathError{Op: "open", Path: url, Err: fs.ErrNotExist}
			}

			if _, err := tx.ExecContext(ctx, `INSERT INTO resources (key, size, mod_time) VALUES (?, 0, ?)`, key, toMillis(time.Now())); err != nil {
				return fmt.Errorf("create resource: %w", err)
			}
		}

		if opts.Truncate {
			if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE key = ?`, key); err != nil {
				return fmt.Errorf("truncate chunks: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `UPDATE resources SET size = 0, mod_time = ? WHERE key = ?`, toMillis(time.Now()), key); err != nil {
				return fmt.Errorf("truncate resource: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("(sqlite-open) %w", err)
	}

	return &Resource{
		store: s,
		url:   url,
		key:   key,
		read:  opts.Read,
		write: opts.Write,
	}, nil
}

// Remove removes the named resource and all of its chunks.
func (s *Store) Remove(ctx context.Context, url string, opts schema.RemoveOptions) error {
	key, err := s.key(url)
	if err != nil {
		return fmt.Errorf("(sqlite-remove) %w", err)
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE key = ?`, key); err != nil {
			return fmt.Errorf("delete chunks: %w", err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM resources WHERE key = ?`, key)
		if err != nil {
			return fmt.Errorf("delete resource: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete resource: %w", err)
		}

		if affected == 0 && !opts.IgnoreAbsent {
			return &fs.PathError{Op: "remove", Path: url, Err: fs.ErrNotExist}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("(sqlite-remove) %w", err)
	}

	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()

		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}
