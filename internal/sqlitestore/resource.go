package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sync/atomic"
	"time"

	"github.com/desertwitch/randacc/internal/schema"
)

// Resource is an opened resource of a [Store].
type Resource struct {
	store  *Store
	url    string
	key    string
	read   bool
	write  bool
	closed atomic.Bool
}

func (r *Resource) check(op string) error {
	if r.closed.Load() {
		return &fs.PathError{Op: op, Path: r.url, Err: fs.ErrClosed}
	}

	return nil
}

// rowQuerier is satisfied by both [sql.DB] and [sql.Tx].
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func lookupSize(ctx context.Context, q rowQuerier, key string, url string) (int64, int64, error) {
	var size, modTime int64

	err := q.QueryRowContext(ctx, `SELECT size, mod_time FROM resources WHERE key = ?`, key).Scan(&size, &modTime)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, &fs.PathError{Op: "stat", Path: url, Err: fs.ErrNotExist}
	}
	if err != nil {
		return 0, 0, fmt.Errorf("lookup resource: %w", err)
	}

	return size, modTime, nil
}

// ReadAt returns up to size bytes starting at position. Chunks that were
// never written read as zeroes.
func (r *Resource) ReadAt(ctx context.Context, position int64, size int) ([]byte, error) {
	if err := r.check("read"); err != nil {
		return nil, err
	}

	if !r.read {
		return nil, &fs.PathError{Op: "read", Path: r.url, Err: fs.ErrPermission}
	}

	var out []byte

	err := r.store.inTx(ctx, func(tx *sql.Tx) error {
		total, _, err := lookupSize(ctx, tx, r.key, r.url)
		if err != nil {
			return err
		}

		if position >= total || size == 0 {
			out = []byte{}

			return nil
		}

		end := position + min(int64(size), total-position)
		out = make([]byte, end-position)

		cs := int64(r.store.chunkSize)

		rows, err := tx.QueryContext(ctx,
			`SELECT idx, data FROM chunks WHERE key = ? AND idx BETWEEN ? AND ? ORDER BY idx`,
			r.key, position/cs, (end-1)/cs,
		)
		if err != nil {
			return fmt.Errorf("query chunks: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var idx int64
			var data []byte

			if err := rows.Scan(&idx, &data); err != nil {
				return fmt.Errorf("scan chunk: %w", err)
			}

			chunkStart := idx * cs
			from := max(position, chunkStart)
			to := min(end, chunkStart+int64(len(data)))

			if from < to {
				copy(out[from-position:to-position], data[from-chunkStart:to-chunkStart])
			}
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate chunks: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("(sqlite-read) %w", err)
	}

	return out, nil
}

// WriteAt writes data at position within a single transaction, growing the
// resource as needed.
func (r *Resource) WriteAt(ctx context.Context, data []byte, position int64) (int, error) {
	if err := r.check("write"); err != nil {
		return 0, err
	}

	if !r.write {
		return 0, fmt.Errorf("(sqlite-write) %s: %w", r.url, ErrNotWritable)
	}

	if len(data) == 0 {
		return 0, nil
	}

	err := r.store.inTx(ctx, func(tx *sql.Tx) error {
		total, _, err := lookupSize(ctx, tx, r.key, r.url)
		if err != nil {
			return err
		}

		cs := int64(r.store.chunkSize)
		end := position + int64(len(data))

		for idx := position / cs; idx*cs < end; idx++ {
			chunkStart := idx * cs
			chunk := make([]byte, cs)

			var existing []byte
			err := tx.QueryRowContext(ctx, `SELECT data FROM chunks WHERE key = ? AND idx = ?`, r.key, idx).Scan(&existing)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("load chunk: %w", err)
			}
			copy(chunk, existing)

			from := max(position, chunkStart)
			to := min(end, chunkStart+cs)
			copy(chunk[from-chunkStart:to-chunkStart], data[from-position:to-position])

			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO chunks (key, idx, data) VALUES (?, ?, ?)`,
				r.key, idx, chunk,
			); err != nil {
				return fmt.Errorf("store chunk: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE resources SET size = ?, mod_time = ? WHERE key = ?`,
			max(total, end), toMillis(time.Now()), r.key,
		); err != nil {
			return fmt.Errorf("update resource: %w", err)
		}

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("(sqlite-write) %w", err)
	}

	return len(data), nil
}

// Stat returns the current size and modification time of the resource.
func (r *Resource) Stat(ctx context.Context) (schema.Stat, error) {
	if err := r.check("stat"); err != nil {
		return schema.Stat{}, err
	}

	size, modTime, err := lookupSize(ctx, r.store.sqlDB, r.key, r.url)
	if err != nil {
		return schema.Stat{}, fmt.Errorf("(sqlite-stat) %w", err)
	}

	return schema.Stat{
		Size:    size,
		ModTime: fromMillis(modTime),
	}, nil
}

// Sync is a no-op for an open [Resource], every write is committed in its own
// transaction.
func (r *Resource) Sync(_ context.Context) error {
	return r.check("sync")
}

// Close closes the [Resource], further calls fail with [fs.ErrClosed].
func (r *Resource) Close(_ context.Context) error {
	if r.closed.Swap(true) {
		return &fs.PathError{Op: "close", Path: r.url, Err: fs.ErrClosed}
	}

	return nil
}
