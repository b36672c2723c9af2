// Package memory implements an in-memory [schema.Backend]. Resources live in
// a map for the lifetime of the [Backend], with removal following Unix
// unlink semantics: already opened resources keep their contents.
package memory

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"sync/atomic"
	"time"

	"github.com/desertwitch/randacc/internal/schema"
)

// ErrNotWritable is an error that occurs when a write is attempted on a
// [Resource] that was not opened for writing.
var ErrNotWritable = errors.New("resource not opened for writing")

type file struct {
	sync.RWMutex
	data    []byte
	modTime time.Time
}

// Backend is the principal implementation of the in-memory [schema.Backend].
type Backend struct {
	sync.Mutex
	files map[string]*file
}

// NewBackend returns a pointer to a new, empty [Backend].
func NewBackend() *Backend {
	return &Backend{
		files: make(map[string]*file),
	}
}

func (b *Backend) String() string {
	return "memory"
}

// Mount is a no-op for the [Backend], any root is accepted.
func (b *Backend) Mount(_ context.Context, _ schema.MountOptions) error {
	return nil
}

// Open opens the named resource, creating or truncating it as requested.
func (b *Backend) Open(_ context.Context, url string, opts schema.OpenOptions) (schema.Resource, error) { //nolint:ireturn
	b.Lock()
	defer b.Unlock()

	f, exists := b.files[url]
	if !exists {
		if !opts.Create {
			return nil, &fs.PathError{Op: "open", Path: url, Err: fs.ErrNotExist}
		}
		f = &file{modTime: time.Now()}
		b.files[url] = f
	}

	if opts.Truncate {
		f.Lock()
		f.data = nil
		f.modTime = time.Now()
		f.Unlock()
	}

	return &Resource{
		url:   url,
		file:  f,
		read:  opts.Read,
		write: opts.Write,
	}, nil
}

// Remove removes the named resource.
func (b *Backend) Remove(_ context.Context, url string, opts schema.RemoveOptions) error {
	b.Lock()
	defer b.Unlock()

	if _, exists := b.files[url]; !exists {
		if opts.IgnoreAbsent {
			return nil
		}

		return &fs.PathError{Op: "remove", Path: url, Err: fs.ErrNotExist}
	}

	delete(b.files, url)

	return nil
}

// Exists returns whether the named resource currently exists.
func (b *Backend) Exists(url string) bool {
	b.Lock()
	defer b.Unlock()

	_, exists := b.files[url]

	return exists
}

// Resource is an opened in-memory resource.
type Resource struct {
	url    string
	file   *file
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

// ReadAt returns up to size bytes starting at position.
func (r *Resource) ReadAt(_ context.Context, position int64, size int) ([]byte, error) {
	if err := r.check("read"); err != nil {
		return nil, err
	}

	if !r.read {
		return nil, &fs.PathError{Op: "read", Path: r.url, Err: fs.ErrPermission}
	}

	r.file.RLock()
	defer r.file.RUnlock()

	if position >= int64(len(r.file.data)) {
		return []byte{}, nil
	}

	end := position + min(int64(size), int64(len(r.file.data))-position)
	out := make([]byte, end-position)
	copy(out, r.file.data[position:end])

	return out, nil
}

// WriteAt writes data at position, growing the resource as needed.
func (r *Resource) WriteAt(_ context.Context, data []byte, position int64) (int, error) {
	if err := r.check("write"); err != nil {
		return 0, err
	}

	if !r.write {
		return 0, fmt.Errorf("%s: %w", r.url, ErrNotWritable)
	}

	if len(data) == 0 {
		return 0, nil
	}

	r.file.Lock()
	defer r.file.Unlock()

	end := position + int64(len(data))
	if end > int64(len(r.file.data)) {
		r.file.data = append(r.file.data, make([]byte, end-int64(len(r.file.data)))...)
	}

	n := copy(r.file.data[position:end], data)
	r.file.modTime = time.Now()

	return n, nil
}

// Stat returns the current size and modification time.
func (r *Resource) Stat(_ context.Context) (schema.Stat, error) {
	if err := r.check("stat"); err != nil {
		return schema.Stat{}, err
	}

	r.file.RLock()
	defer r.file.RUnlock()

	return schema.Stat{
		Size:    int64(len(r.file.data)),
		ModTime: r.file.modTime,
	}, nil
}

// Sync is a no-op for an open [Resource].
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
