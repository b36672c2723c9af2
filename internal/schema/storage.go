package schema

import (
	"context"
	"time"
)

// MountOptions describes the root context a [Backend] is mounted with.
type MountOptions struct {
	URL   string
	Read  bool
	Write bool
}

// OpenOptions describes how a named backing resource is to be opened.
type OpenOptions struct {
	Read     bool
	Write    bool
	Create   bool
	Truncate bool
}

// RemoveOptions describes how a named backing resource is to be removed.
type RemoveOptions struct {
	// IgnoreAbsent turns the removal of a resource that does not exist into a
	// successful no-op.
	IgnoreAbsent bool
}

// Stat holds the metadata a [Resource] exposes about itself.
type Stat struct {
	Size    int64
	ModTime time.Time
}

// Backend describes the primitive operations a storage backend needs to
// provide against named resources. Names passed to a [Backend] are fully
// resolved URLs below the mounted root.
type Backend interface {
	// Mount validates the root context, it is called exactly once before any
	// other method.
	Mount(ctx context.Context, opts MountOptions) error
	Open(ctx context.Context, url string, opts OpenOptions) (Resource, error)
	Remove(ctx context.Context, url string, opts RemoveOptions) error
	String() string
}

// Resource describes an opened backing resource. A [Resource] is only ever
// driven by one goroutine at a time, except for [Resource.Stat] which must
// tolerate being called concurrently with the other methods.
type Resource interface {
	// ReadAt returns up to size bytes starting at position. Fewer bytes are
	// returned without error when the resource ends early.
	ReadAt(ctx context.Context, position int64, size int) ([]byte, error)
	WriteAt(ctx context.Context, data []byte, position int64) (int, error)
	Stat(ctx context.Context) (Stat, error)
	Sync(ctx context.Context) error
	Close(ctx context.Context) error
}
