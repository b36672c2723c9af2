package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/desertwitch/randacc/internal/schema"
)

// Config is the operational configuration shared by all handles of a
// [Volume]. It is never mutated after mounting.
type Config struct {
	// FlushAfterWrite syncs the backing resource after every write and after
	// the rewrite of a truncating delete, before the request resolves.
	FlushAfterWrite bool

	// StatFastPath dispatches stat requests immediately on the calling
	// goroutine instead of queueing them behind pending requests. A stat may
	// then observe a size from before or during an in-flight mutation.
	StatFastPath bool
}

// DefaultConfig returns the default [Config]: every write is flushed and
// stat requests are serialized like any other request.
func DefaultConfig() Config {
	return Config{
		FlushAfterWrite: true,
		StatFastPath:    false,
	}
}

// Volume is the root context of a mounted [schema.Backend] and the factory
// for [Handle]s below its root.
type Volume struct {
	backend schema.Backend
	opts    schema.MountOptions
	config  Config
}

// Mount mounts a [schema.Backend] with the given options and returns a pointer
// to the new [Volume]. An error wrapping [ErrNotMounted] is returned if the
// backend refused to mount.
func Mount(ctx context.Context, backend schema.Backend, opts schema.MountOptions, config Config) (*Volume, error) {
	if backend == nil {
		return nil, fmt.Errorf("(storage-mount) %w: no backend", ErrNotMounted)
	}

	if err := backend.Mount(ctx, opts); err != nil {
		return nil, fmt.Errorf("(storage-mount) %w: %w", ErrNotMounted, err)
	}

	slog.Debug("Mounted volume:",
		"backend", backend.String(),
		"url", opts.URL,
		"read", opts.Read,
		"write", opts.Write,
	)

	return &Volume{
		backend: backend,
		opts:    opts,
		config:  config,
	}, nil
}

// Handle returns a pointer to a new, unopened [Handle] for the named resource
// below the [Volume]'s root.
func (v *Volume) Handle(name string) *Handle {
	return newHandle(v, name)
}

// URL returns the root URL the [Volume] was mounted with.
func (v *Volume) URL() string {
	return v.opts.URL
}

// Writable returns whether the [Volume] was mounted for writing.
func (v *Volume) Writable() bool {
	return v.opts.Write
}

// Config returns the [Config] of the [Volume].
func (v *Volume) Config() Config {
	return v.config
}

func (v *Volume) resolve(name string) string {
	if v.opts.URL == "" {
		return name
	}

	return strings.TrimSuffix(v.opts.URL, "/") + "/" + strings.TrimPrefix(name, "/")
}
