// Package filesystem implements a [schema.Backend] over plain files below a
// mounted root directory. Positional I/O goes through pread/pwrite, so that
// no file offset state is shared between operations.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertwitch/randacc/internal/schema"
	"golang.org/x/sys/unix"
)

const (
	filePerms = 0o644
	dirPerms  = 0o755
)

type osProvider interface {
	MkdirAll(path string, perm os.FileMode) error
	OpenFile(name string, flag int, perm os.FileMode) (*os.File, error)
	Remove(name string) error
	Stat(name string) (os.FileInfo, error)
}

type unixProvider interface {
	Access(path string, mode uint32) error
	Fsync(fd int) error
	Pread(fd int, p []byte, offset int64) (int, error)
	Pwrite(fd int, p []byte, offset int64) (int, error)
}

// Handler is the principal implementation of the plain-file [schema.Backend].
type Handler struct {
	osHandler   osProvider
	unixHandler unixProvider
	root        string
}

// NewHandler returns a pointer to a new, unmounted [Handler].
func NewHandler(osHandler osProvider, unixHandler unixProvider) *Handler {
	return &Handler{
		osHandler:   osHandler,
		unixHandler: unixHandler,
	}
}

func (h *Handler) String() string {
	return "filesystem"
}

// Mount establishes the root directory all resources are confined to. The
// root needs to be an existing directory, accessible with the requested
// permissions.
func (h *Handler) Mount(_ context.Context, opts schema.MountOptions) error {
	if strings.TrimSpace(opts.URL) == "" {
		return fmt.Errorf("(fs-mount) %w", ErrEmptyRoot)
	}

	root, err := filepath.Abs(filepath.Clean(opts.URL))
	if err != nil {
		return fmt.Errorf("(fs-mount) failed to resolve root: %w", err)
	}

	info, err := h.osHandler.Stat(root)
	if err != nil {
		return fmt.Errorf("(fs-mount) failed to stat root: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("(fs-mount) %w: %s", ErrRootNotDirectory, root)
	}

	var mode uint32 = unix.X_OK
	if opts.Read {
		mode |= unix.R_OK
	}
	if opts.Write {
		mode |= unix.W_OK
	}

	if err := h.unixHandler.Access(root, mode); err != nil {
		return fmt.Errorf("(fs-mount) root not accessible: %w", err)
	}

	h.root = root

	return nil
}

// Open opens the file at url with the given options. Missing parent
// directories are created when the file is to be created.
func (h *Handler) Open(_ context.Context, url string, opts schema.OpenOptions) (schema.Resource, error) { //nolint:ireturn
	path, err := h.confine(url)
	if err != nil {
		return nil, fmt.Errorf("(fs-open) %w", err)
	}

	flag := os.O_RDONLY
	switch {
	case opts.Read && opts.Write:
		flag = os.O_RDWR
	case opts.Write:
		flag = os.O_WRONLY
	}

	if opts.Create {
		flag |= os.O_CREATE

		if err := h.osHandler.MkdirAll(filepath.Dir(path), dirPerms); err != nil {
			return nil, fmt.Errorf("(fs-open) failed to create parent directories: %w", err)
		}
	}

	if opts.Truncate {
		flag |= os.O_TRUNC
	}

	f, err := h.osHandler.OpenFile(path, flag, filePerms)
	if err != nil {
		return nil, fmt.Errorf("(fs-open) %w", err)
	}

	return &File{
		file:        f,
		fd:          int(f.Fd()),
		path:        path,
		unixHandler: h.unixHandler,
	}, nil
}

// Remove removes the file at url.
func (h *Handler) Remove(_ context.Context, url string, opts schema.RemoveOptions) error {
	path, err := h.confine(url)
	if err != nil {
		return fmt.Errorf("(fs-remove) %w", err)
	}

	if err := h.osHandler.Remove(path); err != nil {
		if opts.IgnoreAbsent && errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("(fs-remove) %w", err)
	}

	return nil
}

// confine resolves url into a path below the mounted root.
func (h *Handler) confine(url string) (string, error) {
	if h.root == "" {
		return "", ErrNotMounted
	}

	path, err := filepath.Abs(filepath.Clean(url))
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	rel, err := filepath.Rel(h.root, path)
	if err != nil {
		return "", fmt.Errorf("failed to rel path: %w", err)
	}

	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, url)
	}

	return path, nil
}
