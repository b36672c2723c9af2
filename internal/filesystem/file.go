package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/desertwitch/randacc/internal/schema"
	"golang.org/x/sys/unix"
)

// File is an opened plain file.
type File struct {
	file        *os.File
	fd          int
	path        string
	unixHandler unixProvider
}

// readChunkSize bounds the initial buffer of a read, which then grows only as
// data arrives, so that a size far beyond the end of the file costs nothing.
const readChunkSize = 1 << 20

// ReadAt returns up to size bytes starting at position, fewer only if the
// file ends early.
func (f *File) ReadAt(_ context.Context, position int64, size int) ([]byte, error) {
	buf := make([]byte, 0, min(size, readChunkSize))

	for len(buf) < size {
		if len(buf) == cap(buf) {
			buf = slices.Grow(buf, min(size-len(buf), cap(buf)))
		}

		n, err := f.unixHandler.Pread(f.fd, buf[len(buf):cap(buf)], position+int64(len(buf)))
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("(fs-read) %s: %w", f.path, err)
		}
		if n == 0 {
			break
		}
		buf = buf[:len(buf)+n]
	}

	return buf, nil
}

// WriteAt writes all of data at position.
func (f *File) WriteAt(_ context.Context, data []byte, position int64) (int, error) {
	var total int
	for total < len(data) {
		n, err := f.unixHandler.Pwrite(f.fd, data[total:], position+int64(total))
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return total, fmt.Errorf("(fs-write) %s: %w", f.path, err)
		}
		if n == 0 {
			return total, fmt.Errorf("(fs-write) %s: %w", f.path, ErrZeroWrite)
		}
		total += n
	}

	return total, nil
}

// Stat returns the current size and modification time of the file. It goes
// through the [os.File] rather than the raw descriptor, so a concurrent
// [File.Close] yields [os.ErrClosed] instead of a reused descriptor's stat.
func (f *File) Stat(_ context.Context) (schema.Stat, error) {
	info, err := f.file.Stat()
	if err != nil {
		return schema.Stat{}, fmt.Errorf("(fs-stat) %s: %w", f.path, err)
	}

	return schema.Stat{
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Sync commits the file's contents to stable storage.
func (f *File) Sync(_ context.Context) error {
	if err := f.unixHandler.Fsync(f.fd); err != nil {
		return fmt.Errorf("(fs-sync) %s: %w", f.path, err)
	}

	return nil
}

// Close closes the file.
func (f *File) Close(_ context.Context) error {
	if err := f.file.Close(); err != nil {
		return fmt.Errorf("(fs-close) %s: %w", f.path, err)
	}

	return nil
}
