package schema

import (
	"os"

	"golang.org/x/sys/unix"
)

// OS is an implementation wrapping operating system functions.
type OS struct{}

// Remove wraps around [os.Remove].
func (*OS) Remove(name string) error {
	return os.Remove(name)
}

// OpenFile wraps around [os.OpenFile].
func (*OS) OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(name, flag, perm)
}

// Stat wraps around [os.Stat].
func (*OS) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

// MkdirAll wraps around [os.MkdirAll].
func (*OS) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// Unix is an implementation wrapping Unix operating system functions.
type Unix struct{}

// Access wraps around [unix.Access].
func (*Unix) Access(path string, mode uint32) error {
	return unix.Access(path, mode)
}

// Pread wraps around [unix.Pread].
func (*Unix) Pread(fd int, p []byte, offset int64) (int, error) {
	return unix.Pread(fd, p, offset)
}

// Pwrite wraps around [unix.Pwrite].
func (*Unix) Pwrite(fd int, p []byte, offset int64) (int, error) {
	return unix.Pwrite(fd, p, offset)
}

// Fsync wraps around [unix.Fsync].
func (*Unix) Fsync(fd int) error {
	return unix.Fsync(fd)
}
