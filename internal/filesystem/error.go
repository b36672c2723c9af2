package filesystem

import "errors"

var (
	// ErrEmptyRoot is an error that occurs when a mount is attempted without
	// a root directory.
	ErrEmptyRoot = errors.New("empty root directory")

	// ErrRootNotDirectory is an error that occurs when the mount root exists
	// but is not a directory.
	ErrRootNotDirectory = errors.New("root is not a directory")

	// ErrNotMounted is an error that occurs when a file is accessed before the
	// [Handler] was mounted.
	ErrNotMounted = errors.New("handler not mounted")

	// ErrOutsideRoot is an error that occurs when a path resolves to a
	// location that is not below the mounted root directory.
	ErrOutsideRoot = errors.New("path outside of root")

	// ErrZeroWrite is an error that occurs when the operating system accepted
	// none of the bytes of a positional write.
	ErrZeroWrite = errors.New("zero bytes written")
)
