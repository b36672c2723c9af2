package storage

import "errors"

var (
	// ErrNotMounted is an error that occurs when a backend root could not be
	// mounted. No [Handle] can be produced without a successful mount.
	ErrNotMounted = errors.New("volume not mounted")

	// ErrNotOpen is an error that occurs when a read, write, delete, stat or
	// close operation is attempted on a [Handle] that is not open.
	ErrNotOpen = errors.New("handle not open")

	// ErrHandleDestroyed is an error that occurs when any operation is
	// attempted on a [Handle] after it was destroyed.
	ErrHandleDestroyed = errors.New("handle destroyed")

	// ErrInvalidTransition is an error that occurs when an open is attempted
	// on a [Handle] that is not in [StateUnopened].
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrSizeMismatch is an error that occurs when a supplied buffer is
	// shorter than the requested size.
	ErrSizeMismatch = errors.New("buffer shorter than requested size")

	// ErrShortRead is an error that occurs when the backing resource holds
	// fewer bytes than were requested to be read.
	ErrShortRead = errors.New("short read")

	// ErrReadOnly is an error that occurs when a mutating operation is
	// attempted on a [Handle] that was opened read-only.
	ErrReadOnly = errors.New("handle is read-only")

	// ErrInvalidRange is an error that occurs when a negative offset or size
	// is passed to an operation.
	ErrInvalidRange = errors.New("invalid byte range")

	// ErrCancelled is an error that occurs when a request's context ended
	// before the request was dispatched to the backing resource.
	ErrCancelled = errors.New("request cancelled")

	// ErrIO is an error that occurs when the backing resource failed an
	// operation. It always wraps the backend's own error.
	ErrIO = errors.New("backing resource failure")
)
