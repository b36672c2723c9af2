package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertwitch/randacc/internal/schema"
)

// Kind is the kind of operation a [Request] performs.
type Kind int

const (
	KindOpen Kind = iota
	KindRead
	KindWrite
	KindDelete
	KindStat
	KindClose
	KindDestroy
)

func (k Kind) String() string {
	switch k {
	case KindOpen:
		return "open"
	case KindRead:
		return "read"
	case KindWrite:
		return "write"
	case KindDelete:
		return "delete"
	case KindStat:
		return "stat"
	case KindClose:
		return "close"
	case KindDestroy:
		return "destroy"
	default:
		return "unknown"
	}
}

// Request is a single operation to be scheduled on a [Handle].
type Request struct {
	Kind   Kind
	Mode   Mode
	Offset int64
	Size   int

	// Data is the source buffer of a write or the optional destination buffer
	// of a read. It remains owned by the caller.
	Data []byte

	// Callback, if set, is invoked exactly once with the [Result], before the
	// next request of the same [Handle] is dispatched.
	Callback func(Result)
}

// OpenRequest returns a [Request] opening a resource in the given [Mode].
func OpenRequest(mode Mode) Request {
	return Request{Kind: KindOpen, Mode: mode}
}

// ReadRequest returns a [Request] reading size bytes at offset. The bytes are
// read into buffer if it is not nil, a new buffer is allocated otherwise.
func ReadRequest(offset int64, size int, buffer []byte) Request {
	return Request{Kind: KindRead, Offset: offset, Size: size, Data: buffer}
}

// WriteRequest returns a [Request] writing the first size bytes of data at
// offset.
func WriteRequest(offset int64, size int, data []byte) Request {
	return Request{Kind: KindWrite, Offset: offset, Size: size, Data: data}
}

// DeleteRequest returns a [Request] deleting the byte range [offset,
// offset+size). Only ranges reaching the end of a resource are removed, by
// truncating the resource to offset.
func DeleteRequest(offset int64, size int) Request {
	return Request{Kind: KindDelete, Offset: offset, Size: size}
}

// StatRequest returns a [Request] querying a resource's metadata.
func StatRequest() Request {
	return Request{Kind: KindStat}
}

// CloseRequest returns a [Request] closing a resource.
func CloseRequest() Request {
	return Request{Kind: KindClose}
}

// DestroyRequest returns a [Request] removing a resource entirely.
func DestroyRequest() Request {
	return Request{Kind: KindDestroy}
}

// WithCallback returns a copy of the [Request] with the given callback.
func (r Request) WithCallback(callback func(Result)) Request {
	r.Callback = callback

	return r
}

// Result is the outcome of a [Request].
type Result struct {
	Kind Kind

	// Data holds the bytes of a read.
	Data []byte

	// Written holds the amount of bytes of a write.
	Written int

	// Stat holds the metadata returned by a stat.
	Stat schema.Stat

	// Truncated reports whether a delete truncated the resource, it is false
	// for a delete of a range not reaching the end of the resource.
	Truncated bool

	Err error
}

// Future is the pending [Result] of a scheduled [Request]. It is resolved
// exactly once.
type Future struct {
	once     sync.Once
	done     chan struct{}
	result   Result
	callback func(Result)
}

func newFuture(callback func(Result)) *Future {
	return &Future{
		done:     make(chan struct{}),
		callback: callback,
	}
}

// resolve sets the [Result] and invokes the callback, returning false if the
// [Future] had already been resolved before.
func (f *Future) resolve(result Result) bool {
	resolved := false

	f.once.Do(func() {
		f.result = result
		close(f.done)

		if f.callback != nil {
			f.callback(result)
		}

		resolved = true
	})

	return resolved
}

// Done returns a channel that is closed once the [Future] is resolved.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result blocks until the [Future] is resolved and returns its [Result].
func (f *Future) Result() Result {
	<-f.done

	return f.result
}

// Await blocks until the [Future] is resolved or the context ends, whichever
// happens first. The [Result]'s error is also returned as the error. A
// context ending does not withdraw the [Request] once it was dispatched.
func (f *Future) Await(ctx context.Context) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, fmt.Errorf("(storage-await) %w", ctx.Err())
	case <-f.done:
		return f.result, f.result.Err
	}
}

type pending struct {
	ctx    context.Context //nolint:containedctx
	req    Request
	future *Future
}
