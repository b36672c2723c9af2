package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertwitch/randacc/internal/queue"
	"github.com/desertwitch/randacc/internal/schema"
)

// Handle is a stateful, serialized wrapper around one named backing resource.
// All of its methods are safe for concurrent use, the requests are processed
// in the order they were scheduled in.
type Handle struct {
	name   string
	url    string
	volume *Volume

	mu       sync.RWMutex
	state    State
	mode     Mode
	resource schema.Resource

	queue *queue.SerialQueue[*pending]
}

func newHandle(volume *Volume, name string) *Handle {
	h := &Handle{
		name:   name,
		url:    volume.resolve(name),
		volume: volume,
		state:  StateUnopened,
	}
	h.queue = queue.NewSerialQueue(h.process)

	return h
}

// Name returns the name the [Handle] was created with.
func (h *Handle) Name() string {
	return h.name
}

// URL returns the resolved URL of the backing resource.
func (h *Handle) URL() string {
	return h.url
}

// State returns the current lifecycle [State] of the [Handle].
func (h *Handle) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.state
}

// Mode returns the [Mode] the [Handle] was last opened with.
func (h *Handle) Mode() Mode {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.mode
}

// Progress returns the [queue.Progress] of the [Handle]'s request queue.
func (h *Handle) Progress() queue.Progress {
	return h.queue.Progress()
}

// Pending returns the amount of requests waiting to be dispatched.
func (h *Handle) Pending() int {
	return h.queue.Len()
}

// Wait blocks until all requests scheduled so far have been resolved.
func (h *Handle) Wait() {
	h.queue.Wait()
}

// Schedule schedules a [Request] on the [Handle] and returns its [Future].
// The request is dispatched once all previously scheduled requests have been
// resolved. If the context ends before that, the request resolves with
// [ErrCancelled] without touching the backing resource.
//
// Requests other than destroy, scheduled on an already destroyed [Handle],
// resolve with [ErrHandleDestroyed] before Schedule returns.
func (h *Handle) Schedule(ctx context.Context, req Request) *Future {
	if ctx == nil {
		ctx = context.Background()
	}

	p := &pending{
		ctx:    ctx,
		req:    req,
		future: newFuture(req.Callback),
	}

	if req.Kind != KindDestroy && h.State() == StateDestroyed {
		p.future.resolve(Result{
			Kind: req.Kind,
			Err:  fmt.Errorf("(storage-%s) %w", req.Kind, ErrHandleDestroyed),
		})

		return p.future
	}

	if req.Kind == KindStat && h.volume.config.StatFastPath {
		h.process(p)

		return p.future
	}

	h.queue.Schedule(p)

	return p.future
}

// Open opens the backing resource in the given [Mode] and waits for it.
func (h *Handle) Open(ctx context.Context, mode Mode) error {
	_, err := h.Schedule(ctx, OpenRequest(mode)).Await(ctx)

	return err
}

// Read reads size bytes at offset and waits for them. The bytes are read into
// buffer if it is not nil.
func (h *Handle) Read(ctx context.Context, offset int64, size int, buffer []byte) ([]byte, error) {
	res, err := h.Schedule(ctx, ReadRequest(offset, size, buffer)).Await(ctx)

	return res.Data, err
}

// Write writes all of data at offset and waits for it.
func (h *Handle) Write(ctx context.Context, offset int64, data []byte) (int, error) {
	res, err := h.Schedule(ctx, WriteRequest(offset, len(data), data)).Await(ctx)

	return res.Written, err
}

// Delete deletes the byte range [offset, offset+size) and waits for it. It
// returns whether the resource was truncated.
func (h *Handle) Delete(ctx context.Context, offset int64, size int) (bool, error) {
	res, err := h.Schedule(ctx, DeleteRequest(offset, size)).Await(ctx)

	return res.Truncated, err
}

// Stat returns the metadata of the backing resource.
func (h *Handle) Stat(ctx context.Context) (schema.Stat, error) {
	res, err := h.Schedule(ctx, StatRequest()).Await(ctx)

	return res.Stat, err
}

// Close closes the backing resource once all previously scheduled requests
// have been resolved, and waits for it.
func (h *Handle) Close(ctx context.Context) error {
	_, err := h.Schedule(ctx, CloseRequest()).Await(ctx)

	return err
}

// Destroy removes the backing resource once all previously scheduled requests
// have been resolved, and waits for it. Destroying an absent resource is not
// an error.
func (h *Handle) Destroy(ctx context.Context) error {
	_, err := h.Schedule(ctx, DestroyRequest()).Await(ctx)

	return err
}
