package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/desertwitch/randacc/internal/queue"
	"github.com/desertwitch/randacc/internal/schema"
)

// process is the processFunc of a [Handle]'s queue. It runs one request to
// completion and resolves its [Future] before the queue moves on.
func (h *Handle) process(p *pending) int {
	var result Result

	if err := p.ctx.Err(); err != nil {
		result = Result{
			Kind: p.req.Kind,
			Err:  fmt.Errorf("(storage-%s) %w: %w", p.req.Kind, ErrCancelled, err),
		}
	} else {
		result = h.dispatch(context.WithoutCancel(p.ctx), p.req)
	}

	p.future.resolve(result)

	if result.Err != nil {
		return queue.DecisionFailed
	}

	return queue.DecisionSuccess
}

// dispatch maps a [Request] to its operation handler.
func (h *Handle) dispatch(ctx context.Context, req Request) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{
				Kind: req.Kind,
				Err:  fmt.Errorf("(storage-%s) %w: panic: %v", req.Kind, ErrIO, r),
			}
		}
	}()

	slog.Debug(">> "+req.Kind.String(),
		"url", h.url,
		"offset", req.Offset,
		"size", req.Size,
	)

	switch req.Kind {
	case KindOpen:
		result = h.open(ctx, req.Mode)
	case KindRead:
		result = h.read(ctx, req.Offset, req.Size, req.Data)
	case KindWrite:
		result = h.write(ctx, req.Offset, req.Size, req.Data)
	case KindDelete:
		result = h.delete(ctx, req.Offset, req.Size)
	case KindStat:
		result = h.stat(ctx)
	case KindClose:
		result = h.close(ctx)
	case KindDestroy:
		result = h.destroy(ctx)
	default:
		result = Result{Err: fmt.Errorf("(storage-dispatch) unknown request kind: %d", req.Kind)}
	}
	result.Kind = req.Kind

	if result.Err != nil {
		slog.Warn("Request failed:",
			"op", req.Kind.String(),
			"url", h.url,
			"offset", req.Offset,
			"size", req.Size,
			"err", result.Err,
		)

		return result
	}

	slog.Debug("<< "+req.Kind.String(),
		"url", h.url,
		"offset", req.Offset,
		"size", req.Size,
	)

	return result
}

// requireOpen returns the backing resource and mode of an open [Handle].
func (h *Handle) requireOpen(op Kind) (schema.Resource, Mode, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	switch h.state {
	case StateOpen:
		return h.resource, h.mode, nil
	case StateDestroyed:
		return nil, h.mode, fmt.Errorf("(storage-%s) %w", op, ErrHandleDestroyed)
	default:
		return nil, h.mode, fmt.Errorf("(storage-%s) %w: %s", op, ErrNotOpen, h.state)
	}
}

func validateRange(op Kind, offset int64, size int) error {
	if offset < 0 || size < 0 {
		return fmt.Errorf("(storage-%s) %w: offset=%d size=%d", op, ErrInvalidRange, offset, size)
	}

	return nil
}

func (h *Handle) open(ctx context.Context, mode Mode) Result {
	h.mu.Lock()
	switch {
	case h.state == StateDestroyed:
		h.mu.Unlock()

		return Result{Err: fmt.Errorf("(storage-open) %w", ErrHandleDestroyed)}

	case h.state != StateUnopened:
		state := h.state
		h.mu.Unlock()

		return Result{Err: fmt.Errorf("(storage-open) %w: %s -> %s", ErrInvalidTransition, state, StateOpening)}

	case mode == ModeReadWrite && !h.volume.opts.Write:
		h.mu.Unlock()

		return Result{Err: fmt.Errorf("(storage-open) %w: volume mounted read-only", ErrReadOnly)}
	}
	h.state = StateOpening
	h.mu.Unlock()

	opts := schema.OpenOptions{Read: true}
	if mode == ModeReadWrite {
		opts.Write = true
		opts.Create = true
	}

	resource, err := h.volume.backend.Open(ctx, h.url, opts)

	h.mu.Lock()
	defer h.mu.Unlock()

	if err != nil {
		h.state = StateUnopened

		return Result{Err: fmt.Errorf("(storage-open) %w: %w", ErrIO, err)}
	}

	h.resource = resource
	h.mode = mode
	h.state = StateOpen

	return Result{}
}

func (h *Handle) read(ctx context.Context, offset int64, size int, buffer []byte) Result {
	resource, _, err := h.requireOpen(KindRead)
	if err != nil {
		return Result{Err: err}
	}

	if err := validateRange(KindRead, offset, size); err != nil {
		return Result{Err: err}
	}

	if buffer != nil && len(buffer) < size {
		return Result{Err: fmt.Errorf("(storage-read) %w: %d < %d", ErrSizeMismatch, len(buffer), size)}
	}

	data, err := resource.ReadAt(ctx, offset, size)
	if err != nil {
		return Result{Err: fmt.Errorf("(storage-read) %w: %w", ErrIO, err)}
	}

	if len(data) < size {
		return Result{Err: fmt.Errorf("(storage-read) %w: %d of %d bytes at %d", ErrShortRead, len(data), size, offset)}
	}

	if buffer == nil {
		buffer = make([]byte, size)
	}
	copy(buffer, data[:size])

	return Result{Data: buffer[:size]}
}

func (h *Handle) write(ctx context.Context, offset int64, size int, data []byte) Result {
	resource, mode, err := h.requireOpen(KindWrite)
	if err != nil {
		return Result{Err: err}
	}

	if mode == ModeReadOnly {
		return Result{Err: fmt.Errorf("(storage-write) %w", ErrReadOnly)}
	}

	if err := validateRange(KindWrite, offset, size); err != nil {
		return Result{Err: err}
	}

	if len(data) < size {
		return Result{Err: fmt.Errorf("(storage-write) %w: %d < %d", ErrSizeMismatch, len(data), size)}
	}

	written, err := resource.WriteAt(ctx, data[:size], offset)
	if err != nil {
		return Result{Written: written, Err: fmt.Errorf("(storage-write) %w: %w", ErrIO, err)}
	}

	if written < size {
		return Result{Written: written, Err: fmt.Errorf("(storage-write) %w: %w", ErrIO, io.ErrShortWrite)}
	}

	if h.volume.config.FlushAfterWrite {
		if err := resource.Sync(ctx); err != nil {
			return Result{Written: written, Err: fmt.Errorf("(storage-write) %w: flush: %w", ErrIO, err)}
		}
	}

	return Result{Written: written}
}

// delete implements truncation-only deletion: a range ending before the end
// of the resource is left alone, a range reaching the end truncates the
// resource to offset while preserving [0, offset).
func (h *Handle) delete(ctx context.Context, offset int64, size int) Result {
	resource, mode, err := h.requireOpen(KindDelete)
	if err != nil {
		return Result{Err: err}
	}

	if mode == ModeReadOnly {
		return Result{Err: fmt.Errorf("(storage-delete) %w", ErrReadOnly)}
	}

	if err := validateRange(KindDelete, offset, size); err != nil {
		return Result{Err: err}
	}

	stat, err := resource.Stat(ctx)
	if err != nil {
		return Result{Err: fmt.Errorf("(storage-delete) %w: %w", ErrIO, err)}
	}

	if offset >= stat.Size || int64(size) < stat.Size-offset {
		return Result{}
	}

	var prefix []byte
	if offset > 0 {
		prefix, err = resource.ReadAt(ctx, 0, int(offset))
		if err != nil {
			return Result{Err: fmt.Errorf("(storage-delete) %w: read prefix: %w", ErrIO, err)}
		}
		if int64(len(prefix)) < offset {
			return Result{Err: fmt.Errorf("(storage-delete) %w: %w: prefix of %d bytes", ErrIO, ErrShortRead, offset)}
		}
	}

	recreated, err := h.volume.backend.Open(ctx, h.url, schema.OpenOptions{
		Read:     true,
		Write:    true,
		Create:   true,
		Truncate: true,
	})
	if err != nil {
		return Result{Err: fmt.Errorf("(storage-delete) %w: recreate: %w", ErrIO, err)}
	}

	if err := resource.Close(ctx); err != nil {
		slog.Warn("Failed to close superseded resource:",
			"url", h.url,
			"err", err,
		)
	}

	h.mu.Lock()
	h.resource = recreated
	h.mu.Unlock()

	if len(prefix) > 0 {
		if _, err := recreated.WriteAt(ctx, prefix, 0); err != nil {
			return Result{Err: fmt.Errorf("(storage-delete) %w: rewrite prefix: %w", ErrIO, err)}
		}
	}

	if h.volume.config.FlushAfterWrite {
		if err := recreated.Sync(ctx); err != nil {
			return Result{Err: fmt.Errorf("(storage-delete) %w: flush: %w", ErrIO, err)}
		}
	}

	return Result{Truncated: true}
}

func (h *Handle) stat(ctx context.Context) Result {
	resource, _, err := h.requireOpen(KindStat)
	if err != nil {
		return Result{Err: err}
	}

	stat, err := resource.Stat(ctx)
	if err != nil {
		return Result{Err: fmt.Errorf("(storage-stat) %w: %w", ErrIO, err)}
	}

	return Result{Stat: stat}
}

func (h *Handle) close(ctx context.Context) Result {
	h.mu.Lock()
	switch h.state {
	case StateOpen:
	case StateDestroyed:
		h.mu.Unlock()

		return Result{Err: fmt.Errorf("(storage-close) %w", ErrHandleDestroyed)}
	default:
		state := h.state
		h.mu.Unlock()

		return Result{Err: fmt.Errorf("(storage-close) %w: %s", ErrNotOpen, state)}
	}
	h.state = StateClosing
	resource := h.resource
	h.mu.Unlock()

	err := resource.Close(ctx)

	h.mu.Lock()
	defer h.mu.Unlock()

	if err != nil {
		h.state = StateOpen

		return Result{Err: fmt.Errorf("(storage-close) %w: %w", ErrIO, err)}
	}

	h.resource = nil
	h.state = StateClosed

	return Result{}
}

func (h *Handle) destroy(ctx context.Context) Result {
	if !h.volume.opts.Write {
		return Result{Err: fmt.Errorf("(storage-destroy) %w: volume mounted read-only", ErrReadOnly)}
	}

	h.mu.Lock()
	resource := h.resource
	h.resource = nil
	if resource != nil {
		h.state = StateClosed
	}
	h.mu.Unlock()

	if resource != nil {
		if err := resource.Close(ctx); err != nil {
			slog.Warn("Failed to close resource before destroying it:",
				"url", h.url,
				"err", err,
			)
		}
	}

	if err := h.volume.backend.Remove(ctx, h.url, schema.RemoveOptions{IgnoreAbsent: true}); err != nil {
		return Result{Err: fmt.Errorf("(storage-destroy) %w: %w", ErrIO, err)}
	}

	h.mu.Lock()
	h.state = StateDestroyed
	h.mu.Unlock()

	return Result{}
}
