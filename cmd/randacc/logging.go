package main

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

const (
	terminalHandlerName = "terminal"
	uiHandlerName       = "ui"
)

// SlogManager is a [slog.Handler] that fans out records to a set of named
// handlers, which can be swapped at runtime (e.g. while the UI is running).
type SlogManager struct {
	sync.RWMutex
	handlers map[string]slog.Handler
	attrs    []slog.Attr
	groups   []string
}

// NewSlogManager returns a pointer to a new, empty [SlogManager].
func NewSlogManager() *SlogManager {
	return &SlogManager{
		handlers: make(map[string]slog.Handler),
	}
}

func newTintHandler(w io.Writer, level slog.Leveler) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})
}

func (m *SlogManager) Enabled(ctx context.Context, level slog.Level) bool {
	m.RLock()
	defer m.RUnlock()

	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

func (m *SlogManager) Handle(ctx context.Context, r slog.Record) error {
	m.RLock()
	defer m.RUnlock()

	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			_ = h.Handle(ctx, r.Clone())
		}
	}

	return nil
}

func (m *SlogManager) WithAttrs(attrs []slog.Attr) slog.Handler {
	m.RLock()
	defer m.RUnlock()

	derived := &SlogManager{
		handlers: make(map[string]slog.Handler, len(m.handlers)),
		attrs:    slices.Concat(m.attrs, attrs),
		groups:   slices.Clone(m.groups),
	}

	for name, h := range m.handlers {
		derived.handlers[name] = h.WithAttrs(attrs)
	}

	return derived
}

func (m *SlogManager) WithGroup(name string) slog.Handler {
	m.RLock()
	defer m.RUnlock()

	derived := &SlogManager{
		handlers: make(map[string]slog.Handler, len(m.handlers)),
		attrs:    slices.Clone(m.attrs),
		groups:   slices.Concat(m.groups, []string{name}),
	}

	for handlerName, h := range m.handlers {
		derived.handlers[handlerName] = h.WithGroup(name)
	}

	return derived
}

// AddHandler adds or replaces the named handler, applying any attributes and
// groups the [SlogManager] was derived with.
func (m *SlogManager) AddHandler(name string, handler slog.Handler) {
	m.Lock()
	defer m.Unlock()

	h := handler
	if len(m.attrs) > 0 {
		h = h.WithAttrs(m.attrs)
	}

	for _, group := range m.groups {
		h = h.WithGroup(group)
	}

	m.handlers[name] = h
}

// RemoveHandler removes the named handler.
func (m *SlogManager) RemoveHandler(name string) {
	m.Lock()
	defer m.Unlock()

	delete(m.handlers, name)
}
