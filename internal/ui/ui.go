// Package ui implements a command-line progress interface using [tea].
package ui

import (
	"context"
	"fmt"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertwitch/randacc/internal/queue"
)

// Handler is the principal implementation of a user interface [Handler].
type Handler struct {
	requests queue.Reporter
	transfer queue.Reporter
	program  *tea.Program

	LogWriter *TeaLogWriter

	Ready  atomic.Bool
	Failed atomic.Bool
}

// NewHandler returns a pointer to a new user interface [Handler], showing the
// request progress of requests and the byte progress of transfer.
func NewHandler(ctx context.Context, cancel context.CancelFunc, requests queue.Reporter, transfer queue.Reporter) *Handler {
	handler := &Handler{
		requests: requests,
		transfer: transfer,
	}

	model := NewTeaModel(handler, cancel)
	handler.program = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	handler.LogWriter = NewTeaLogWriter(handler.program)

	return handler
}

// Launch starts the command-line user interface (the [tea.Program]) and
// blocks until it is quit.
func (uiHandler *Handler) Launch() error {
	defer uiHandler.LogWriter.Stop()

	if _, err := uiHandler.program.Run(); err != nil {
		uiHandler.Failed.Store(true)

		return fmt.Errorf("(ui) %w", err)
	}

	return nil
}

// Quit asks the running [tea.Program] to quit.
func (uiHandler *Handler) Quit() {
	uiHandler.program.Quit()
}
