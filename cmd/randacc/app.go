package main

import (
	"context"
	"fmt"
	"io"

	"github.com/desertwitch/randacc/internal/queue"
	"github.com/desertwitch/randacc/internal/storage"
	"github.com/desertwitch/randacc/internal/ui"
)

const (
	// maxInFlight is the amount of writes a copy schedules on a handle before
	// waiting for the oldest one.
	maxInFlight = 8

	// maxConcurrentCopies is the amount of files copied at the same time.
	maxConcurrentCopies = 4
)

// App runs the commands against a mounted [storage.Volume].
type App struct {
	volume    *storage.Volume
	handles   *queue.Manager[string, *storage.Handle]
	transfer  *ui.Transfer
	uiHandler *ui.Handler
	chunkSize int

	stdin  io.Reader
	stdout io.Writer
}

// NewApp returns a pointer to a new [App].
func NewApp(volume *storage.Volume, chunkSize int, stdin io.Reader, stdout io.Writer) *App {
	return &App{
		volume:    volume,
		handles:   queue.NewManager[string, *storage.Handle](),
		transfer:  ui.NewTransfer(),
		chunkSize: chunkSize,
		stdin:     stdin,
		stdout:    stdout,
	}
}

// handle returns a new [storage.Handle] for name, tracked for progress
// reporting under key in place of any earlier one.
func (app *App) handle(key string, name string) *storage.Handle {
	app.handles.Unregister(key)
	h, _ := app.handles.Register(key, app.volume.Handle(name))

	return h
}

// Launch runs the named command with its arguments.
func (app *App) Launch(ctx context.Context, command string, args []string, verify bool) error {
	var err error

	switch command {
	case "write":
		err = app.Write(ctx, args)
	case "append":
		err = app.Append(ctx, args)
	case "read":
		err = app.Read(ctx, args)
	case "stat":
		err = app.Stat(ctx, args)
	case "delete":
		err = app.Delete(ctx, args)
	case "destroy":
		err = app.Destroy(ctx, args)
	case "hash":
		err = app.Hash(ctx, args)
	case "copy":
		err = app.Copy(ctx, args, verify)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}

	if err != nil {
		return fmt.Errorf("(app-%s) %w", command, err)
	}

	return nil
}

// LaunchUI runs the user interface until it is quit.
func (app *App) LaunchUI() error {
	if err := app.uiHandler.Launch(); err != nil {
		return fmt.Errorf("(app-ui) %w", err)
	}

	return nil
}
