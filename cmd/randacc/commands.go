package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/desertwitch/randacc/internal/storage"
	"github.com/dustin/go-humanize"
	"github.com/zeebo/blake3"
)

func parseOffset(s string) (int64, error) {
	offset, err := strconv.ParseInt(s, 10, 64)
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("%w: invalid offset %q", ErrUsage, s)
	}

	return offset, nil
}

func parseSize(s string) (int, error) {
	size, err := strconv.Atoi(s)
	if err != nil || size < 0 {
		return 0, fmt.Errorf("%w: invalid size %q", ErrUsage, s)
	}

	return size, nil
}

// input returns the argument at idx as data, or all of stdin if it is absent
// or "-".
func (app *App) input(args []string, idx int) ([]byte, error) {
	if len(args) > idx && args[idx] != "-" {
		return []byte(args[idx]), nil
	}

	data, err := io.ReadAll(app.stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}

	return data, nil
}

// closeHandle closes h even if ctx has ended, joining any error into retErr.
func closeHandle(ctx context.Context, h *storage.Handle, retErr *error) {
	if err := h.Close(context.WithoutCancel(ctx)); err != nil {
		*retErr = errors.Join(*retErr, err)
	}
}

// Write writes data at an offset: write <name> <offset> [data|-].
func (app *App) Write(ctx context.Context, args []string) (retErr error) {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("%w: write <name> <offset> [data|-]", ErrUsage)
	}

	offset, err := parseOffset(args[1])
	if err != nil {
		return err
	}

	data, err := app.input(args, 2)
	if err != nil {
		return err
	}

	h := app.handle(args[0], args[0])
	if err := h.Open(ctx, storage.ModeReadWrite); err != nil {
		return err
	}
	defer closeHandle(ctx, h, &retErr)

	n, err := h.Write(ctx, offset, data)
	if err != nil {
		return err
	}

	fmt.Fprintf(app.stdout, "wrote %d bytes at %d\n", n, offset)

	return nil
}

// Append writes data at the end: append <name> [data|-].
func (app *App) Append(ctx context.Context, args []string) (retErr error) {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: append <name> [data|-]", ErrUsage)
	}

	data, err := app.input(args, 1)
	if err != nil {
		return err
	}

	h := app.handle(args[0], args[0])
	if err := h.Open(ctx, storage.ModeReadWrite); err != nil {
		return err
	}
	defer closeHandle(ctx, h, &retErr)

	st, err := h.Stat(ctx)
	if err != nil {
		return err
	}

	n, err := h.Write(ctx, st.Size, data)
	if err != nil {
		return err
	}

	fmt.Fprintf(app.stdout, "wrote %d bytes at %d\n", n, st.Size)

	return nil
}

// Read writes a byte range to stdout: read <name> <offset> <size>.
func (app *App) Read(ctx context.Context, args []string) (retErr error) {
	if len(args) != 3 {
		return fmt.Errorf("%w: read <name> <offset> <size>", ErrUsage)
	}

	offset, err := parseOffset(args[1])
	if err != nil {
		return err
	}

	size, err := parseSize(args[2])
	if err != nil {
		return err
	}

	h := app.handle(args[0], args[0])
	if err := h.Open(ctx, storage.ModeReadOnly); err != nil {
		return err
	}
	defer closeHandle(ctx, h, &retErr)

	data, err := h.Read(ctx, offset, size, nil)
	if err != nil {
		return err
	}

	if _, err := app.stdout.Write(data); err != nil {
		return fmt.Errorf("failed to write stdout: %w", err)
	}

	return nil
}

// Stat prints the metadata of a resource: stat <name>.
func (app *App) Stat(ctx context.Context, args []string) (retErr error) {
	if len(args) != 1 {
		return fmt.Errorf("%w: stat <name>", ErrUsage)
	}

	h := app.handle(args[0], args[0])
	if err := h.Open(ctx, storage.ModeReadOnly); err != nil {
		return err
	}
	defer closeHandle(ctx, h, &retErr)

	st, err := h.Stat(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(app.stdout, "%s\t%d bytes (%s)\tmodified %s\n",
		h.Name(), st.Size, humanize.IBytes(uint64(st.Size)), humanize.Time(st.ModTime))

	return nil
}

// Delete deletes a trailing byte range: delete <name> <offset> <size>.
func (app *App) Delete(ctx context.Context, args []string) (retErr error) {
	if len(args) != 3 {
		return fmt.Errorf("%w: delete <name> <offset> <size>", ErrUsage)
	}

	offset, err := parseOffset(args[1])
	if err != nil {
		return err
	}

	size, err := parseSize(args[2])
	if err != nil {
		return err
	}

	h := app.handle(args[0], args[0])
	if err := h.Open(ctx, storage.ModeReadWrite); err != nil {
		return err
	}
	defer closeHandle(ctx, h, &retErr)

	truncated, err := h.Delete(ctx, offset, size)
	if err != nil {
		return err
	}

	if truncated {
		fmt.Fprintf(app.stdout, "truncated to %d bytes\n", offset)
	} else {
		fmt.Fprintln(app.stdout, "unchanged")
	}

	return nil
}

// Destroy removes a resource: destroy <name>.
func (app *App) Destroy(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: destroy <name>", ErrUsage)
	}

	return app.handle(args[0], args[0]).Destroy(ctx)
}

// Hash prints the BLAKE3 checksum of a resource: hash <name>.
func (app *App) Hash(ctx context.Context, args []string) (retErr error) {
	if len(args) != 1 {
		return fmt.Errorf("%w: hash <name>", ErrUsage)
	}

	h := app.handle(args[0], args[0])
	if err := h.Open(ctx, storage.ModeReadOnly); err != nil {
		return err
	}
	defer closeHandle(ctx, h, &retErr)

	st, err := h.Stat(ctx)
	if err != nil {
		return err
	}

	sum, err := app.hashHandle(ctx, h, st.Size)
	if err != nil {
		return err
	}

	fmt.Fprintf(app.stdout, "%s  %s\n", sum, h.Name())

	return nil
}

// hashHandle returns the hex BLAKE3 checksum of the first size bytes of an
// open handle, read in chunks.
func (app *App) hashHandle(ctx context.Context, h *storage.Handle, size int64) (string, error) {
	hasher := blake3.New()
	buf := make([]byte, app.chunkSize)

	for offset := int64(0); offset < size; {
		n := int(min(int64(app.chunkSize), size-offset))

		data, err := h.Read(ctx, offset, n, buf)
		if err != nil {
			return "", err
		}

		_, _ = hasher.Write(data)
		offset += int64(n)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
