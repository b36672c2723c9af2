package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/desertwitch/randacc/internal/storage"
	"github.com/dustin/go-humanize"
	"github.com/zeebo/blake3"
	"golang.org/x/sync/errgroup"
)

// contextReader stops reading once its context has ended.
//
//nolint:containedctx
type contextReader struct {
	ctx    context.Context
	reader io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, fmt.Errorf("transfer canceled: %w", err)
	}

	return cr.reader.Read(p) //nolint:wrapcheck
}

// Copy copies local files into the volume, each through its own handle:
// copy [--verify] <src>... <dst-dir>.
func (app *App) Copy(ctx context.Context, args []string, verify bool) error {
	if len(args) < 2 { //nolint:mnd
		return fmt.Errorf("%w: copy [--verify] <src>... <dst-dir>", ErrUsage)
	}

	sources, dstDir := args[:len(args)-1], args[len(args)-1]

	for _, src := range sources {
		info, err := os.Stat(src)
		if err != nil {
			return fmt.Errorf("failed to stat source: %w", err)
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("%w: %s is not a regular file", ErrUsage, src)
		}
		app.transfer.AddTotal(info.Size())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentCopies)

	for _, src := range sources {
		dst := path.Join(dstDir, filepath.Base(src))

		g.Go(func() error {
			return app.copyFile(gctx, src, dst, verify)
		})
	}

	if err := g.Wait(); err != nil {
		return err //nolint:wrapcheck
	}

	return nil
}

func (app *App) copyFile(ctx context.Context, src string, dst string, verify bool) error {
	srcSum, size, err := app.writeFile(ctx, src, dst)
	if err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}

	if verify {
		if err := app.verifyFile(ctx, dst, srcSum, size); err != nil {
			return fmt.Errorf("%s: %w", src, err)
		}
	}

	slog.Info("Processed:",
		"src", src,
		"dst", dst,
		"size", humanize.IBytes(uint64(size)),
		"verified", verify,
	)

	return nil
}

// writeFile streams src into the resource dst, replacing its content. Up to
// [maxInFlight] chunk writes are queued on the handle at any time. It returns
// the hex BLAKE3 checksum and size of the bytes read from src.
func (app *App) writeFile(ctx context.Context, src string, dst string) (sum string, size int64, retErr error) {
	f, err := os.Open(src)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open source: %w", err)
	}
	defer f.Close()

	h := app.handle(dst, dst)
	if err := h.Open(ctx, storage.ModeReadWrite); err != nil {
		return "", 0, err
	}
	defer closeHandle(ctx, h, &retErr)

	st, err := h.Stat(ctx)
	if err != nil {
		return "", 0, err
	}

	if st.Size > 0 {
		if _, err := h.Delete(ctx, 0, int(st.Size)); err != nil {
			return "", 0, err
		}
	}

	hasher := blake3.New()
	reader := &contextReader{
		ctx:    ctx,
		reader: io.TeeReader(f, hasher),
	}

	inFlight := make([]*storage.Future, 0, maxInFlight)
	countDone := func(res storage.Result) {
		if res.Err == nil {
			app.transfer.AddDone(int64(res.Written))
		}
	}

	var offset int64

	for {
		buf := make([]byte, app.chunkSize)

		n, readErr := io.ReadFull(reader, buf)
		if n > 0 {
			inFlight = append(inFlight, h.Schedule(ctx, storage.WriteRequest(offset, n, buf).WithCallback(countDone)))
			offset += int64(n)
		}

		if len(inFlight) >= maxInFlight {
			if _, err := inFlight[0].Await(ctx); err != nil {
				return "", 0, err
			}
			inFlight = inFlight[1:]
		}

		if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
			break
		}
		if readErr != nil {
			return "", 0, fmt.Errorf("failed to read source: %w", readErr)
		}
	}

	for _, fut := range inFlight {
		if _, err := fut.Await(ctx); err != nil {
			return "", 0, err
		}
	}

	return hex.EncodeToString(hasher.Sum(nil)), offset, nil
}

// verifyFile reads dst back through a new read-only handle and compares its
// size and checksum with the source's.
func (app *App) verifyFile(ctx context.Context, dst string, srcSum string, size int64) (retErr error) {
	h := app.handle(dst+"#verify", dst)
	if err := h.Open(ctx, storage.ModeReadOnly); err != nil {
		return err
	}
	defer closeHandle(ctx, h, &retErr)

	st, err := h.Stat(ctx)
	if err != nil {
		return err
	}

	if st.Size != size {
		return fmt.Errorf("%w: %d (src) != %d (dst) bytes", ErrHashMismatch, size, st.Size)
	}

	dstSum, err := app.hashHandle(ctx, h, st.Size)
	if err != nil {
		return err
	}

	if srcSum != dstSum {
		return fmt.Errorf("%w: %s (src) != %s (dst)", ErrHashMismatch, srcSum, dstSum)
	}

	return nil
}
