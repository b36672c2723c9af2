package main

import (
	"context"
	"log/slog"
	"os"
	"runtime/pprof"
)

// cpuProfiler writes a CPU profile to a file for as long as it is running.
//
//nolint:containedctx
type cpuProfiler struct {
	ctx      context.Context
	cancel   context.CancelFunc
	doneChan chan struct{}
}

// newCPUProfiler starts a [cpuProfiler] writing to path, which does nothing if
// path is empty. It needs to be stopped with [cpuProfiler.Stop].
func newCPUProfiler(ctx context.Context, path string) *cpuProfiler {
	cprof := &cpuProfiler{doneChan: make(chan struct{})}
	cprof.ctx, cprof.cancel = context.WithCancel(ctx)

	go cprof.profile(path)

	return cprof
}

func (cprof *cpuProfiler) profile(path string) {
	defer close(cprof.doneChan)

	if path == "" {
		return
	}

	f, err := os.Create(path)
	if err != nil {
		slog.Error("Could not create cpu profile:", "path", path, "err", err)

		return
	}
	defer f.Close()

	if err := pprof.StartCPUProfile(f); err != nil {
		slog.Error("Could not start cpu profile:", "path", path, "err", err)

		return
	}
	defer pprof.StopCPUProfile()

	<-cprof.ctx.Done()
}

// Stop stops the profiling and waits for the profile to be written.
func (cprof *cpuProfiler) Stop() {
	cprof.cancel()
	<-cprof.doneChan
}

// allocProfiler writes an allocation profile to a file once it is stopped.
//
//nolint:containedctx
type allocProfiler struct {
	ctx      context.Context
	cancel   context.CancelFunc
	doneChan chan struct{}
}

// newAllocProfiler starts an [allocProfiler] writing to path, which does
// nothing if path is empty. It needs to be stopped with [allocProfiler.Stop].
func newAllocProfiler(ctx context.Context, path string) *allocProfiler {
	aprof := &allocProfiler{doneChan: make(chan struct{})}
	aprof.ctx, aprof.cancel = context.WithCancel(ctx)

	go aprof.profile(path)

	return aprof
}

func (aprof *allocProfiler) profile(path string) {
	defer close(aprof.doneChan)

	if path == "" {
		return
	}

	<-aprof.ctx.Done()

	f, err := os.Create(path)
	if err != nil {
		slog.Error("Could not create allocs profile:", "path", path, "err", err)

		return
	}
	defer f.Close()

	if err := pprof.Lookup("allocs").WriteTo(f, 0); err != nil {
		slog.Error("Could not write allocs profile:", "path", path, "err", err)
	}
}

// Stop stops the profiling and waits for the profile to be written.
func (aprof *allocProfiler) Stop() {
	aprof.cancel()
	<-aprof.doneChan
}
