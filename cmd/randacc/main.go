// randacc reads, writes and manages byte-addressable resources through
// serialized storage handles on a file, memory or SQLite backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/desertwitch/randacc/internal/configuration"
	"github.com/desertwitch/randacc/internal/schema"
	"github.com/desertwitch/randacc/internal/storage"
	"github.com/desertwitch/randacc/internal/ui"
	"github.com/spf13/pflag"
)

const (
	stackTraceBufMax = 1 << 24
	uiPollInterval   = 10 * time.Millisecond
)

//nolint:gochecknoglobals
var (
	ExitCode = 0
	Version  string
)

type options struct {
	backend      string
	root         string
	envFile      string
	readOnly     bool
	noFlush      bool
	statFastPath bool
	debug        bool
	verify       bool
	ui           bool
	cpuprofile   string
	memprofile   string
}

func newFlagSet(opts *options) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("randacc", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	flagSet.StringVar(&opts.backend, "backend", "", "storage backend: file, memory or sqlite")
	flagSet.StringVar(&opts.root, "root", "", "mount root: a directory, or the database file for sqlite")
	flagSet.StringVar(&opts.envFile, "env-file", "", "read configuration from this .env file")
	flagSet.BoolVar(&opts.readOnly, "readonly", false, "mount the volume read-only")
	flagSet.BoolVar(&opts.noFlush, "no-flush", false, "do not sync after every write")
	flagSet.BoolVar(&opts.statFastPath, "stat-fast-path", false, "dispatch stat requests without queueing them")
	flagSet.BoolVar(&opts.debug, "debug", false, "log every dispatched request")
	flagSet.BoolVar(&opts.verify, "verify", false, "copy: read back and compare checksums")
	flagSet.BoolVar(&opts.ui, "ui", false, "copy: show a progress interface")
	flagSet.StringVar(&opts.cpuprofile, "cpuprofile", "", "write cpu profile to file")
	flagSet.StringVar(&opts.memprofile, "memprofile", "", "write memory profile to this file")
	flagSet.BoolP("help", "h", false, "show help")

	return flagSet
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `randacc %s: serialized random access to stored resources.

Usage: randacc [flags] <command> [args]

Commands:
  write <name> <offset> [data|-]   write data (or stdin) at offset
  append <name> [data|-]           write data (or stdin) at the end
  read <name> <offset> <size>      write a byte range to stdout
  stat <name>                      print size and modification time
  delete <name> <offset> <size>    delete a trailing byte range
  destroy <name>                   remove a resource
  hash <name>                      print the BLAKE3 checksum
  copy <src>... <dst-dir>          copy local files into the volume

Flags:
%s`, Version, flagSet.FlagUsages())
}

// applyFlags overrides the configuration with any flags that were set.
func applyFlags(cfg *configuration.Config, opts *options, flagSet *pflag.FlagSet) error {
	if flagSet.Changed("backend") {
		cfg.Backend = configuration.Backend(opts.backend)
	}
	if flagSet.Changed("root") {
		cfg.Root = opts.root
	}
	if flagSet.Changed("readonly") {
		cfg.ReadOnly = opts.readOnly
	}
	if flagSet.Changed("no-flush") {
		cfg.FlushAfterWrite = !opts.noFlush
	}
	if flagSet.Changed("stat-fast-path") {
		cfg.StatFastPath = opts.statFastPath
	}
	if opts.debug {
		cfg.LogLevel = "debug"
	}

	return cfg.Validate() //nolint:wrapcheck
}

func setupSignalHandlers(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		<-sigChan
		cancel()
	}()

	sigChan2 := make(chan os.Signal, 1)
	signal.Notify(sigChan2, syscall.SIGUSR1)
	go func() {
		for range sigChan2 {
			buf := make([]byte, stackTraceBufMax)
			stacklen := runtime.Stack(buf, true)
			os.Stderr.Write(buf[:stacklen]) //nolint:errcheck
		}
	}()
}

func startApp(ctx context.Context, wg *sync.WaitGroup, app *App, command string, args []string, verify bool) {
	defer wg.Done()

	if app.uiHandler != nil {
		defer app.uiHandler.Quit()

		slog.Info("Waiting for UI...")
		for !app.uiHandler.Ready.Load() && !app.uiHandler.Failed.Load() {
			select {
			case <-ctx.Done():
				return
			case <-time.After(uiPollInterval):
			}
		}
	}

	if err := app.Launch(ctx, command, args, verify); err != nil {
		slog.Error("Command failed:", "command", command, "err", err)
		ExitCode = 1
	}
}

func startUI(wg *sync.WaitGroup, app *App, logs *SlogManager, level slog.Leveler) {
	defer wg.Done()

	if app.uiHandler == nil {
		return
	}

	logs.AddHandler(uiHandlerName, newTintHandler(app.uiHandler.LogWriter, level))
	logs.RemoveHandler(terminalHandlerName)

	defer func() {
		logs.AddHandler(terminalHandlerName, newTintHandler(os.Stderr, level))
		logs.RemoveHandler(uiHandlerName)
	}()

	if err := app.LaunchUI(); err != nil {
		slog.Error("UI failure: falling back to terminal.", "err", err)
	}
}

func run(args []string) error {
	var opts options

	flagSet := newFlagSet(&opts)
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(os.Stderr, flagSet)

			return nil
		}

		return fmt.Errorf("%w: %w", ErrUsage, err)
	}

	if help, _ := flagSet.GetBool("help"); help || flagSet.NArg() == 0 {
		printHelp(os.Stderr, flagSet)

		return nil
	}

	var levelVar slog.LevelVar

	logs := NewSlogManager()
	logs.AddHandler(terminalHandlerName, newTintHandler(os.Stderr, &levelVar))
	slog.SetDefault(slog.New(logs))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	setupSignalHandlers(cancel)

	memObserver := newMemoryObserver(ctx)
	defer memObserver.Stop()

	cpuProfiler := newCPUProfiler(ctx, opts.cpuprofile)
	defer cpuProfiler.Stop()

	allocProfiler := newAllocProfiler(ctx, opts.memprofile)
	defer allocProfiler.Stop()

	var envFiles []string
	if opts.envFile != "" {
		envFiles = append(envFiles, opts.envFile)
	}

	cfg, err := configuration.NewLoader().Load(envFiles...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := applyFlags(cfg, &opts, flagSet); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	level, _ := cfg.SlogLevel()
	levelVar.Set(level)
	slog.Debug("Loaded configuration:",
		"backend", cfg.Backend,
		"root", cfg.Root,
		"readonly", cfg.ReadOnly,
		"flushAfterWrite", cfg.FlushAfterWrite,
		"statFastPath", cfg.StatFastPath,
		"chunkSize", cfg.ChunkSize,
	)

	backend, release, err := newBackend(cfg)
	if err != nil {
		return err
	}
	defer release()

	vol, err := storage.Mount(ctx, backend, schema.MountOptions{
		URL:   cfg.Root,
		Read:  true,
		Write: !cfg.ReadOnly,
	}, storage.Config{
		FlushAfterWrite: cfg.FlushAfterWrite,
		StatFastPath:    cfg.StatFastPath,
	})
	if err != nil {
		return err //nolint:wrapcheck
	}

	command, cmdArgs := flagSet.Arg(0), flagSet.Args()[1:]
	app := NewApp(vol, cfg.ChunkSize, os.Stdin, os.Stdout)

	if opts.ui && command == "copy" {
		app.uiHandler = ui.NewHandler(ctx, cancel, app.handles, app.transfer)
	}

	var wg sync.WaitGroup

	if app.uiHandler != nil {
		wg.Add(1)
		go startUI(&wg, app, logs, &levelVar)
	}

	wg.Add(1)
	go startApp(ctx, &wg, app, command, cmdArgs, opts.verify)

	wg.Wait()

	return nil
}

func main() {
	defer func() {
		os.Exit(ExitCode)
	}()

	if err := run(os.Args[1:]); err != nil {
		slog.Error("Failed to run:", "err", err)
		ExitCode = 1
	}
}
