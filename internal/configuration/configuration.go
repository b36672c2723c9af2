// Package configuration loads the operational configuration from .env-style
// files and the process environment.
package configuration

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is the prefix of all configuration keys.
const EnvPrefix = "RANDACC_"

// Backend is the name of a storage backend.
type Backend string

const (
	BackendFile   Backend = "file"
	BackendMemory Backend = "memory"
	BackendSQLite Backend = "sqlite"
)

var (
	// ErrInvalidBackend is an error that occurs when an unknown backend is
	// configured.
	ErrInvalidBackend = errors.New("invalid backend")

	// ErrInvalidChunkSize is an error that occurs when a non-positive chunk
	// size is configured.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidLogLevel is an error that occurs when an unknown log level is
	// configured.
	ErrInvalidLogLevel = errors.New("invalid log level")
)

// Config is the principal structure holding the operational configuration.
type Config struct {
	Backend         Backend `env:"BACKEND"           envDefault:"file"`
	Root            string  `env:"ROOT"`
	ReadOnly        bool    `env:"READONLY"          envDefault:"false"`
	FlushAfterWrite bool    `env:"FLUSH_AFTER_WRITE" envDefault:"true"`
	StatFastPath    bool    `env:"STAT_FAST_PATH"    envDefault:"false"`
	ChunkSize       int     `env:"CHUNK_SIZE"        envDefault:"65536"`
	LogLevel        string  `env:"LOG_LEVEL"         envDefault:"info"`
}

// Validate checks the [Config] for values that can not be used.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendFile, BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("(config-validate) %w: %q", ErrInvalidBackend, c.Backend)
	}

	if c.ChunkSize <= 0 {
		return fmt.Errorf("(config-validate) %w: %d", ErrInvalidChunkSize, c.ChunkSize)
	}

	if _, err := c.SlogLevel(); err != nil {
		return err
	}

	return nil
}

// SlogLevel returns the configured log level as [slog.Level].
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level

	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("(config-loglevel) %w: %q", ErrInvalidLogLevel, c.LogLevel)
	}

	return level, nil
}

type genericConfigProvider interface {
	Read(filenames ...string) (envMap map[string]string, err error)
}

// Loader merges configuration files with the process environment and decodes
// the result into a [Config].
type Loader struct {
	fileProvider genericConfigProvider
	environ      func() []string
}

// NewLoader returns a pointer to a new [Loader] reading .env-style files and
// the process environment.
func NewLoader() *Loader {
	return &Loader{
		fileProvider: &GodotenvProvider{},
		environ:      os.Environ,
	}
}

// Load returns the [Config] read from the given files, with values of the
// process environment taking precedence. Unset keys take their defaults.
func (l *Loader) Load(filenames ...string) (*Config, error) {
	envMap := make(map[string]string)

	if len(filenames) > 0 {
		fileMap, err := l.fileProvider.Read(filenames...)
		if err != nil {
			return nil, fmt.Errorf("(config-load) %w", err)
		}

		for k, v := range fileMap {
			envMap[k] = v
		}
	}

	for _, kv := range l.environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(k, EnvPrefix) {
			envMap[k] = v
		}
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{
		Environment: envMap,
		Prefix:      EnvPrefix,
	}); err != nil {
		return nil, fmt.Errorf("(config-load) parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
