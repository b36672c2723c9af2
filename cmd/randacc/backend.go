package main

import (
	"fmt"

	"github.com/desertwitch/randacc/internal/configuration"
	"github.com/desertwitch/randacc/internal/filesystem"
	"github.com/desertwitch/randacc/internal/memory"
	"github.com/desertwitch/randacc/internal/schema"
	"github.com/desertwitch/randacc/internal/sqlitestore"
)

// newBackend returns the [schema.Backend] named by the configuration and a
// function releasing it after use.
func newBackend(cfg *configuration.Config) (schema.Backend, func(), error) { //nolint:ireturn
	switch cfg.Backend {
	case configuration.BackendFile:
		return filesystem.NewHandler(&schema.OS{}, &schema.Unix{}), func() {}, nil

	case configuration.BackendMemory:
		return memory.NewBackend(), func() {}, nil

	case configuration.BackendSQLite:
		store := sqlitestore.NewStore(cfg.ChunkSize)

		return store, func() { _ = store.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("(backend) %w: %q", configuration.ErrInvalidBackend, cfg.Backend)
	}
}
