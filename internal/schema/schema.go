// Package schema provides the principal schematics for all other packages. It
// defines the backing resource capability that storage backends implement,
// the structures exchanged across that boundary and implementations for
// handling (Unix-based) operating system syscalls. The package serves as a
// foundational layer for byte-addressable storage throughout the codebase.
package schema
