package main

import "errors"

var (
	// ErrUsage occurs when a command is invoked with missing or malformed
	// arguments.
	ErrUsage = errors.New("invalid usage")

	// ErrUnknownCommand occurs when an unknown command is invoked.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrHashMismatch occurs when the bytes read back after a copy do not
	// match the bytes of the source.
	ErrHashMismatch = errors.New("hash mismatch")
)
