// Package resource defines the store abstraction the cache reads
// resources through, plus the error taxonomy shared by all backends.
//
// Backends live in subpackages (fs, memory, badger, s3) and are
// selected at startup by the config factory. All of them honor the
// bounded-read contract: a read returns at most the configured
// capacity in bytes, silently truncating larger resources.
package resource

import (
	"context"
	"errors"
)

// DefaultReadCapacity is the default bounded-read buffer size in bytes.
// Resources larger than the capacity are truncated to it.
const DefaultReadCapacity = 1024

// Store errors. Backends wrap these so callers can classify failures
// with errors.Is: ErrNotFound maps to 404, ErrIO to 500.
var (
	// ErrNotFound means the path names no resource in the backend.
	ErrNotFound = errors.New("resource not found")

	// ErrIO means the resource exists (or existence could not be
	// determined) but reading it failed.
	ErrIO = errors.New("resource i/o failure")
)

// Store supplies resource bytes by path.
type Store interface {
	// Read returns the bytes for path, truncated to the store's read
	// capacity. The returned slice is owned by the caller. Errors wrap
	// ErrNotFound or ErrIO.
	Read(ctx context.Context, path string) ([]byte, error)

	// Close releases backend resources. The store is unusable after.
	Close() error
}
