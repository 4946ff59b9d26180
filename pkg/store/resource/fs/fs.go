// Package fs implements the filesystem resource store: the disk reader
// behind the cache when staticd serves a local site directory.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/staticd-io/staticd/pkg/store/resource"
)

// FSStore reads resources from a site directory on the local
// filesystem. Request paths are resolved relative to the root; path
// separators are normalized for the host platform.
type FSStore struct {
	root     string
	capacity int
}

// NewFSStore creates a filesystem store rooted at root. The root must
// exist and be a directory. capacity bounds every read; zero or
// negative selects resource.DefaultReadCapacity.
func NewFSStore(root string, capacity int) (*FSStore, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("site root %q: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("site root %q is not a directory", root)
	}
	if capacity <= 0 {
		capacity = resource.DefaultReadCapacity
	}
	return &FSStore{root: root, capacity: capacity}, nil
}

// filePath maps a request path to the platform path under the root.
func (s *FSStore) filePath(path string) string {
	return filepath.Join(s.root, filepath.FromSlash(path))
}

// Read returns at most capacity bytes of the file at path.
//
// Existence is validated before opening so a missing or directory
// target maps cleanly to resource.ErrNotFound; everything after the
// open is resource.ErrIO. The file handle is released exactly once on
// every exit path.
func (s *FSStore) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", resource.ErrIO, err)
	}

	name := s.filePath(path)
	info, err := os.Stat(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", resource.ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: stat %s: %v", resource.ErrIO, path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", resource.ErrNotFound, path)
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", resource.ErrIO, path, err)
	}
	defer f.Close()

	// One bounded read. Files larger than the capacity are truncated
	// to it; see the store contract.
	buf := make([]byte, s.capacity)
	n, err := io.ReadFull(f, buf)
	switch {
	case err == nil, errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
	default:
		return nil, fmt.Errorf("%w: read %s: %v", resource.ErrIO, path, err)
	}
	return buf[:n], nil
}

// Close implements resource.Store. The filesystem store holds no open
// handles between reads.
func (s *FSStore) Close() error { return nil }

// Root returns the configured site root.
func (s *FSStore) Root() string { return s.root }
