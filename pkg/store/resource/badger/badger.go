// Package badger implements a resource store backed by an embedded
// BadgerDB database: resources are key/value pairs of request path to
// raw bytes, packed once and served without a site directory.
package badger

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/staticd-io/staticd/pkg/store/resource"
)

// BadgerStore serves resources out of a BadgerDB database.
type BadgerStore struct {
	db       *badger.DB
	capacity int
}

// Options configures the BadgerDB store.
type Options struct {
	// Path is the database directory.
	Path string

	// ReadOnly opens the database without write access. A serving
	// instance should set this; Put fails on a read-only store.
	ReadOnly bool

	// Capacity bounds every read; zero selects the default.
	Capacity int
}

// NewBadgerStore opens the database at opts.Path.
func NewBadgerStore(opts Options) (*BadgerStore, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("badger store: path is required")
	}
	if opts.Capacity <= 0 {
		opts.Capacity = resource.DefaultReadCapacity
	}

	dbOpts := badger.DefaultOptions(opts.Path).
		WithReadOnly(opts.ReadOnly).
		WithLogger(nil)

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger database at %q: %w", opts.Path, err)
	}
	return &BadgerStore{db: db, capacity: opts.Capacity}, nil
}

// Put stores a resource under path. Used by packing tools and tests.
func (s *BadgerStore) Put(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(path), data)
	})
	if err != nil {
		return fmt.Errorf("badger put %s: %w", path, err)
	}
	return nil
}

// Read implements resource.Store. A missing key maps to
// resource.ErrNotFound; any other database error is resource.ErrIO.
func (s *BadgerStore) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", resource.ErrIO, err)
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(path))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) > s.capacity {
				val = val[:s.capacity]
			}
			data = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", resource.ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: badger get %s: %v", resource.ErrIO, path, err)
	}
	return data, nil
}

// Close implements resource.Store.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
