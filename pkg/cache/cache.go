// Package cache implements the in-memory resource cache with
// single-flight fetch coalescing: any number of concurrent requests for
// an uncached path share one store read, and every caller is notified
// exactly once with the shared result.
//
// Entries live for the process lifetime; there is no eviction. A failed
// fetch caches nothing, so a later request for the same path retries
// from scratch.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/staticd-io/staticd/pkg/store/resource"
)

// ErrOverloaded is reported to waiters when the fetch could not be
// scheduled because the worker pool is saturated. Nothing is cached and
// nothing stays pending; a later request retries.
var ErrOverloaded = errors.New("resource fetch rejected: workers saturated")

// Scheduler submits fetch tasks to the shared worker pool.
// TrySchedule must not block and reports rejection.
type Scheduler interface {
	TrySchedule(task func()) bool
}

// Cache coalesces concurrent misses for the same path into one store
// read.
//
// Concurrency contract:
//   - entries, once published, are immutable; the hit path reads them
//     without taking the mutex
//   - mu guards only the pending-fetch bookkeeping and the
//     publish/remove transition, never a store read
//   - for a given path, the published map and the pending map are
//     never both populated: the transition happens atomically under mu
type Cache struct {
	store     resource.Store
	scheduler Scheduler
	metrics   Metrics

	// ctx bounds store reads; it is the server lifecycle context.
	ctx context.Context

	// entries maps path to the published immutable byte slice.
	entries sync.Map

	mu      sync.Mutex
	pending map[string]*pendingFetch
}

// pendingFetch tracks one in-flight store read and its waiters. Owned
// by the cache, keyed by path, destroyed the moment the read resolves.
type pendingFetch struct {
	waiters []waiter
}

type waiter struct {
	onSuccess func(n int, data []byte)
	onFailure func(err error)
}

// New creates a cache reading through store, scheduling fetches on
// scheduler. ctx bounds the store reads; pass the server lifecycle
// context. A nil metrics selects the no-op implementation.
func New(ctx context.Context, store resource.Store, scheduler Scheduler, metrics Metrics) *Cache {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Cache{
		store:     store,
		scheduler: scheduler,
		metrics:   metrics,
		ctx:       ctx,
		pending:   make(map[string]*pendingFetch),
	}
}

// Request resolves the resource at path and notifies exactly one of the
// callbacks, exactly once.
//
// A cached path invokes onSuccess synchronously on the calling
// goroutine. A miss registers the callbacks and returns; they fire
// later on a worker goroutine when the single in-flight read for that
// path resolves. Callbacks for one path may run in any order but each
// waiter is notified once.
func (c *Cache) Request(path string, onSuccess func(n int, data []byte), onFailure func(err error)) {
	// Opportunistic lock-free lookup. Safe because published entries
	// are never mutated.
	if v, ok := c.entries.Load(path); ok {
		data := v.([]byte)
		c.metrics.RecordHit()
		onSuccess(len(data), data)
		return
	}

	c.mu.Lock()

	// Re-check: a concurrent fetch may have published between the
	// optimistic lookup and acquiring the lock.
	if v, ok := c.entries.Load(path); ok {
		c.mu.Unlock()
		data := v.([]byte)
		c.metrics.RecordHit()
		onSuccess(len(data), data)
		return
	}

	if p, ok := c.pending[path]; ok {
		// A read is already in flight; join it. No new store read.
		p.waiters = append(p.waiters, waiter{onSuccess, onFailure})
		c.mu.Unlock()
		c.metrics.RecordCoalesced()
		return
	}

	p := &pendingFetch{waiters: []waiter{{onSuccess, onFailure}}}
	c.pending[path] = p
	c.mu.Unlock()

	c.metrics.RecordMiss()
	if !c.scheduler.TrySchedule(func() { c.fetch(path) }) {
		c.fail(path, ErrOverloaded)
	}
}

// fetch performs the single store read for path and resolves every
// waiter. Runs on a worker goroutine; the mutex is held only for map
// bookkeeping, never across the read.
func (c *Cache) fetch(path string) {
	start := time.Now()
	data, err := c.store.Read(c.ctx, path)
	c.metrics.ObserveFetch(time.Since(start), err)

	if err != nil {
		c.fail(path, fmt.Errorf("fetch %s: %w", path, err))
		return
	}

	c.mu.Lock()
	c.entries.Store(path, data)
	p := c.pending[path]
	delete(c.pending, path)
	c.mu.Unlock()

	c.metrics.RecordEntry(len(data))
	for _, w := range p.waiters {
		w.onSuccess(len(data), data)
	}
}

// fail removes the pending fetch without publishing anything, so a
// future request retries from scratch, then notifies every waiter.
func (c *Cache) fail(path string, err error) {
	c.mu.Lock()
	p := c.pending[path]
	delete(c.pending, path)
	c.mu.Unlock()

	for _, w := range p.waiters {
		w.onFailure(err)
	}
}

// Contains reports whether path is published in the cache.
func (c *Cache) Contains(path string) bool {
	_, ok := c.entries.Load(path)
	return ok
}

// PendingCount returns the number of in-flight fetches.
func (c *Cache) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
