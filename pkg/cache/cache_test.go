package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staticd-io/staticd/pkg/store/resource"
)

// countingStore counts Read calls and serves fixed data, so tests can
// assert that coalesced requests share one backend read.
type countingStore struct {
	mu    sync.Mutex
	reads map[string]int
	data  map[string][]byte
	err   error

	// gate, when set, blocks Read until released so tests can pile up
	// waiters behind one in-flight fetch.
	gate chan struct{}
}

func newCountingStore() *countingStore {
	return &countingStore{
		reads: make(map[string]int),
		data:  make(map[string][]byte),
	}
}

func (s *countingStore) Read(ctx context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	s.reads[path]++
	s.mu.Unlock()

	if s.gate != nil {
		<-s.gate
	}

	if s.err != nil {
		return nil, s.err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.data[path]
	if !ok {
		return nil, resource.ErrNotFound
	}
	return data, nil
}

func (s *countingStore) Close() error { return nil }

func (s *countingStore) readCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads[path]
}

// inlineScheduler runs tasks synchronously on the calling goroutine.
type inlineScheduler struct{}

func (inlineScheduler) TrySchedule(task func()) bool {
	task()
	return true
}

// manualScheduler collects tasks for the test to run explicitly.
type manualScheduler struct {
	mu    sync.Mutex
	tasks []func()
}

func (s *manualScheduler) TrySchedule(task func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task)
	return true
}

func (s *manualScheduler) runAll() {
	s.mu.Lock()
	tasks := s.tasks
	s.tasks = nil
	s.mu.Unlock()

	for _, task := range tasks {
		task()
	}
}

// rejectingScheduler refuses every task.
type rejectingScheduler struct{}

func (rejectingScheduler) TrySchedule(func()) bool { return false }

func TestRequest_MissThenHit(t *testing.T) {
	store := newCountingStore()
	store.data["/index.html"] = []byte("<html>home</html>")

	c := New(context.Background(), store, inlineScheduler{}, nil)

	var got []byte
	c.Request("/index.html",
		func(n int, data []byte) { got = data },
		func(err error) { t.Fatalf("unexpected failure: %v", err) },
	)

	require.Equal(t, []byte("<html>home</html>"), got)
	assert.Equal(t, 1, store.readCount("/index.html"))
	assert.True(t, c.Contains("/index.html"))

	// Second request must be served from the cache without another read.
	got = nil
	c.Request("/index.html",
		func(n int, data []byte) { got = data },
		func(err error) { t.Fatalf("unexpected failure: %v", err) },
	)

	require.Equal(t, []byte("<html>home</html>"), got)
	assert.Equal(t, 1, store.readCount("/index.html"))
}

func TestRequest_SuccessReportsLength(t *testing.T) {
	store := newCountingStore()
	store.data["/a.txt"] = []byte("hello")

	c := New(context.Background(), store, inlineScheduler{}, nil)

	var gotN int
	c.Request("/a.txt",
		func(n int, data []byte) { gotN = n },
		func(err error) { t.Fatalf("unexpected failure: %v", err) },
	)

	assert.Equal(t, 5, gotN)
}

func TestRequest_CoalescesConcurrentMisses(t *testing.T) {
	const waiters = 32

	store := newCountingStore()
	store.data["/big.css"] = []byte("body { margin: 0 }")
	store.gate = make(chan struct{})

	c := New(context.Background(), store, inlineScheduler{}, nil)

	var wg sync.WaitGroup
	var successes atomic.Int32
	results := make([][]byte, waiters)

	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Request("/big.css",
				func(n int, data []byte) {
					results[i] = data
					successes.Add(1)
				},
				func(err error) { t.Errorf("unexpected failure: %v", err) },
			)
		}(i)
	}

	close(store.gate)
	wg.Wait()

	assert.Equal(t, int32(waiters), successes.Load())
	assert.Equal(t, 1, store.readCount("/big.css"))
	for i := range results {
		assert.Equal(t, []byte("body { margin: 0 }"), results[i])
	}
	assert.Equal(t, 0, c.PendingCount())
}

func TestRequest_WaitersJoinPendingFetch(t *testing.T) {
	store := newCountingStore()
	store.data["/app.js"] = []byte("console.log(1)")

	sched := &manualScheduler{}
	c := New(context.Background(), store, sched, nil)

	var notified int
	onSuccess := func(n int, data []byte) { notified++ }
	onFailure := func(err error) { t.Fatalf("unexpected failure: %v", err) }

	// First request creates the pending fetch, the next two join it.
	c.Request("/app.js", onSuccess, onFailure)
	c.Request("/app.js", onSuccess, onFailure)
	c.Request("/app.js", onSuccess, onFailure)

	assert.Equal(t, 1, c.PendingCount())
	assert.Equal(t, 0, notified)

	sched.runAll()

	assert.Equal(t, 3, notified)
	assert.Equal(t, 1, store.readCount("/app.js"))
	assert.Equal(t, 0, c.PendingCount())
}

func TestRequest_FailureIsNotCached(t *testing.T) {
	store := newCountingStore()
	store.err = errors.New("disk on fire")

	c := New(context.Background(), store, inlineScheduler{}, nil)

	var gotErr error
	c.Request("/flaky.txt",
		func(n int, data []byte) { t.Fatal("unexpected success") },
		func(err error) { gotErr = err },
	)

	require.Error(t, gotErr)
	assert.False(t, c.Contains("/flaky.txt"))
	assert.Equal(t, 0, c.PendingCount())

	// The store recovers; a retry must issue a fresh read and succeed.
	store.mu.Lock()
	store.err = nil
	store.data["/flaky.txt"] = []byte("better now")
	store.mu.Unlock()

	var got []byte
	c.Request("/flaky.txt",
		func(n int, data []byte) { got = data },
		func(err error) { t.Fatalf("unexpected failure: %v", err) },
	)

	require.Equal(t, []byte("better now"), got)
	assert.Equal(t, 2, store.readCount("/flaky.txt"))
}

func TestRequest_NotFoundPropagates(t *testing.T) {
	store := newCountingStore()

	c := New(context.Background(), store, inlineScheduler{}, nil)

	var gotErr error
	c.Request("/missing.html",
		func(n int, data []byte) { t.Fatal("unexpected success") },
		func(err error) { gotErr = err },
	)

	require.Error(t, gotErr)
	assert.ErrorIs(t, gotErr, resource.ErrNotFound)
	assert.False(t, c.Contains("/missing.html"))
}

func TestRequest_SchedulerRejection(t *testing.T) {
	store := newCountingStore()
	store.data["/busy.html"] = []byte("later")

	c := New(context.Background(), store, rejectingScheduler{}, nil)

	var gotErr error
	c.Request("/busy.html",
		func(n int, data []byte) { t.Fatal("unexpected success") },
		func(err error) { gotErr = err },
	)

	require.ErrorIs(t, gotErr, ErrOverloaded)
	assert.Equal(t, 0, store.readCount("/busy.html"))
	assert.Equal(t, 0, c.PendingCount())

	// Nothing stays pending, so a retry with headroom succeeds.
	c2 := New(context.Background(), store, inlineScheduler{}, nil)
	var got []byte
	c2.Request("/busy.html",
		func(n int, data []byte) { got = data },
		func(err error) { t.Fatalf("unexpected failure: %v", err) },
	)
	assert.Equal(t, []byte("later"), got)
}
