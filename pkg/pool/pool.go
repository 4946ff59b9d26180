// Package pool provides the bounded worker pool that runs all
// connection handling and resource fetches. Workers are reused through
// per-worker channels so hot paths avoid goroutine churn; idle workers
// are reaped after a quiet period.
package pool

import (
	"runtime"
	"sync"
	"time"
)

// DefaultMaxWorkers returns the default worker ceiling: four workers
// per core.
func DefaultMaxWorkers() int {
	return runtime.NumCPU() << 2
}

// Pool runs tasks on a bounded set of reusable worker goroutines.
//
// TrySchedule never blocks: when every worker is busy and the ceiling
// is reached it reports rejection and the caller decides the overload
// policy (the server answers 503). Tasks themselves must not assume
// any ordering across workers.
type Pool struct {
	// MaxWorkers is the worker ceiling. Zero selects DefaultMaxWorkers.
	MaxWorkers int

	// MaxIdleWorkerDuration is how long an idle worker may live before
	// the cleaner stops it. Zero selects ten seconds.
	MaxIdleWorkerDuration time.Duration

	lock         sync.Mutex
	ready        []*workerChan
	workersCount int
	mustStop     bool

	stopCh chan struct{}

	workerChanPool sync.Pool
}

type workerChan struct {
	lastUseTime time.Time
	ch          chan func()
}

// New creates a Pool with the given worker ceiling. Zero selects
// DefaultMaxWorkers.
func New(maxWorkers int) *Pool {
	return &Pool{MaxWorkers: maxWorkers}
}

// Start launches the idle-worker cleaner. Must be called before
// TrySchedule.
func (p *Pool) Start() {
	if p.stopCh != nil {
		panic("BUG: pool already started")
	}
	if p.MaxWorkers <= 0 {
		p.MaxWorkers = DefaultMaxWorkers()
	}
	if p.MaxIdleWorkerDuration <= 0 {
		p.MaxIdleWorkerDuration = 10 * time.Second
	}
	p.stopCh = make(chan struct{})
	p.workerChanPool.New = func() any {
		return &workerChan{ch: make(chan func(), 1)}
	}

	stopCh := p.stopCh
	go func() {
		var scratch []*workerChan
		ticker := time.NewTicker(p.MaxIdleWorkerDuration)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				p.clean(&scratch)
			}
		}
	}()
}

// Stop terminates the cleaner and all idle workers. Busy workers stop
// after finishing their current task.
func (p *Pool) Stop() {
	if p.stopCh == nil {
		panic("BUG: pool wasn't started")
	}
	close(p.stopCh)
	p.stopCh = nil

	p.lock.Lock()
	for _, ch := range p.ready {
		ch.ch <- nil
	}
	p.ready = nil
	p.mustStop = true
	p.lock.Unlock()
}

// TrySchedule submits a task. It returns false when the pool is
// saturated or stopped; the task is not run in that case.
func (p *Pool) TrySchedule(task func()) bool {
	ch := p.getCh()
	if ch == nil {
		return false
	}
	ch.ch <- task
	return true
}

// getCh pops an idle worker or spawns a new one below the ceiling.
func (p *Pool) getCh() *workerChan {
	var ch *workerChan
	createWorker := false

	p.lock.Lock()
	if p.mustStop {
		p.lock.Unlock()
		return nil
	}
	n := len(p.ready) - 1
	if n < 0 {
		if p.workersCount < p.MaxWorkers {
			createWorker = true
			p.workersCount++
		}
	} else {
		ch = p.ready[n]
		p.ready[n] = nil
		p.ready = p.ready[:n]
	}
	p.lock.Unlock()

	if ch == nil {
		if !createWorker {
			return nil
		}
		ch = p.workerChanPool.Get().(*workerChan)
		go func() {
			p.workerFunc(ch)
			p.workerChanPool.Put(ch)
		}()
	}
	return ch
}

// release parks a worker back on the idle list.
func (p *Pool) release(ch *workerChan) bool {
	ch.lastUseTime = time.Now()
	p.lock.Lock()
	if p.mustStop {
		p.lock.Unlock()
		return false
	}
	p.ready = append(p.ready, ch)
	p.lock.Unlock()
	return true
}

func (p *Pool) workerFunc(ch *workerChan) {
	for task := range ch.ch {
		if task == nil {
			break
		}
		task()
		if !p.release(ch) {
			break
		}
	}

	p.lock.Lock()
	p.workersCount--
	p.lock.Unlock()
}

// clean stops workers idle for longer than MaxIdleWorkerDuration.
func (p *Pool) clean(scratch *[]*workerChan) {
	criticalTime := time.Now().Add(-p.MaxIdleWorkerDuration)

	p.lock.Lock()
	ready := p.ready
	n := len(ready)

	// Idle workers are appended in release order, so the stale ones
	// sit at the front of the list.
	i := 0
	for i < n && criticalTime.After(ready[i].lastUseTime) {
		i++
	}
	*scratch = append((*scratch)[:0], ready[:i]...)
	if i > 0 {
		m := copy(ready, ready[i:])
		for j := m; j < n; j++ {
			ready[j] = nil
		}
		p.ready = ready[:m]
	}
	p.lock.Unlock()

	// Notify outside the lock; a stale worker may be mid-release.
	for _, ch := range *scratch {
		ch.ch <- nil
	}
}

// WorkerCount returns the number of live workers.
func (p *Pool) WorkerCount() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.workersCount
}
