package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool runs batches of line work on a fixed set of goroutines.
//
// Every batch goes through one shared queue, so a slow band never holds
// faster ones behind it. The goroutine that submits a batch takes part in
// it: items that do not fit in the queue run on the caller, and while it
// waits the caller keeps pulling queued items. A work item may therefore
// call ExecuteAll itself.
type WorkerPool struct {
	workers int
	queue   chan task
	wg      sync.WaitGroup

	// mu orders sends on queue against Close closing it.
	mu     sync.RWMutex
	closed bool
}

// batch tracks the items of one ExecuteAll call.
type batch struct {
	remaining atomic.Int64
	done      chan struct{}
}

type task struct {
	fn func()
	b  *batch
}

func (t task) run() {
	t.fn()
	if t.b.remaining.Add(-1) == 0 {
		close(t.b.done)
	}
}

// NewWorkerPool starts a pool with the given number of workers. If workers
// is 0 or negative, GOMAXPROCS is used.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	p := &WorkerPool{
		workers: workers,
		queue:   make(chan task, max(8, workers*4)),
	}
	p.wg.Add(workers)
	for range workers {
		go p.worker()
	}
	return p
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for t := range p.queue {
		t.run()
	}
}

// submit queues t unless the pool is closed or the queue is full.
func (p *WorkerPool) submit(t task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.queue <- t:
		return true
	default:
		return false
	}
}

// ExecuteAll runs every item and returns when all of them have finished.
// On a closed pool the items run on the calling goroutine.
func (p *WorkerPool) ExecuteAll(work []func()) {
	if len(work) == 0 {
		return
	}
	b := &batch{done: make(chan struct{})}
	b.remaining.Store(int64(len(work)))

	for _, fn := range work {
		t := task{fn: fn, b: b}
		if !p.submit(t) {
			t.run()
		}
	}

	for {
		select {
		case <-b.done:
			return
		case t, ok := <-p.queue:
			if !ok {
				// Closed: the workers finish what is left.
				<-b.done
				return
			}
			t.run()
		}
	}
}

// Close stops the workers once the queue has drained. It is safe to call
// more than once.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int { return p.workers }

// IsRunning reports whether the pool still accepts work.
func (p *WorkerPool) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.closed
}
