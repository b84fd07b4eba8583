package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// WorkerState is a worker lifecycle state.
type WorkerState string

const (
	WorkerIdle     WorkerState = "idle"
	WorkerActive   WorkerState = "active"
	WorkerInactive WorkerState = "inactive"
)

// ErrPoolClosed is returned by Acquire after Close.
var ErrPoolClosed = errors.New("worker pool closed")

// Worker is a pooled execution slot. A worker holds no job data; it only
// tracks which job it is serving.
type Worker struct {
	id string

	mu        sync.Mutex
	state     WorkerState
	current   string
	completed int
}

func newWorker() *Worker {
	return &Worker{id: uuid.NewString(), state: WorkerIdle}
}

// ID returns the worker identifier.
func (w *Worker) ID() string { return w.id }

// State returns the current lifecycle state.
func (w *Worker) State() WorkerState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Assign labels the work in progress, typically the source path.
func (w *Worker) Assign(label string) {
	w.mu.Lock()
	w.current = label
	w.mu.Unlock()
}

// WorkerInfo is a point-in-time view of a worker.
type WorkerInfo struct {
	ID        string
	State     WorkerState
	Current   string
	Completed int
}

func (w *Worker) info() WorkerInfo {
	w.mu.Lock()
	defer w.mu.Unlock()
	return WorkerInfo{ID: w.id, State: w.state, Current: w.current, Completed: w.completed}
}

func (w *Worker) transition(from, to WorkerState) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != from {
		return false
	}
	w.state = to
	if from == WorkerActive {
		if w.current != "" {
			w.completed++
		}
		w.current = ""
	}
	return true
}

// Pool owns a set of workers. Max bounds how many may exist at once; zero
// means unbounded.
type Pool struct {
	max int

	mu       sync.Mutex
	workers  []*Worker
	closed   bool
	released chan struct{}
}

// NewPool creates an empty pool. Workers are created on demand.
func NewPool(maxWorkers int) *Pool {
	if maxWorkers < 0 {
		maxWorkers = 0
	}
	return &Pool{max: maxWorkers, released: make(chan struct{})}
}

// Acquire returns an idle worker switched to ACTIVE, creating one when the
// pool is below its bound. When every worker is busy it blocks until one is
// released, ctx is done, or the pool is closed.
func (p *Pool) Acquire(ctx context.Context) (*Worker, error) {
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, ErrPoolClosed
		}
		for _, w := range p.workers {
			if w.transition(WorkerIdle, WorkerActive) {
				p.mu.Unlock()
				return w, nil
			}
		}
		if p.max == 0 || len(p.workers) < p.max {
			w := newWorker()
			w.state = WorkerActive
			p.workers = append(p.workers, w)
			p.mu.Unlock()
			return w, nil
		}
		wait := p.released
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wait:
		}
	}
}

// Release returns an ACTIVE worker to IDLE. Releasing a worker that is not
// active, or one from another pool, is a no-op.
func (p *Pool) Release(w *Worker) {
	if w == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		w.transition(WorkerActive, WorkerInactive)
		return
	}
	if w.transition(WorkerActive, WorkerIdle) {
		p.broadcast()
	}
}

// Close marks idle workers INACTIVE and wakes blocked Acquire calls. Active
// workers become INACTIVE when released.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for _, w := range p.workers {
		w.transition(WorkerIdle, WorkerInactive)
	}
	p.broadcast()
}

// broadcast wakes every waiter. Caller holds p.mu.
func (p *Pool) broadcast() {
	close(p.released)
	p.released = make(chan struct{})
}

// Snapshot describes every worker the pool has created.
func (p *Pool) Snapshot() []WorkerInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]WorkerInfo, 0, len(p.workers))
	for _, w := range p.workers {
		out = append(out, w.info())
	}
	return out
}

// Max returns the configured bound; zero means unbounded.
func (p *Pool) Max() int { return p.max }
