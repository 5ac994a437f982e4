package pool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// DefaultQueueSize is the number of tasks that can wait in the queue of a pool
// created without the WithQueueSize option.
const DefaultQueueSize = 2048

var (
	// ErrPoolStopped is returned when submitting a task to a pool that has been stopped
	ErrPoolStopped = errors.New("pool stopped")

	// ErrQueueFull is returned when submitting a task to a non-blocking pool whose queue is full
	ErrQueueFull = errors.New("queue is full")

	// ErrInvalidSize is returned by New when the pool size is negative
	ErrInvalidSize = errors.New("pool size must be greater than or equal to 0")

	// ErrInvalidQueueSize is returned by New when the queue size is not positive
	ErrInvalidQueueSize = errors.New("queue size must be greater than 0")
)

// Pool is a fixed-size pool of worker goroutines fed by a bounded queue.
// All workers are started when the pool is created and exit when it is stopped
// or its context is canceled.
type Pool struct {
	ctx                context.Context
	size               int
	queueSize          int
	nonBlocking        bool
	logger             logrus.FieldLogger
	tasks              chan func()
	mutex              sync.RWMutex
	stopped            bool
	workerWaitGroup    sync.WaitGroup
	runningWorkers     atomic.Int64
	submittedTaskCount atomic.Uint64
	completedTaskCount atomic.Uint64
}

// Context returns the context associated with this pool.
func (p *Pool) Context() context.Context {
	return p.ctx
}

// Size returns the number of worker goroutines of this pool.
func (p *Pool) Size() int {
	return p.size
}

// QueueSize returns the maximum number of tasks that can wait in the queue.
func (p *Pool) QueueSize() int {
	return p.queueSize
}

// NonBlocking reports whether Go fails instead of blocking when the queue is full.
func (p *Pool) NonBlocking() bool {
	return p.nonBlocking
}

// RunningWorkers returns the number of workers currently executing a task.
func (p *Pool) RunningWorkers() int64 {
	return p.runningWorkers.Load()
}

// SubmittedTasks returns the number of tasks accepted since the pool was created.
func (p *Pool) SubmittedTasks() uint64 {
	return p.submittedTaskCount.Load()
}

// WaitingTasks returns the number of tasks waiting in the queue.
func (p *Pool) WaitingTasks() uint64 {
	return uint64(len(p.tasks))
}

// CompletedTasks returns the number of tasks that finished running, panics included.
func (p *Pool) CompletedTasks() uint64 {
	return p.completedTaskCount.Load()
}

// Stopped reports whether the pool no longer accepts tasks.
func (p *Pool) Stopped() bool {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	return p.stopped || p.ctx.Err() != nil
}

// Go enqueues a task to be executed by one of the workers.
// When the queue is full Go blocks until there is room, unless the pool is non-blocking,
// in which case ErrQueueFull is returned.
func (p *Pool) Go(task func()) error {
	if task == nil {
		panic(errors.New("task cannot be nil"))
	}

	p.mutex.RLock()
	defer p.mutex.RUnlock()

	if p.stopped {
		return ErrPoolStopped
	}
	if err := p.ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrPoolStopped, err)
	}

	// Attempt to submit task without blocking
	select {
	case p.tasks <- task:
		p.submittedTaskCount.Add(1)
		return nil
	default:
	}

	if p.nonBlocking {
		return ErrQueueFull
	}

	// Block until the task is submitted
	select {
	case p.tasks <- task:
		p.submittedTaskCount.Add(1)
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("%w: %w", ErrPoolStopped, p.ctx.Err())
	}
}

// StopAndWait stops accepting tasks and waits for all queued tasks to complete.
// If the pool context is canceled, queued tasks are discarded instead.
func (p *Pool) StopAndWait() {
	p.mutex.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.tasks)
		p.logger.WithField("size", p.size).Debug("stopping pool")
	}
	p.mutex.Unlock()

	p.workerWaitGroup.Wait()
}

func (p *Pool) startWorkers() {
	p.workerWaitGroup.Add(p.size)
	for i := 0; i < p.size; i++ {
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.workerWaitGroup.Done()

	for {
		// Prioritize context cancellation over task execution
		select {
		case <-p.ctx.Done():
			// Context cancelled, exit
			return
		default:
		}

		select {
		case <-p.ctx.Done():
			// Context cancelled, exit
			return
		case task, ok := <-p.tasks:
			if !ok {
				// Channel closed, exit
				return
			}

			p.run(task)
		}
	}
}

func (p *Pool) run(task func()) {
	p.runningWorkers.Add(1)

	defer func() {
		if r := recover(); r != nil {
			p.logger.WithField("panic", r).Errorf("worker recovered from a panic\n%s", debug.Stack())
		}
		p.completedTaskCount.Add(1)
		p.runningWorkers.Add(-1)
	}()

	task()
}

// New creates a pool with the given number of workers and starts them.
// A size of 0 creates one worker per available CPU.
func New(size int, options ...Option) (*Pool, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidSize, size)
	}
	if size == 0 {
		size = runtime.NumCPU()
	}

	pool := &Pool{
		ctx:       context.Background(),
		size:      size,
		queueSize: DefaultQueueSize,
		logger:    logrus.StandardLogger(),
	}

	for _, option := range options {
		option(pool)
	}

	if pool.ctx == nil {
		return nil, errors.New("pool context cannot be nil")
	}
	if err := pool.ctx.Err(); err != nil {
		return nil, fmt.Errorf("pool context is done: %w", err)
	}
	if pool.queueSize <= 0 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidQueueSize, pool.queueSize)
	}

	pool.tasks = make(chan func(), pool.queueSize)
	pool.startWorkers()

	pool.logger.WithFields(logrus.Fields{
		"size":      pool.size,
		"queueSize": pool.queueSize,
	}).Debug("pool started")

	return pool, nil
}
