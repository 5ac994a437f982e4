// Package wpool adapts a gammazero/workerpool WorkerPool to the spawner Pool capability.
package wpool

import (
	"fmt"
	"sync/atomic"

	"github.com/gammazero/workerpool"

	"github.com/alitto/spawner/internal/stopper"
	"github.com/alitto/spawner/pool"
)

// Pool submits tasks to a gammazero WorkerPool. The WorkerPool queue is unbounded,
// so Go never blocks and only fails once the pool has been stopped.
type Pool struct {
	pool               *workerpool.WorkerPool
	stopper            *stopper.Stopper
	runningWorkers     atomic.Int64
	submittedTaskCount atomic.Uint64
	completedTaskCount atomic.Uint64
}

// New creates a WorkerPool running at most maxWorkers tasks concurrently.
func New(maxWorkers int) *Pool {
	return Wrap(workerpool.New(maxWorkers))
}

// Wrap adapts an existing WorkerPool. StopAndWait stops it.
// The WorkerPool should only be stopped through the adapter: if its owner calls
// Stop instead, queued tasks are abandoned and StopAndWait only waits for the running ones.
func Wrap(wp *workerpool.WorkerPool) *Pool {
	return &Pool{
		pool:    wp,
		stopper: stopper.New(),
	}
}

func (p *Pool) Size() int {
	return p.pool.Size()
}

func (p *Pool) Go(task func()) (err error) {
	if !p.stopper.Add(1) {
		return pool.ErrPoolStopped
	}
	if p.pool.Stopped() {
		p.stopper.Done()
		return pool.ErrPoolStopped
	}

	defer func() {
		// The WorkerPool was stopped by its owner between the check and the submit
		if r := recover(); r != nil {
			p.stopper.Done()
			err = fmt.Errorf("%w: %v", pool.ErrPoolStopped, r)
		}
	}()

	p.pool.Submit(func() {
		p.runningWorkers.Add(1)
		defer func() {
			p.runningWorkers.Add(-1)
			p.completedTaskCount.Add(1)
			p.stopper.Done()
		}()

		task()
	})

	p.submittedTaskCount.Add(1)
	return nil
}

// StopAndWait refuses new tasks, waits for the queued ones and stops the WorkerPool.
func (p *Pool) StopAndWait() {
	p.stopper.Stop()

	if p.pool.Stopped() {
		// Abandoned tasks never report back, wait for the WorkerPool to exit instead
		p.pool.StopWait()
		return
	}

	p.stopper.Wait()
	p.pool.StopWait()
}

// Stopped reports whether the pool no longer accepts tasks.
func (p *Pool) Stopped() bool {
	return p.stopper.Stopping() || p.pool.Stopped()
}

func (p *Pool) RunningWorkers() int64 {
	return p.runningWorkers.Load()
}

func (p *Pool) SubmittedTasks() uint64 {
	return p.submittedTaskCount.Load()
}

func (p *Pool) WaitingTasks() uint64 {
	return uint64(p.pool.WaitingQueueSize())
}

func (p *Pool) CompletedTasks() uint64 {
	return p.completedTaskCount.Load()
}
