// Package antspool adapts an ants goroutine pool to the spawner Pool capability.
package antspool

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"

	"github.com/alitto/spawner/internal/stopper"
	"github.com/alitto/spawner/pool"
)

// Pool submits tasks to an *ants.Pool and tracks their completion so that
// StopAndWait can drain it before releasing the ants workers.
type Pool struct {
	pool               *ants.Pool
	stopper            *stopper.Stopper
	runningWorkers     atomic.Int64
	submittedTaskCount atomic.Uint64
	completedTaskCount atomic.Uint64
}

// New creates an ants pool with the given capacity and options.
// Any error returned by ants.NewPool is returned unchanged.
func New(size int, options ...ants.Option) (*Pool, error) {
	p, err := ants.NewPool(size, options...)
	if err != nil {
		return nil, err
	}
	return Wrap(p), nil
}

// Wrap adapts an existing ants pool. The adapter takes ownership of it:
// StopAndWait releases the ants pool.
// Releasing the ants pool directly makes Go fail with ErrPoolStopped. Tasks accepted
// before that still run to completion, and StopAndWait waits for them.
func Wrap(p *ants.Pool) *Pool {
	return &Pool{
		pool:    p,
		stopper: stopper.New(),
	}
}

// Unwrap returns the underlying ants pool.
func (p *Pool) Unwrap() *ants.Pool {
	return p.pool
}

func (p *Pool) Go(task func()) error {
	if !p.stopper.Add(1) {
		return pool.ErrPoolStopped
	}
	if p.pool.IsClosed() {
		p.stopper.Done()
		return pool.ErrPoolStopped
	}

	err := p.pool.Submit(func() {
		p.runningWorkers.Add(1)
		defer func() {
			p.runningWorkers.Add(-1)
			p.completedTaskCount.Add(1)
			p.stopper.Done()
		}()

		task()
	})
	if err != nil {
		p.stopper.Done()
		if errors.Is(err, ants.ErrPoolClosed) {
			return fmt.Errorf("%w: %w", pool.ErrPoolStopped, err)
		}
		return err
	}

	p.submittedTaskCount.Add(1)
	return nil
}

// StopAndWait refuses new tasks, waits for the accepted ones and releases the ants pool.
func (p *Pool) StopAndWait() {
	p.stopper.Stop()
	p.stopper.Wait()
	p.pool.Release()
}

// Stopped reports whether the pool no longer accepts tasks.
func (p *Pool) Stopped() bool {
	return p.stopper.Stopping() || p.pool.IsClosed()
}

func (p *Pool) RunningWorkers() int64 {
	return p.runningWorkers.Load()
}

func (p *Pool) SubmittedTasks() uint64 {
	return p.submittedTaskCount.Load()
}

// WaitingTasks returns the number of submitters blocked waiting for an ants worker.
func (p *Pool) WaitingTasks() uint64 {
	return uint64(p.pool.Waiting())
}

func (p *Pool) CompletedTasks() uint64 {
	return p.completedTaskCount.Load()
}
