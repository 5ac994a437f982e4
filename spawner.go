// Package spawner submits asynchronous work to a worker pool and returns
// handles that can be awaited or canceled.
//
// A TaskSpawner is a thin facade over a Pool. Copies of a TaskSpawner share
// the same pool, and spawning from any copy, on any goroutine, is safe.
package spawner

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/alitto/spawner/pool"
)

// Pool is the worker pool capability a TaskSpawner submits work to.
type Pool interface {
	// Go enqueues a task to be executed by one of the pool's workers.
	// It returns an error if the pool cannot accept the task, e.g. because it has been stopped
	// or its queue is full.
	Go(task func()) error

	// StopAndWait stops accepting tasks and waits for the accepted ones to complete.
	StopAndWait()
}

// owner is shared by all copies of a TaskSpawner and by the handles they return.
type owner struct {
	pool    Pool
	ctx     context.Context
	logger  logrus.FieldLogger
	owned   bool
	cleanup runtime.Cleanup
	release sync.Once
}

// TaskSpawner spawns tasks on a shared Pool.
// The zero value has no pool and rejects every task with ErrNoPool.
type TaskSpawner struct {
	owner *owner
}

// New creates a TaskSpawner backed by a new fixed-size pool.
// The pool has one worker per CPU unless WithSize says otherwise.
// If the pool cannot be created a *PoolCreationError is returned.
//
// The pool is stopped, after draining its queue, once the returned spawner,
// all of its copies and all the handles it returned are unreachable.
// Use IntoPool to take over the pool instead.
func New(options ...Option) (TaskSpawner, error) {
	cfg := newConfig(options)

	p, err := pool.New(cfg.size,
		pool.WithContext(cfg.ctx),
		pool.WithQueueSize(cfg.queueSize),
		pool.WithNonBlocking(cfg.nonBlocking),
		pool.WithLogger(cfg.logger))
	if err != nil {
		return TaskSpawner{}, &PoolCreationError{Err: err}
	}

	o := &owner{
		pool:   p,
		ctx:    cfg.ctx,
		logger: cfg.logger,
		owned:  true,
	}
	o.cleanup = runtime.AddCleanup(o, stopPool, Pool(p))

	return TaskSpawner{owner: o}, nil
}

// From wraps a pool created by the caller. The spawner never stops it.
// Sizing options are ignored.
//
// If the pool has a Context method, as *pool.Pool does, handles are canceled
// along with the pool's context, since the pool discards queued tasks at that point.
func From(p Pool, options ...Option) TaskSpawner {
	if p == nil {
		panic(errors.New("pool cannot be nil"))
	}

	cfg := newConfig(options)
	if cfg.ctx == nil {
		panic(errors.New("context cannot be nil"))
	}

	ctx := cfg.ctx
	if cp, ok := p.(interface{ Context() context.Context }); ok && cp.Context() != nil {
		ctx = withPoolContext(ctx, cp.Context())
	}

	return TaskSpawner{
		owner: &owner{
			pool:   p,
			ctx:    ctx,
			logger: cfg.logger,
		},
	}
}

// withPoolContext returns a child of parent that is also canceled, with the same cause,
// when poolCtx is done.
func withPoolContext(parent, poolCtx context.Context) context.Context {
	ctx, cancel := context.WithCancelCause(parent)

	stop := context.AfterFunc(poolCtx, func() {
		cancel(context.Cause(poolCtx))
	})
	context.AfterFunc(ctx, func() {
		stop()
	})

	return ctx
}

// Pool returns the pool this spawner submits to.
func (s TaskSpawner) Pool() Pool {
	if s.owner == nil {
		return nil
	}
	return s.owner.pool
}

// IntoPool returns the pool this spawner submits to and hands its ownership to the caller:
// the pool will no longer be stopped when the spawner becomes unreachable.
// Copies of the spawner remain usable.
func (s TaskSpawner) IntoPool() Pool {
	if s.owner == nil {
		return nil
	}

	o := s.owner
	o.release.Do(func() {
		if o.owned {
			o.cleanup.Stop()
			o.owned = false
		}
	})

	return o.pool
}

func stopPool(p Pool) {
	// Cleanups share a single goroutine, don't block it while the queue drains
	go p.StopAndWait()
}
