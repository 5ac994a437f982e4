package pool

import (
	"context"

	"github.com/sirupsen/logrus"
)

type Option func(*Pool)

// WithContext sets the context for the pool.
// Canceling it stops the workers without draining the queue.
func WithContext(ctx context.Context) Option {
	return func(p *Pool) {
		p.ctx = ctx
	}
}

// WithQueueSize sets the max number of tasks that can be queued in the pool.
func WithQueueSize(size int) Option {
	return func(p *Pool) {
		p.queueSize = size
	}
}

// WithNonBlocking makes Go return ErrQueueFull instead of blocking when the queue is full.
func WithNonBlocking(nonBlocking bool) Option {
	return func(p *Pool) {
		p.nonBlocking = nonBlocking
	}
}

// WithLogger sets the logger used to report panics and lifecycle events.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}
