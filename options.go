package spawner

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/alitto/spawner/pool"
)

// Option configures a TaskSpawner created by New or From.
type Option func(*config)

type config struct {
	ctx         context.Context
	logger      logrus.FieldLogger
	size        int
	queueSize   int
	nonBlocking bool
}

func newConfig(options []Option) *config {
	cfg := &config{
		ctx:       context.Background(),
		logger:    logrus.StandardLogger(),
		queueSize: pool.DefaultQueueSize,
	}

	for _, option := range options {
		option(cfg)
	}

	return cfg
}

// WithContext sets the parent context of every spawned task.
// Canceling it cancels all pending handles. For spawners created with New,
// it also stops the pool.
func WithContext(ctx context.Context) Option {
	return func(c *config) {
		c.ctx = ctx
	}
}

// WithLogger sets the logger used to report panics and rejected tasks.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSize sets the number of workers of the pool created by New.
// 0 means one worker per CPU.
func WithSize(size int) Option {
	return func(c *config) {
		c.size = size
	}
}

// WithQueueSize sets the max number of tasks that can wait in the queue of the pool created by New.
func WithQueueSize(size int) Option {
	return func(c *config) {
		c.queueSize = size
	}
}

// WithNonBlocking makes spawning on the pool created by New fail with ErrQueueFull
// instead of blocking when its queue is full.
func WithNonBlocking(nonBlocking bool) Option {
	return func(c *config) {
		c.nonBlocking = nonBlocking
	}
}
