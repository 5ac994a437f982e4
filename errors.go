package spawner

import (
	"errors"

	"github.com/alitto/spawner/pool"
)

var (
	// ErrPanic wraps the value of a panic raised by a spawned task
	ErrPanic = errors.New("task panicked")

	// ErrNoPool is returned when spawning through a zero TaskSpawner
	ErrNoPool = errors.New("spawner has no pool")

	// ErrPoolStopped is wrapped by the SubmissionError of a task sent to a stopped pool
	ErrPoolStopped = pool.ErrPoolStopped

	// ErrQueueFull is wrapped by the SubmissionError of a task sent to a full non-blocking pool
	ErrQueueFull = pool.ErrQueueFull
)

// PoolCreationError is returned by New when the worker pool cannot be created.
type PoolCreationError struct {
	Err error
}

func (e *PoolCreationError) Error() string {
	return "cannot create worker pool: " + e.Err.Error()
}

func (e *PoolCreationError) Unwrap() error {
	return e.Err
}

// SubmissionError is returned by Spawn and SpawnRes when the pool does not accept the task.
// The task is never executed.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return "cannot submit task: " + e.Err.Error()
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}
