package spawner

import (
	"context"

	"github.com/alitto/spawner/internal/future"
)

// Task is the handle of a task spawned with Spawn.
type Task interface {

	// Done returns a channel that is closed when the task is complete, has failed or was canceled.
	Done() <-chan struct{}

	// Wait waits for the task to complete and returns any error that occurred.
	// If the task was canceled, the cancellation cause is returned (context.Canceled by default).
	Wait() error

	// Context returns the context handed to the task. It is done once the task completes or is canceled.
	Context() context.Context

	// Cancel cancels the task. A task that has not started yet will never run,
	// a running task sees its context canceled.
	Cancel()
}

// ResultTask is the handle of a task spawned with SpawnRes.
type ResultTask[R any] interface {

	// Done returns a channel that is closed when the task is complete, has failed or was canceled.
	Done() <-chan struct{}

	// Wait waits for the task to complete and returns its result and any error that occurred.
	// If the task was canceled, the zero value and the cancellation cause are returned.
	Wait() (R, error)

	// Context returns the context handed to the task. It is done once the task completes or is canceled.
	Context() context.Context

	// Cancel cancels the task. A task that has not started yet will never run,
	// a running task sees its context canceled.
	Cancel()
}

type resultTask[R any] struct {
	*future.ValueFuture[R]
	// keeps the pool alive while the handle is held
	owner *owner
}

type voidTask struct {
	*future.ValueFuture[struct{}]
	owner *owner
}

func (t *voidTask) Wait() error {
	_, err := t.ValueFuture.Wait()
	return err
}
