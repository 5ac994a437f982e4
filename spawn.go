package spawner

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"github.com/alitto/spawner/internal/future"
)

var errNilTask = errors.New("task cannot be nil")

// VoidFunc is the set of task signatures accepted by Spawn.
type VoidFunc interface {
	func() | func(context.Context) | func() error | func(context.Context) error
}

// ResultFunc is the set of task signatures accepted by SpawnRes.
type ResultFunc[R any] interface {
	func() R | func(context.Context) R | func() (R, error) | func(context.Context) (R, error)
}

// Spawn submits a task whose output is not needed and returns a handle that resolves once it finishes.
// Tasks accepting a context.Context receive the handle's context and should stop when it is done.
// If the pool rejects the task, a *SubmissionError is returned and the task never runs.
func Spawn[T VoidFunc](s TaskSpawner, task T) (Task, error) {
	f, err := submit(s, normalizeVoid(task))
	if err != nil {
		return nil, err
	}
	return &voidTask{ValueFuture: f, owner: s.owner}, nil
}

// SpawnRes submits a task producing a value and returns a handle that yields it.
// Errors returned by the task are relayed as-is by the handle.
// If the pool rejects the task, a *SubmissionError is returned and the task never runs.
func SpawnRes[R any, T ResultFunc[R]](s TaskSpawner, task T) (ResultTask[R], error) {
	f, err := submit(s, normalizeResult[R](task))
	if err != nil {
		return nil, err
	}
	return &resultTask[R]{ValueFuture: f, owner: s.owner}, nil
}

func submit[R any](s TaskSpawner, fn func(context.Context) (R, error)) (*future.ValueFuture[R], error) {
	o := s.owner
	if o == nil {
		return nil, &SubmissionError{Err: ErrNoPool}
	}

	f, resolve := future.NewValueFuture[R](o.ctx)
	ctx := f.Context()
	logger := o.logger

	err := o.pool.Go(func() {
		if ctx.Err() != nil {
			logger.WithField("cause", context.Cause(ctx)).Debug("task canceled before it started")
			return
		}

		resolve(invoke(ctx, fn, logger))
	})
	if err != nil {
		f.Cancel()
		logger.WithError(err).Warn("pool rejected task")
		return nil, &SubmissionError{Err: err}
	}

	return f, nil
}

func invoke[R any](ctx context.Context, fn func(context.Context) (R, error), logger logrus.FieldLogger) (output R, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, p)
			logger.WithField("panic", p).Errorf("task panicked\n%s", debug.Stack())
		}
	}()

	return fn(ctx)
}

func normalizeVoid[T VoidFunc](task T) func(context.Context) (struct{}, error) {
	switch t := any(task).(type) {
	case func():
		if t == nil {
			panic(errNilTask)
		}
		return func(context.Context) (struct{}, error) {
			t()
			return struct{}{}, nil
		}
	case func(context.Context):
		if t == nil {
			panic(errNilTask)
		}
		return func(ctx context.Context) (struct{}, error) {
			t(ctx)
			return struct{}{}, nil
		}
	case func() error:
		if t == nil {
			panic(errNilTask)
		}
		return func(context.Context) (struct{}, error) {
			return struct{}{}, t()
		}
	case func(context.Context) error:
		if t == nil {
			panic(errNilTask)
		}
		return func(ctx context.Context) (struct{}, error) {
			return struct{}{}, t(ctx)
		}
	default:
		panic(fmt.Sprintf("unsupported task type: %#v", task))
	}
}

func normalizeResult[R any, T ResultFunc[R]](task T) func(context.Context) (R, error) {
	switch t := any(task).(type) {
	case func() R:
		if t == nil {
			panic(errNilTask)
		}
		return func(context.Context) (R, error) {
			return t(), nil
		}
	case func(context.Context) R:
		if t == nil {
			panic(errNilTask)
		}
		return func(ctx context.Context) (R, error) {
			return t(ctx), nil
		}
	case func() (R, error):
		if t == nil {
			panic(errNilTask)
		}
		return func(context.Context) (R, error) {
			return t()
		}
	case func(context.Context) (R, error):
		if t == nil {
			panic(errNilTask)
		}
		return t
	default:
		panic(fmt.Sprintf("unsupported task type: %#v", task))
	}
}
