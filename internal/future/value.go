package future

import (
	"context"
	"fmt"
)

// ValueFutureResolver settles a ValueFuture. Only the first call, or a prior
// cancellation, has an effect.
type ValueFutureResolver[V any] func(value V, err error)

// A ValueFuture represents a value that will be available in the future.
// It is always associated with a context that can be used to wait for the value to be available.
// The same context is the cancellation token handed to the computation producing the value:
// canceling the future, or its parent context, cancels that context as well.
type ValueFuture[V any] struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
}

// Context returns the context tied to the lifetime of this future.
// It is done once the future is resolved or canceled.
func (f *ValueFuture[V]) Context() context.Context {
	return f.ctx
}

// Done returns a channel that is closed when the future is resolved or canceled.
func (f *ValueFuture[V]) Done() <-chan struct{} {
	return f.ctx.Done()
}

// Cancel cancels the future. It has no effect if the future was already resolved.
func (f *ValueFuture[V]) Cancel() {
	f.cancel(context.Canceled)
}

// Resolved reports whether the future completed with a value rather than being canceled.
// It returns false while the future is pending.
func (f *ValueFuture[V]) Resolved() bool {
	select {
	case <-f.ctx.Done():
	default:
		return false
	}
	_, ok := context.Cause(f.ctx).(*valueFutureResolution[V])
	return ok
}

// Wait waits for the future to complete and returns the value and any error that occurred.
// If the future was canceled, the zero value and the cancellation cause are returned.
func (f *ValueFuture[V]) Wait() (V, error) {
	<-f.ctx.Done()
	cause := context.Cause(f.ctx)
	if resolution, ok := cause.(*valueFutureResolution[V]); ok {
		return resolution.value, resolution.err
	}
	var zero V
	return zero, cause
}

// NewValueFuture creates a pending future bound to ctx and returns it with its resolver.
func NewValueFuture[V any](ctx context.Context) (*ValueFuture[V], ValueFutureResolver[V]) {
	childCtx, cancel := context.WithCancelCause(ctx)
	future := &ValueFuture[V]{
		ctx:    childCtx,
		cancel: cancel,
	}
	return future, func(value V, err error) {
		cancel(&valueFutureResolution[V]{
			value: value,
			err:   err,
		})
	}
}

type valueFutureResolution[V any] struct {
	value V
	err   error
}

func (v *valueFutureResolution[V]) Error() string {
	if v.err != nil {
		return v.err.Error()
	}
	return fmt.Sprintf("future value: %v", v.value)
}
