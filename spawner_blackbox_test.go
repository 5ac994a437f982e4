package spawner_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/alitto/spawner"
	"github.com/alitto/spawner/pool"
)

func newSpawner(t *testing.T, options ...spawner.Option) spawner.TaskSpawner {
	t.Helper()

	s, err := spawner.New(options...)
	require.NoError(t, err)

	return s
}

func TestSpawnResReturnsValue(t *testing.T) {

	s := newSpawner(t)

	task, err := spawner.SpawnRes[int](s, func() int {
		return 5 + 5
	})
	require.NoError(t, err)

	output, err := task.Wait()

	assert.NoError(t, err)
	assert.Equal(t, 10, output)
}

func TestSpawnResTaskSignatures(t *testing.T) {

	s := newSpawner(t, spawner.WithSize(2))
	sampleErr := errors.New("sample error")

	withCtx, err := spawner.SpawnRes[string](s, func(ctx context.Context) string {
		if ctx.Err() != nil {
			return "canceled"
		}
		return "ctx"
	})
	require.NoError(t, err)

	withErr, err := spawner.SpawnRes[string](s, func() (string, error) {
		return "partial", sampleErr
	})
	require.NoError(t, err)

	withCtxErr, err := spawner.SpawnRes[string](s, func(ctx context.Context) (string, error) {
		return "ctx+err", nil
	})
	require.NoError(t, err)

	output, err := withCtx.Wait()
	assert.NoError(t, err)
	assert.Equal(t, "ctx", output)

	output, err = withErr.Wait()
	assert.Same(t, sampleErr, err)
	assert.Equal(t, "partial", output)

	output, err = withCtxErr.Wait()
	assert.NoError(t, err)
	assert.Equal(t, "ctx+err", output)
}

func TestSpawnResolvesOnCompletion(t *testing.T) {

	s := newSpawner(t)

	var executed atomic.Bool

	task, err := spawner.Spawn(s, func() {
		time.Sleep(5 * time.Millisecond)
		executed.Store(true)
	})
	require.NoError(t, err)

	assert.NoError(t, task.Wait())
	assert.True(t, executed.Load())

	select {
	case <-task.Done():
	default:
		t.Fatal("Done should be closed after Wait returns")
	}
}

func TestSpawnRelaysTaskError(t *testing.T) {

	s := newSpawner(t)
	sampleErr := errors.New("sample error")

	task, err := spawner.Spawn(s, func() error {
		return sampleErr
	})
	require.NoError(t, err)

	assert.Same(t, sampleErr, task.Wait())

	task, err = spawner.Spawn(s, func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)

	assert.NoError(t, task.Wait())

	var ran atomic.Bool
	task, err = spawner.Spawn(s, func(ctx context.Context) {
		ran.Store(ctx != nil)
	})
	require.NoError(t, err)

	assert.NoError(t, task.Wait())
	assert.True(t, ran.Load())
}

func TestSpawnResIndependentHandles(t *testing.T) {

	s := newSpawner(t, spawner.WithSize(8))

	taskCount := 1000
	tasks := make([]spawner.ResultTask[string], taskCount)

	for i := 0; i < taskCount; i++ {
		i := i
		task, err := spawner.SpawnRes[string](s, func() string {
			if i%3 == 0 {
				time.Sleep(100 * time.Microsecond)
			}
			return fmt.Sprintf("task-%d", i)
		})
		require.NoError(t, err)
		tasks[i] = task
	}

	// Await in reverse order of submission
	for i := taskCount - 1; i >= 0; i-- {
		output, err := tasks[i].Wait()
		assert.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("task-%d", i), output)
	}
}

func TestSpawnFromAnotherGoroutine(t *testing.T) {

	p, err := pool.New(4)
	require.NoError(t, err)
	defer p.StopAndWait()

	s := spawner.From(p)

	var group errgroup.Group
	for i := 0; i < 10; i++ {
		i := i
		copied := s
		group.Go(func() error {
			task, err := spawner.SpawnRes[int](copied, func() int {
				return 5 + i
			})
			if err != nil {
				return err
			}

			output, err := task.Wait()
			if err != nil {
				return err
			}
			if output != 5+i {
				return fmt.Errorf("expected %d but got %d", 5+i, output)
			}
			return nil
		})
	}

	assert.NoError(t, group.Wait())
	assert.Equal(t, uint64(10), p.SubmittedTasks())
}

func TestNewFailsWithInvalidPool(t *testing.T) {

	_, err := spawner.New(spawner.WithSize(-1))

	var creationErr *spawner.PoolCreationError
	require.True(t, errors.As(err, &creationErr))
	assert.ErrorIs(t, creationErr, pool.ErrInvalidSize)
	assert.True(t, strings.HasPrefix(err.Error(), "cannot create worker pool: "))

	_, err = spawner.New(spawner.WithQueueSize(0))
	assert.ErrorAs(t, err, &creationErr)
	assert.ErrorIs(t, err, pool.ErrInvalidQueueSize)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = spawner.New(spawner.WithContext(ctx))
	assert.ErrorAs(t, err, &creationErr)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFromIntoPool(t *testing.T) {

	p, err := pool.New(1)
	require.NoError(t, err)
	defer p.StopAndWait()

	s := spawner.From(p)

	assert.Same(t, p, s.Pool())
	assert.Same(t, p, s.IntoPool())

	// The pool is still usable once extracted, directly or re-wrapped
	task, err := spawner.SpawnRes[int](spawner.From(s.IntoPool()), func() int {
		return 1
	})
	require.NoError(t, err)

	output, err := task.Wait()
	assert.NoError(t, err)
	assert.Equal(t, 1, output)
}

func TestFromNilPool(t *testing.T) {

	assert.PanicsWithError(t, "pool cannot be nil", func() {
		spawner.From(nil)
	})
}

func TestSpawnNilTask(t *testing.T) {

	s := newSpawner(t)

	var task func()
	assert.PanicsWithError(t, "task cannot be nil", func() {
		_, _ = spawner.Spawn(s, task)
	})

	var resultTask func() (int, error)
	assert.PanicsWithError(t, "task cannot be nil", func() {
		_, _ = spawner.SpawnRes[int](s, resultTask)
	})
}

func TestZeroSpawner(t *testing.T) {

	var s spawner.TaskSpawner

	task, err := spawner.Spawn(s, func() {})

	assert.Nil(t, task)
	assert.ErrorIs(t, err, spawner.ErrNoPool)
	assert.Nil(t, s.Pool())
	assert.Nil(t, s.IntoPool())
}

func TestCancelBeforeStart(t *testing.T) {

	p, err := pool.New(1)
	require.NoError(t, err)

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	s := spawner.From(p, spawner.WithLogger(logger))

	release := make(chan struct{})
	started := make(chan struct{})

	blocker, err := spawner.Spawn(s, func() {
		close(started)
		<-release
	})
	require.NoError(t, err)
	<-started

	var executed atomic.Bool
	task, err := spawner.Spawn(s, func() {
		executed.Store(true)
	})
	require.NoError(t, err)

	task.Cancel()

	assert.ErrorIs(t, task.Wait(), context.Canceled)

	close(release)
	assert.NoError(t, blocker.Wait())

	p.StopAndWait()

	assert.False(t, executed.Load())
	assert.Equal(t, uint64(2), p.CompletedTasks())

	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, logrus.DebugLevel, hook.LastEntry().Level)
	assert.Equal(t, "task canceled before it started", hook.LastEntry().Message)
	assert.Equal(t, context.Canceled, hook.LastEntry().Data["cause"])
}

func TestCancelPoolContextCancelsQueuedTasks(t *testing.T) {

	ctx, cancel := context.WithCancel(context.Background())
	p, err := pool.New(1, pool.WithContext(ctx))
	require.NoError(t, err)

	s := spawner.From(p)

	release := make(chan struct{})
	started := make(chan struct{})

	_, err = spawner.Spawn(s, func() {
		close(started)
		<-release
	})
	require.NoError(t, err)
	<-started

	var executed atomic.Bool
	queued, err := spawner.SpawnRes[int](s, func() int {
		executed.Store(true)
		return 1
	})
	require.NoError(t, err)

	cancel()
	close(release)

	select {
	case <-queued.Done():
	case <-time.After(time.Second):
		t.Fatal("queued task was not canceled along with the pool context")
	}

	output, err := queued.Wait()

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, output)

	p.StopAndWait()

	assert.False(t, executed.Load())
}

func TestCancelWhileRunning(t *testing.T) {

	s := newSpawner(t)

	started := make(chan struct{})
	stopped := make(chan error, 1)

	task, err := spawner.SpawnRes[int](s, func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		stopped <- ctx.Err()
		return 1, ctx.Err()
	})
	require.NoError(t, err)

	<-started
	task.Cancel()

	output, err := task.Wait()
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, output)

	select {
	case err := <-stopped:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("task did not observe cancellation")
	}
}

func TestCancelAfterCompletion(t *testing.T) {

	s := newSpawner(t)

	task, err := spawner.SpawnRes[int](s, func() int {
		return 7
	})
	require.NoError(t, err)

	<-task.Done()
	task.Cancel()

	output, err := task.Wait()
	assert.NoError(t, err)
	assert.Equal(t, 7, output)
}

func TestSpawnerContextCanceled(t *testing.T) {

	p, err := pool.New(1)
	require.NoError(t, err)
	defer p.StopAndWait()

	ctx, cancel := context.WithCancel(context.Background())
	s := spawner.From(p, spawner.WithContext(ctx))

	task, err := spawner.Spawn(s, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)

	cancel()

	assert.ErrorIs(t, task.Wait(), context.Canceled)
	assert.ErrorIs(t, task.Context().Err(), context.Canceled)
}

func TestSpawnOnStoppedPool(t *testing.T) {

	p, err := pool.New(1)
	require.NoError(t, err)

	s := spawner.From(p)
	p.StopAndWait()

	task, err := spawner.Spawn(s, func() {})

	assert.Nil(t, task)

	var submissionErr *spawner.SubmissionError
	require.ErrorAs(t, err, &submissionErr)
	assert.ErrorIs(t, err, spawner.ErrPoolStopped)
	assert.Equal(t, "cannot submit task: pool stopped", err.Error())
}

func TestSpawnOnFullQueue(t *testing.T) {

	s := newSpawner(t, spawner.WithSize(1), spawner.WithQueueSize(1), spawner.WithNonBlocking(true))

	release := make(chan struct{})
	started := make(chan struct{})

	blocker, err := spawner.Spawn(s, func() {
		close(started)
		<-release
	})
	require.NoError(t, err)
	<-started

	queued, err := spawner.SpawnRes[int](s, func() int {
		return 1
	})
	require.NoError(t, err)

	rejected, err := spawner.SpawnRes[int](s, func() int {
		return 2
	})
	assert.Nil(t, rejected)
	assert.ErrorIs(t, err, spawner.ErrQueueFull)

	close(release)

	assert.NoError(t, blocker.Wait())
	output, err := queued.Wait()
	assert.NoError(t, err)
	assert.Equal(t, 1, output)
}

func TestSpawnTaskWithPanic(t *testing.T) {

	logger, hook := test.NewNullLogger()
	s := newSpawner(t, spawner.WithLogger(logger))

	task, err := spawner.SpawnRes[int](s, func() int {
		panic("dummy panic")
	})
	require.NoError(t, err)

	output, err := task.Wait()

	assert.ErrorIs(t, err, spawner.ErrPanic)
	assert.True(t, strings.HasPrefix(err.Error(), "task panicked: dummy panic"))
	assert.Equal(t, 0, output)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "dummy panic", entry.Data["panic"])

	// The worker survives the panic
	next, err := spawner.SpawnRes[int](s, func() int {
		return 3
	})
	require.NoError(t, err)

	output, err = next.Wait()
	assert.NoError(t, err)
	assert.Equal(t, 3, output)
}
