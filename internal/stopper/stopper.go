package stopper

import (
	"sync"
)

func New() *Stopper {
	return &Stopper{
		stopping: make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Stopper tracks in-flight jobs of a pool that is being drained.
// Unlike sync.WaitGroup, Add may race with Wait: once Stop has been called
// Add refuses new jobs instead of resurrecting the counter.
type Stopper struct {
	mu  sync.Mutex
	cnt int64

	stoppingOnce sync.Once
	stoppedOnce  sync.Once

	stopping chan struct{}
	stopped  chan struct{}
}

// Add registers delta new jobs. It returns false, registering nothing,
// if the stopper is already stopping.
func (s *Stopper) Add(delta int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.stopping:
		return false
	default:
	}

	s.cnt += delta
	return true
}

// Done marks one job as finished
func (s *Stopper) Done() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cnt <= 0 {
		return
	}

	s.cnt--

	s.checkIfStoppedLocked()
}

// Pending returns the number of registered jobs that have not finished yet
func (s *Stopper) Pending() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cnt
}

func (s *Stopper) checkIfStoppedLocked() {
	if s.cnt > 0 {
		return
	}

	select {
	case <-s.stopping:
		s.stoppedOnce.Do(func() { close(s.stopped) })
	default:
	}
}

// Stop refuses further jobs. Stopped becomes true once every registered job is done.
func (s *Stopper) Stop() {
	s.stoppingOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		close(s.stopping)

		s.checkIfStoppedLocked()
	})
}

// Stopping indicates that jobs are stopping or stopped
func (s *Stopper) Stopping() bool {
	select {
	case <-s.stopping:
		return true
	default:
		return false
	}
}

// Stopped indicates that all jobs are stopped
func (s *Stopper) Stopped() bool {
	select {
	case <-s.stopped:
		return true
	default:
		return false
	}
}

// Wait for all jobs to stop
func (s *Stopper) Wait() {
	<-s.stopped
}
