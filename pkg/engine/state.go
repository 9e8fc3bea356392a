package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-drift/viewmodel/pkg/driver"
	"github.com/go-drift/viewmodel/pkg/errors"
	"github.com/go-drift/viewmodel/pkg/viewmodel"
)

// sharedState is the one live view model of a Handle and its observer.
//
// Every read and write of live goes through mu. The lock is held across the
// observer callback, which serializes callbacks and keeps notification order
// identical to mutation order.
type sharedState struct {
	mu       sync.Mutex
	live     viewmodel.Live
	observer Observer
	closed   bool
	prefix   string
}

func newSharedState(observer Observer, prefix string) *sharedState {
	return &sharedState{observer: observer, prefix: prefix}
}

// snapshot returns a frozen copy of the live view model.
func (s *sharedState) snapshot() viewmodel.ViewModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live.Snapshot()
}

// turnResult describes what one locked mutation turn did.
type turnResult struct {
	result   string
	index    int
	callback time.Duration
	err      error
}

// apply runs one mutation and its notification for w under the lock.
// Remove and Modify on an empty view model are silent no-ops, and nothing is
// mutated once the observer has been torn down.
func (s *sharedState) apply(w *worker, kind driver.MutationKind) turnResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return turnResult{result: resultDiscarded, index: -1}
	}

	var index int
	switch kind {
	case driver.Insert:
		index = s.live.Push(fmt.Sprintf("%s-%d", s.prefix, w.id))
	case driver.Remove, driver.Modify:
		n := s.live.Len()
		if n == 0 {
			return turnResult{result: resultSkipped, index: -1}
		}
		index = w.driver.PickIndex(n)
		if index < 0 || index >= n {
			errors.Violate("engine.sharedState.apply",
				fmt.Errorf("driver picked index %d for %s on length %d: %w", index, kind, n, viewmodel.ErrOutOfRange))
		}
		if kind == driver.Remove {
			s.live.RemoveAt(index)
		} else {
			s.live.AppendAt(index, fmt.Sprintf("-%d", w.id))
		}
	default:
		errors.Violate("engine.sharedState.apply", fmt.Errorf("unknown mutation kind %d", kind))
	}

	start := time.Now()
	err := w.notify(s.observer, kind, s.live.Snapshot(), index)
	elapsed := time.Since(start)
	callbackDuration.WithLabelValues(kind.String()).Observe(elapsed.Seconds())

	return turnResult{result: resultApplied, index: index, callback: elapsed, err: err}
}

// teardown stops all further mutation and runs the observer's Destroy hook.
// It reports whether this call performed the teardown.
//
// Acquiring the lock waits out any in-flight callback. Once closed is set no
// callback can start, so Destroy runs outside the lock.
func (s *sharedState) teardown() (done bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.closed = true
	obs := s.observer
	s.observer = nil
	s.mu.Unlock()

	done = true
	defer errors.Recover("engine.sharedState.teardown")
	obs.Destroy()
	return done
}
