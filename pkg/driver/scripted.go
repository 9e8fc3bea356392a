package driver

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/go-drift/viewmodel/pkg/errors"
)

// Idle is the delay an exhausted Scripted driver returns. No timer of this
// length fires, so only shutdown ends the worker's sleep.
const Idle = time.Duration(math.MaxInt64)

// Step is one scripted turn.
type Step struct {
	Kind MutationKind
	// Index is returned by PickIndex for Remove and Modify steps.
	Index int
	// Delay is the sleep before this step runs.
	Delay time.Duration
}

// Scripted replays a fixed list of steps, then idles until the worker is
// shut down. It is safe for concurrent use, though sharing one Scripted
// between workers interleaves their steps.
type Scripted struct {
	mu        sync.Mutex
	steps     []Step
	next      int
	current   Step
	exhausted chan struct{}
}

// NewScripted returns a driver that replays steps in order.
func NewScripted(steps ...Step) *Scripted {
	s := &Scripted{
		steps:     steps,
		exhausted: make(chan struct{}),
	}
	if len(steps) == 0 {
		close(s.exhausted)
	}
	return s
}

// Exhausted is closed once the last step has been handed to a worker.
func (s *Scripted) Exhausted() <-chan struct{} {
	return s.exhausted
}

// NextDelay implements Driver.
func (s *Scripted) NextDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next < len(s.steps) {
		return s.steps[s.next].Delay
	}
	return Idle
}

// NextMutationKind implements Driver. Asking for a step after the script is
// exhausted is a contract violation.
func (s *Scripted) NextMutationKind() MutationKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.steps) {
		errors.Violate("driver.Scripted.NextMutationKind", fmt.Errorf("script of %d steps exhausted", len(s.steps)))
	}
	s.current = s.steps[s.next]
	s.next++
	if s.next == len(s.steps) {
		close(s.exhausted)
	}
	return s.current.Kind
}

// PickIndex implements Driver and returns the current step's index.
func (s *Scripted) PickIndex(int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Index
}
