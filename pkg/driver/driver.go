// Package driver provides the workload policies that decide when a worker
// mutates the shared view model and which mutation it applies.
//
// The engine calls a Driver from a single worker goroutine, in this order
// for every turn after the initial insert:
//
//	NextDelay -> (shutdown check) -> NextMutationKind -> PickIndex
//
// PickIndex is only called for Remove and Modify, and only when the view
// model is non-empty; length is always at least 1.
package driver

import "time"

// MutationKind identifies one of the three mutations a worker can apply.
type MutationKind int

const (
	// Insert appends a new value tagged with the worker id.
	Insert MutationKind = iota
	// Remove deletes the value at a driver-chosen index.
	Remove
	// Modify appends the worker id to the value at a driver-chosen index.
	Modify
)

func (k MutationKind) String() string {
	switch k {
	case Insert:
		return "insert"
	case Remove:
		return "remove"
	case Modify:
		return "modify"
	default:
		return "unknown"
	}
}

// Driver decides the pacing and shape of a worker's mutations.
type Driver interface {
	// NextDelay returns how long the worker sleeps before its next turn.
	NextDelay() time.Duration
	// NextMutationKind returns the mutation for the current turn.
	NextMutationKind() MutationKind
	// PickIndex returns the index in [0, length) targeted by a remove or modify.
	PickIndex(length int) int
}

// Factory builds the driver for one worker. It is called once per worker,
// before the worker starts, with ids 0..n-1.
type Factory func(workerID int) Driver

// Fixed returns a Factory that hands the same driver to every worker.
func Fixed(d Driver) Factory {
	return func(int) Driver { return d }
}
