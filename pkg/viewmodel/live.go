package viewmodel

import (
	"fmt"
	"slices"

	"github.com/go-drift/viewmodel/pkg/errors"
)

// Live is the mutable view model owned by the engine's shared state.
//
// Live is not safe for concurrent use; callers serialize access with their
// own lock. Index errors on RemoveAt and AppendAt are contract violations
// because the engine only mutates indices it has just bounds-checked.
type Live struct {
	values []string
}

// Len returns the number of values.
func (l *Live) Len() int {
	return len(l.values)
}

// Push appends value and returns its index.
func (l *Live) Push(value string) int {
	l.values = append(l.values, value)
	return len(l.values) - 1
}

// RemoveAt deletes the value at index, shifting later values down.
func (l *Live) RemoveAt(index int) {
	l.checkIndex("viewmodel.Live.RemoveAt", index)
	l.values = slices.Delete(l.values, index, index+1)
}

// AppendAt appends suffix to the value at index.
func (l *Live) AppendAt(index int, suffix string) {
	l.checkIndex("viewmodel.Live.AppendAt", index)
	l.values[index] += suffix
}

// Snapshot returns a frozen copy of the current values.
func (l *Live) Snapshot() ViewModel {
	return ViewModel{values: slices.Clone(l.values)}
}

func (l *Live) checkIndex(op string, index int) {
	if index < 0 || index >= len(l.values) {
		errors.Violate(op, fmt.Errorf("index %d (len %d): %w", index, len(l.values), ErrOutOfRange))
	}
}
