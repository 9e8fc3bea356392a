// Package viewmodel defines the ordered string collection shared by the
// engine's workers and the frozen snapshots handed to observers.
//
// A ViewModel has no mutating methods. The engine mutates a Live value while
// holding its lock and hands out Snapshot copies, so a ViewModel received by
// an observer never changes after delivery.
package viewmodel

import (
	stderrors "errors"
	"fmt"
	"slices"

	"github.com/go-drift/viewmodel/pkg/errors"
)

// ErrOutOfRange is returned when an index is not in [0, Len()).
var ErrOutOfRange = stderrors.New("index out of range")

// ViewModel is an immutable, ordered sequence of strings.
// The zero value is an empty view model.
type ViewModel struct {
	values []string
}

// New returns a view model holding a copy of values.
func New(values ...string) ViewModel {
	return ViewModel{values: slices.Clone(values)}
}

// Len returns the number of values.
func (vm ViewModel) Len() int {
	return len(vm.values)
}

// ValueAt returns the value at index.
func (vm ViewModel) ValueAt(index int) (string, error) {
	if index < 0 || index >= len(vm.values) {
		return "", fmt.Errorf("viewmodel: value at %d (len %d): %w", index, len(vm.values), ErrOutOfRange)
	}
	return vm.values[index], nil
}

// MustValueAt is like ValueAt but treats a bad index as a contract violation.
func (vm ViewModel) MustValueAt(index int) string {
	v, err := vm.ValueAt(index)
	if err != nil {
		errors.Violate("viewmodel.MustValueAt", err)
	}
	return v
}

// Clone returns an independent copy. Go strings are immutable, so copying the
// backing slice is a deep copy.
func (vm ViewModel) Clone() ViewModel {
	return ViewModel{values: slices.Clone(vm.values)}
}

// Values returns a copy of the values in order.
func (vm ViewModel) Values() []string {
	return slices.Clone(vm.values)
}

// Equal reports whether both view models hold the same values in the same order.
func (vm ViewModel) Equal(other ViewModel) bool {
	return slices.Equal(vm.values, other.values)
}

func (vm ViewModel) String() string {
	return fmt.Sprintf("ViewModel%q", vm.values)
}
