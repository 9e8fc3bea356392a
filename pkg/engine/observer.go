package engine

import "github.com/go-drift/viewmodel/pkg/viewmodel"

// Observer receives a frozen snapshot after every successful mutation.
//
// Callbacks run on whichever worker goroutine applied the mutation, while
// that worker still holds the shared-state lock, so no two callbacks of one
// Handle ever run concurrently and notifications arrive in mutation order.
// Callbacks must not call Destroy on the Handle that invoked them.
type Observer interface {
	// InsertedItem reports a value appended at index.
	InsertedItem(vm viewmodel.ViewModel, index int)
	// RemovedItem reports the value formerly at index was deleted.
	RemovedItem(vm viewmodel.ViewModel, index int)
	// ModifiedItem reports the value at index changed.
	ModifiedItem(vm viewmodel.ViewModel, index int)
	// Destroy runs exactly once when the Handle is destroyed, after every
	// in-flight callback has returned. No callback follows it.
	Destroy()
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnInsert  func(vm viewmodel.ViewModel, index int)
	OnRemove  func(vm viewmodel.ViewModel, index int)
	OnModify  func(vm viewmodel.ViewModel, index int)
	OnDestroy func()
}

// InsertedItem implements Observer.
func (f ObserverFuncs) InsertedItem(vm viewmodel.ViewModel, index int) {
	if f.OnInsert != nil {
		f.OnInsert(vm, index)
	}
}

// RemovedItem implements Observer.
func (f ObserverFuncs) RemovedItem(vm viewmodel.ViewModel, index int) {
	if f.OnRemove != nil {
		f.OnRemove(vm, index)
	}
}

// ModifiedItem implements Observer.
func (f ObserverFuncs) ModifiedItem(vm viewmodel.ViewModel, index int) {
	if f.OnModify != nil {
		f.OnModify(vm, index)
	}
}

// Destroy implements Observer.
func (f ObserverFuncs) Destroy() {
	if f.OnDestroy != nil {
		f.OnDestroy()
	}
}
