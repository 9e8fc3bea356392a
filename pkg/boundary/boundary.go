// Package boundary exposes the engine through opaque, explicitly owned
// values, in the shape a host written in another language expects.
//
// Ownership rules:
//   - Create returns a Handle and a Snapshot. Each must be destroyed exactly
//     once, independently of the other.
//   - Every Snapshot passed to an observer callback belongs to the callback,
//     which must destroy it exactly once, whenever it is done with it.
//   - Bytes returned by Snapshot.ValueAt are valid until that snapshot is
//     destroyed and must not be modified.
//   - Destroying a value twice, or reading a destroyed snapshot, is a
//     contract violation and panics with *errors.ContractError.
//
// The cgo export in cmd/libviewmodel is a thin layer over this package.
package boundary

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/go-drift/viewmodel/pkg/engine"
	"github.com/go-drift/viewmodel/pkg/errors"
	"github.com/go-drift/viewmodel/pkg/viewmodel"
)

var (
	// ErrIncompleteObserver is returned by Create when a callback is missing.
	ErrIncompleteObserver = stderrors.New("observer record is missing a callback")

	// ErrDestroyed is the cause of a violation on an already destroyed value.
	ErrDestroyed = stderrors.New("value already destroyed")
)

// ItemFunc is the shape of the insert, remove and modify callbacks.
type ItemFunc func(user unsafe.Pointer, s *Snapshot, index int)

// ObserverRecord is the fixed-shape observer registration: three mutation
// callbacks, a teardown callback, and an opaque user context that the core
// never dereferences. Every function must stay valid for the Handle's life.
type ObserverRecord struct {
	User         unsafe.Pointer
	DestroyUser  func(user unsafe.Pointer)
	InsertedItem ItemFunc
	RemovedItem  ItemFunc
	ModifiedItem ItemFunc
}

func (r ObserverRecord) validate() error {
	var missing []string
	if r.DestroyUser == nil {
		missing = append(missing, "destroy_user")
	}
	if r.InsertedItem == nil {
		missing = append(missing, "inserted_item")
	}
	if r.RemovedItem == nil {
		missing = append(missing, "removed_item")
	}
	if r.ModifiedItem == nil {
		missing = append(missing, "modified_item")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrIncompleteObserver, missing)
	}
	return nil
}

// recordObserver adapts an ObserverRecord to engine.Observer, wrapping every
// delivered view model in a Snapshot owned by the callback.
type recordObserver struct {
	rec  ObserverRecord
	live *atomic.Int64
}

func (o *recordObserver) InsertedItem(vm viewmodel.ViewModel, index int) {
	o.rec.InsertedItem(o.rec.User, newSnapshot(vm, o.live), index)
}

func (o *recordObserver) RemovedItem(vm viewmodel.ViewModel, index int) {
	o.rec.RemovedItem(o.rec.User, newSnapshot(vm, o.live), index)
}

func (o *recordObserver) ModifiedItem(vm viewmodel.ViewModel, index int) {
	o.rec.ModifiedItem(o.rec.User, newSnapshot(vm, o.live), index)
}

func (o *recordObserver) Destroy() {
	o.rec.DestroyUser(o.rec.User)
}

// Handle is the opaque root of one engine instance.
type Handle struct {
	engine    *engine.Handle
	live      *atomic.Int64
	destroyed atomic.Bool
}

// Create registers rec and starts threadCount workers. It returns the handle
// and the initial (empty) snapshot as two independently owned values.
// Failures are returned synchronously and leave nothing to destroy.
func Create(threadCount int, rec ObserverRecord, opts ...engine.Option) (*Handle, *Snapshot, error) {
	if err := rec.validate(); err != nil {
		return nil, nil, errors.New("boundary.Create", errors.KindBoundary, err)
	}
	live := new(atomic.Int64)
	eh, initial, err := engine.New(threadCount, &recordObserver{rec: rec, live: live}, opts...)
	if err != nil {
		return nil, nil, err
	}
	return &Handle{engine: eh, live: live}, newSnapshot(initial, live), nil
}

// ID returns the engine handle id.
func (h *Handle) ID() string {
	return h.engine.ID()
}

// Destroy signals the workers to stop and runs DestroyUser exactly once.
// It does not wait for the workers.
func (h *Handle) Destroy() {
	if !h.destroyed.CompareAndSwap(false, true) {
		errors.Violate("boundary.Handle.Destroy", ErrDestroyed)
	}
	h.engine.Destroy()
}

// Join waits until every worker has exited or ctx is done. It may be called
// after Destroy.
func (h *Handle) Join(ctx context.Context) error {
	return h.engine.JoinAll(ctx)
}

// LiveSnapshots returns how many snapshots produced by this handle have not
// been destroyed yet.
func (h *Handle) LiveSnapshots() int64 {
	return h.live.Load()
}
