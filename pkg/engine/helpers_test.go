package engine

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-drift/viewmodel/pkg/driver"
	"github.com/go-drift/viewmodel/pkg/errors"
	"github.com/go-drift/viewmodel/pkg/viewmodel"
)

const waitFor = 5 * time.Second

type event struct {
	kind   driver.MutationKind
	index  int
	vm     viewmodel.ViewModel
	values []string
}

// recorder is an Observer that keeps every notification, the values each
// snapshot held at delivery time, and flags overlapping or late callbacks.
type recorder struct {
	mu     sync.Mutex
	events []event

	active    atomic.Int32
	overlap   atomic.Bool
	destroyed atomic.Int32
	late      atomic.Bool
	hold      time.Duration
}

func newRecorder() *recorder {
	return &recorder{}
}

func (r *recorder) record(kind driver.MutationKind, vm viewmodel.ViewModel, index int) {
	if r.active.Add(1) > 1 {
		r.overlap.Store(true)
	}
	defer r.active.Add(-1)
	if r.destroyed.Load() > 0 {
		r.late.Store(true)
	}
	if r.hold > 0 {
		time.Sleep(r.hold)
	}

	r.mu.Lock()
	r.events = append(r.events, event{kind: kind, index: index, vm: vm, values: vm.Values()})
	r.mu.Unlock()
}

func (r *recorder) InsertedItem(vm viewmodel.ViewModel, index int) {
	r.record(driver.Insert, vm, index)
}

func (r *recorder) RemovedItem(vm viewmodel.ViewModel, index int) {
	r.record(driver.Remove, vm, index)
}

func (r *recorder) ModifiedItem(vm viewmodel.ViewModel, index int) {
	r.record(driver.Modify, vm, index)
}

func (r *recorder) Destroy() {
	r.destroyed.Add(1)
}

func (r *recorder) snapshot() []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// quietErrors silences the global error handler for the duration of a test.
func quietErrors(t *testing.T) {
	t.Helper()
	old := errors.SetHandler(&errors.LogHandler{Logger: discardLogger()})
	t.Cleanup(func() { errors.SetHandler(old) })
}

type int32Counter struct {
	v atomic.Int32
}

func (c *int32Counter) add() int32 {
	return c.v.Add(1)
}

func (c *int32Counter) load() int32 {
	return c.v.Load()
}
