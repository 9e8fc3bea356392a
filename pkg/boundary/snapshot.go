package boundary

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/go-drift/viewmodel/pkg/errors"
	"github.com/go-drift/viewmodel/pkg/viewmodel"
)

var snapshotsLive = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "viewmodel_boundary_snapshots_live",
	Help: "Snapshots handed across the boundary and not yet destroyed",
})

// Snapshot is an opaque, immutable view model owned by the caller that
// received it.
type Snapshot struct {
	vm        viewmodel.ViewModel
	live      *atomic.Int64
	destroyed atomic.Bool
}

func newSnapshot(vm viewmodel.ViewModel, live *atomic.Int64) *Snapshot {
	live.Add(1)
	snapshotsLive.Inc()
	return &Snapshot{vm: vm, live: live}
}

// Len returns the number of values.
func (s *Snapshot) Len() int {
	s.checkLive("boundary.Snapshot.Len")
	return s.vm.Len()
}

// ValueAt returns a read-only view of the UTF-8 bytes at index, valid until
// the snapshot is destroyed. An out-of-range index is a contract violation.
func (s *Snapshot) ValueAt(index int) []byte {
	s.checkLive("boundary.Snapshot.ValueAt")
	v, err := s.vm.ValueAt(index)
	if err != nil {
		errors.Violate("boundary.Snapshot.ValueAt", err)
	}
	return unsafe.Slice(unsafe.StringData(v), len(v))
}

// ViewModel returns the underlying frozen view model.
func (s *Snapshot) ViewModel() viewmodel.ViewModel {
	s.checkLive("boundary.Snapshot.ViewModel")
	return s.vm
}

// Destroy releases the snapshot. Other snapshots are unaffected.
func (s *Snapshot) Destroy() {
	if !s.destroyed.CompareAndSwap(false, true) {
		errors.Violate("boundary.Snapshot.Destroy", ErrDestroyed)
	}
	s.live.Add(-1)
	snapshotsLive.Dec()
}

func (s *Snapshot) checkLive(op string) {
	if s.destroyed.Load() {
		errors.Violate(op, fmt.Errorf("read of destroyed snapshot: %w", ErrDestroyed))
	}
}
