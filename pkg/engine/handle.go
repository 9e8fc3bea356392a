// Package engine runs the workers that concurrently mutate a shared view
// model and notifies a single observer with a frozen snapshot after every
// successful mutation.
//
// A Handle is the sole owner of one engine instance. Any number of handles
// can coexist in a process; they share nothing but metrics.
//
// Shutdown is cooperative. Destroy closes every worker's control channel and
// tears down the observer, but does not wait for workers to exit. Callers
// that need to know the workers are gone use JoinAll.
package engine

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/go-drift/viewmodel/pkg/errors"
	"github.com/go-drift/viewmodel/pkg/viewmodel"
)

var (
	// ErrNilObserver is returned by New when no observer is supplied.
	ErrNilObserver = stderrors.New("observer is required")

	// ErrThreadCount is returned by New for a negative or oversized thread count.
	ErrThreadCount = stderrors.New("invalid thread count")

	// ErrNilDriver is returned by New when the driver factory returns nil.
	ErrNilDriver = stderrors.New("driver factory returned nil")
)

// Handle owns the shared state and the control channel of every worker.
type Handle struct {
	id       string
	state    *sharedState
	controls []chan struct{}
	workers  []*worker
	logger   *slog.Logger
	trace    *MutationTraceBuffer

	group       errgroup.Group
	joinOnce    sync.Once
	joined      chan struct{}
	joinErr     error
	destroyOnce sync.Once

	debug *debugServer
}

// New starts threadCount workers mutating a fresh, empty view model and
// returns the handle together with that initial empty snapshot.
//
// The snapshot is taken before any worker runs and is not kept in sync with
// later activity; from then on the observer is the only source of updates.
// Every error is reported synchronously and no worker is started.
func New(threadCount int, observer Observer, opts ...Option) (*Handle, viewmodel.ViewModel, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	if observer == nil {
		return nil, viewmodel.ViewModel{}, errors.New("engine.New", errors.KindContract, ErrNilObserver)
	}
	if threadCount < 0 || threadCount > o.maxWorkers {
		return nil, viewmodel.ViewModel{}, errors.New("engine.New", errors.KindSpawn,
			fmt.Errorf("%w: %d (max %d)", ErrThreadCount, threadCount, o.maxWorkers))
	}

	id := uuid.NewString()
	logger := o.logger.With(slog.String("handle", id))
	h := &Handle{
		id:       id,
		state:    newSharedState(observer, o.prefix),
		controls: make([]chan struct{}, threadCount),
		workers:  make([]*worker, threadCount),
		logger:   logger,
		trace:    NewMutationTraceBuffer(o.traceSamples, o.slowCallback),
		joined:   make(chan struct{}),
	}

	// Build every driver before starting anything so a bad factory fails
	// New without leaving workers behind.
	for i := range threadCount {
		d := o.driver(i)
		if d == nil {
			return nil, viewmodel.ViewModel{}, errors.New("engine.New", errors.KindSpawn,
				fmt.Errorf("%w: worker %d", ErrNilDriver, i))
		}
		h.controls[i] = make(chan struct{})
		h.workers[i] = &worker{
			id:       i,
			handleID: id,
			state:    h.state,
			driver:   d,
			shutdown: h.controls[i],
			logger:   logger,
			trace:    h.trace,
		}
	}

	if o.debugAddr != "" {
		srv, err := startDebugServer(h, o.debugAddr)
		if err != nil {
			return nil, viewmodel.ViewModel{}, errors.New("engine.New", errors.KindSpawn, err)
		}
		h.debug = srv
	}

	initial := h.state.snapshot()
	for _, w := range h.workers {
		h.group.Go(w.run)
	}
	handlesLive.Inc()
	logger.Info("view model handle created", slog.Int("workers", threadCount))
	return h, initial, nil
}

// ID returns the unique identifier used in logs and traces.
func (h *Handle) ID() string {
	return h.id
}

// Workers returns the current status of every worker, ordered by id.
func (h *Handle) Workers() []WorkerStatus {
	out := make([]WorkerStatus, len(h.workers))
	for i, w := range h.workers {
		out[i] = w.snapshotStatus()
	}
	return out
}

// DebugAddr returns the address of the inspection server, or "" when none
// is running.
func (h *Handle) DebugAddr() string {
	if h.debug == nil {
		return ""
	}
	return h.debug.addr()
}

// Mutations returns the most recent worker turns, oldest first.
func (h *Handle) Mutations() MutationTimeline {
	return h.trace.Snapshot()
}

// Snapshot returns a frozen copy of the current view model.
func (h *Handle) Snapshot() viewmodel.ViewModel {
	return h.state.snapshot()
}

// Destroy signals every worker to stop and runs the observer's Destroy hook
// exactly once, after any in-flight callback has returned. It does not wait
// for workers to exit. Calling Destroy again is a no-op.
//
// Destroy must not be called from inside an observer callback of the same
// handle; the callback holds the lock Destroy needs.
func (h *Handle) Destroy() {
	h.destroyOnce.Do(func() {
		for _, ch := range h.controls {
			close(ch)
		}
		if h.state.teardown() {
			handlesLive.Dec()
		}
		if h.debug != nil {
			h.debug.stop()
		}
		h.logger.Info("view model handle destroyed")
	})
}

// JoinAll blocks until every worker has exited or ctx is done. It returns
// the first observer failure that stopped a worker, or ctx.Err().
//
// Workers only exit after Destroy, or after their observer fails, so
// JoinAll on a live handle waits for ctx.
func (h *Handle) JoinAll(ctx context.Context) error {
	h.joinOnce.Do(func() {
		go func() {
			h.joinErr = h.group.Wait()
			close(h.joined)
		}()
	})
	select {
	case <-h.joined:
		return h.joinErr
	case <-ctx.Done():
		return ctx.Err()
	}
}
