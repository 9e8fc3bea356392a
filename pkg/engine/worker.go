package engine

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-drift/viewmodel/pkg/driver"
	"github.com/go-drift/viewmodel/pkg/errors"
	"github.com/go-drift/viewmodel/pkg/viewmodel"
)

// errUnexpectedSignal means a control channel delivered a value. Control
// channels are only ever closed, so this is a coordination bug.
var errUnexpectedSignal = stderrors.New("control channel delivered a value; it must only be closed")

// WorkerState is the lifecycle state of a worker.
type WorkerState int32

const (
	// WorkerPending means the worker has not started running yet.
	WorkerPending WorkerState = iota
	// WorkerRunning means the worker is sleeping or mutating.
	WorkerRunning
	// WorkerStopped means the worker has exited.
	WorkerStopped
)

func (s WorkerState) String() string {
	switch s {
	case WorkerRunning:
		return "running"
	case WorkerStopped:
		return "stopped"
	default:
		return "pending"
	}
}

// WorkerStatus is a point-in-time view of one worker.
type WorkerStatus struct {
	ID      int
	State   WorkerState
	Applied uint64
	Skipped uint64
}

type worker struct {
	id       int
	handleID string
	state    *sharedState
	driver   driver.Driver
	shutdown <-chan struct{}
	logger   *slog.Logger
	trace    *MutationTraceBuffer

	status  atomic.Int32
	applied atomic.Uint64
	skipped atomic.Uint64
}

func (w *worker) snapshotStatus() WorkerStatus {
	return WorkerStatus{
		ID:      w.id,
		State:   WorkerState(w.status.Load()),
		Applied: w.applied.Load(),
		Skipped: w.skipped.Load(),
	}
}

// run is the worker main loop. It inserts once immediately, then alternates
// between sleeping and mutating until its control channel is closed.
// A non-nil return means an observer callback failed and the worker stopped.
func (w *worker) run() error {
	w.status.Store(int32(WorkerRunning))
	workersRunning.Inc()
	defer func() {
		w.status.Store(int32(WorkerStopped))
		workersRunning.Dec()
	}()

	if err := w.turn(driver.Insert); err != nil {
		return err
	}
	for {
		if !w.sleep(w.driver.NextDelay()) || w.shouldShutdown() {
			w.logger.Info("worker exiting", slog.Int("worker", w.id))
			return nil
		}
		if err := w.turn(w.driver.NextMutationKind()); err != nil {
			return err
		}
	}
}

// sleep waits for d. It returns false if the control channel closed first.
func (w *worker) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case _, ok := <-w.shutdown:
		if ok {
			errors.Violate("engine.worker.sleep", errUnexpectedSignal)
		}
		return false
	}
}

// shouldShutdown polls the control channel without blocking.
func (w *worker) shouldShutdown() bool {
	select {
	case _, ok := <-w.shutdown:
		if ok {
			errors.Violate("engine.worker.shouldShutdown", errUnexpectedSignal)
		}
		return true
	default:
		return false
	}
}

// turn applies one mutation under the shared lock and records the outcome.
func (w *worker) turn(kind driver.MutationKind) error {
	_, span := tracer.Start(context.Background(), "engine.worker.mutate",
		trace.WithAttributes(
			attribute.String("handle.id", w.handleID),
			attribute.Int("worker.id", w.id),
			attribute.String("mutation.kind", kind.String()),
		))
	defer span.End()

	res := w.state.apply(w, kind)
	mutationsTotal.WithLabelValues(kind.String(), res.result).Inc()
	span.SetAttributes(
		attribute.String("mutation.result", res.result),
		attribute.Int("mutation.index", res.index),
	)

	if w.trace != nil {
		w.trace.Add(MutationSample{
			Timestamp: time.Now().UnixMilli(),
			Worker:    w.id,
			Kind:      kind.String(),
			Result:    res.result,
			Index:     res.index,
		}, res.callback)
	}

	switch res.result {
	case resultApplied:
		w.applied.Add(1)
	case resultSkipped:
		w.skipped.Add(1)
		w.logger.Debug("mutation skipped on empty view model",
			slog.Int("worker", w.id), slog.String("kind", kind.String()))
	}

	if res.err != nil {
		span.RecordError(res.err)
		span.SetStatus(codes.Error, res.err.Error())
		w.logger.Error("worker stopped by observer failure",
			slog.Int("worker", w.id), slog.Any("error", res.err))
		return res.err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// notify invokes the callback matching kind. A panicking observer is
// recovered and turned into an EngineError that stops this worker.
func (w *worker) notify(obs Observer, kind driver.MutationKind, vm viewmodel.ViewModel, index int) (err error) {
	defer errors.RecoverWithCallback("engine.worker.notify", func(p *errors.PanicError) {
		err = &errors.EngineError{
			Op:         "engine.worker.notify",
			Kind:       errors.KindObserver,
			Worker:     w.id,
			Err:        p,
			StackTrace: p.StackTrace,
			Timestamp:  p.Timestamp,
		}
	})

	switch kind {
	case driver.Insert:
		obs.InsertedItem(vm, index)
	case driver.Remove:
		obs.RemovedItem(vm, index)
	case driver.Modify:
		obs.ModifiedItem(vm, index)
	}
	return nil
}
