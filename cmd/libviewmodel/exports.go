// Command libviewmodel builds the engine as a C library:
//
//	go build -buildmode=c-shared -o libviewmodel.so ./cmd/libviewmodel
//
// Types are declared in viewmodel.h. Misuse (destroying a value twice,
// reading a destroyed view_model, an out-of-range index) aborts the process.
// Settings are read from viewmodel.yaml in $VIEWMODEL_CONFIG_DIR, or the
// working directory when it is unset.
package main

/*
#include "viewmodel.h"
*/
import "C"

import (
	"context"
	stderrors "errors"
	"log/slog"
	"math"
	"os"
	"runtime/cgo"
	"sync"
	"time"

	"github.com/go-drift/viewmodel/pkg/boundary"
	"github.com/go-drift/viewmodel/pkg/config"
	"github.com/go-drift/viewmodel/pkg/errors"
)

// errNoOutViewModel is reported when out_view_model is NULL.
var errNoOutViewModel = stderrors.New("out_view_model is NULL")

type settings struct {
	resolved *config.Resolved
	logger   *slog.Logger
}

var loadSettings = sync.OnceValues(func() (*settings, error) {
	dir := os.Getenv("VIEWMODEL_CONFIG_DIR")
	if dir == "" {
		dir = "."
	}
	r, err := config.Resolve(dir)
	if err != nil {
		return nil, err
	}
	logger := r.Logger(os.Stderr)
	errors.SetHandler(&errors.LogHandler{Logger: logger})
	return &settings{resolved: r, logger: logger}, nil
})

// reportFailure hands a creation failure to the error handler. Errors from
// config and boundary already carry their op and kind.
func reportFailure(op string, err error) {
	var eerr *errors.EngineError
	if !stderrors.As(err, &eerr) {
		eerr = errors.New(op, errors.KindBoundary, err)
	}
	errors.Report(eerr)
}

// newHandle creates a handle. threads < 0 takes engine.workers from the
// configuration.
func newHandle(op string, threads int, observer C.view_model_observer, out *C.view_model) C.view_model_handle {
	s, err := loadSettings()
	if err != nil {
		reportFailure(op, err)
		return 0
	}
	if out == nil {
		reportFailure(op, errNoOutViewModel)
		return 0
	}
	if threads < 0 {
		threads = s.resolved.Workers
	}

	h, initial, err := boundary.Create(threads, observerRecord(observer), s.resolved.Options(s.logger)...)
	if err != nil {
		reportFailure(op, err)
		return 0
	}
	*out = newCSnapshot(initial)
	return C.view_model_handle(cgo.NewHandle(h))
}

// view_model_handle_new starts num_threads workers. It returns 0 and leaves
// out_view_model untouched on failure.
//
//export view_model_handle_new
func view_model_handle_new(numThreads C.size_t, observer C.view_model_observer, outViewModel *C.view_model) C.view_model_handle {
	// Clamped so a huge size_t is rejected as oversized, not wrapped negative.
	threads := int(min(uint64(numThreads), math.MaxInt))
	return newHandle("libviewmodel.view_model_handle_new", threads, observer, outViewModel)
}

// view_model_handle_new_configured is view_model_handle_new with the worker
// count taken from engine.workers in viewmodel.yaml.
//
//export view_model_handle_new_configured
func view_model_handle_new_configured(observer C.view_model_observer, outViewModel *C.view_model) C.view_model_handle {
	return newHandle("libviewmodel.view_model_handle_new_configured", -1, observer, outViewModel)
}

// view_model_handle_destroy stops the workers without waiting for them and
// releases handle.
//
//export view_model_handle_destroy
func view_model_handle_destroy(handle C.view_model_handle) {
	ch := cgo.Handle(handle)
	h := ch.Value().(*boundary.Handle)
	ch.Delete()
	h.Destroy()
}

// view_model_handle_join is view_model_handle_destroy followed by a wait of
// up to timeoutMS milliseconds (negative waits forever) for the workers to
// exit. handle is released either way.
//
//export view_model_handle_join
func view_model_handle_join(handle C.view_model_handle, timeoutMS C.int64_t) C.int {
	ch := cgo.Handle(handle)
	h := ch.Value().(*boundary.Handle)
	ch.Delete()
	h.Destroy()

	ctx := context.Background()
	if timeoutMS >= 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutMS)*time.Millisecond)
		defer cancel()
	}
	return joinStatus(h.Join(ctx))
}

// joinStatus maps the result of Join to the VIEW_MODEL_JOIN_* codes.
func joinStatus(err error) C.int {
	switch {
	case err == nil:
		return C.VIEW_MODEL_JOIN_OK
	case stderrors.Is(err, context.DeadlineExceeded):
		return C.VIEW_MODEL_JOIN_TIMEOUT
	default:
		return C.VIEW_MODEL_JOIN_FAILED
	}
}

//export view_model_destroy
func view_model_destroy(vm C.view_model) {
	ch := cgo.Handle(vm)
	s := ch.Value().(*cSnapshot)
	s.destroy()
	ch.Delete()
}

//export view_model_len
func view_model_len(vm C.view_model) C.size_t {
	return C.size_t(lookupSnapshot(vm).snap.Len())
}

//export view_model_value_at_index
func view_model_value_at_index(vm C.view_model, index C.size_t) C.view_model_byte_slice {
	return lookupSnapshot(vm).valueAt(int(index))
}

func main() {}
