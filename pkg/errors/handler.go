package errors

import (
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
	"time"
)

// handlerSlot boxes the handler so an interface value fits atomic.Pointer.
type handlerSlot struct {
	h ErrorHandler
}

var current atomic.Pointer[handlerSlot]

func init() {
	current.Store(&handlerSlot{h: &LogHandler{}})
}

// Handler returns the process-wide error handler.
func Handler() ErrorHandler {
	return current.Load().h
}

// SetHandler installs h as the process-wide error handler and returns the
// one it replaces. Nil installs a LogHandler on slog.Default().
//
//	old := errors.SetHandler(h)
//	defer errors.SetHandler(old)
func SetHandler(h ErrorHandler) ErrorHandler {
	if h == nil {
		h = &LogHandler{}
	}
	return current.Swap(&handlerSlot{h: h}).h
}

// Report hands err to the current handler, stamping it if needed.
func Report(err *EngineError) {
	if err == nil {
		return
	}
	if err.Timestamp.IsZero() {
		err.Timestamp = time.Now()
	}
	Handler().HandleError(err)
}

// ReportPanic hands a recovered panic to the current handler.
func ReportPanic(err *PanicError) {
	if err == nil {
		return
	}
	Handler().HandlePanic(err)
}

// Violate reports a broken caller contract and panics with *ContractError.
// It never returns.
func Violate(op string, err error) {
	cerr := &ContractError{Op: op, Err: err, StackTrace: CaptureStack()}
	Handler().HandleContractError(cerr)
	panic(cerr)
}

// Recover reports a panic in progress. Use it directly with defer:
//
//	defer errors.Recover("engine.sharedState.teardown")
func Recover(op string) {
	if r := recover(); r != nil {
		ReportPanic(newPanicError(op, r))
	}
}

// RecoverWithCallback is Recover followed by fn, which can turn the panic
// into a return value of the deferring function.
func RecoverWithCallback(op string, fn func(p *PanicError)) {
	if r := recover(); r != nil {
		p := newPanicError(op, r)
		ReportPanic(p)
		if fn != nil {
			fn(p)
		}
	}
}

func newPanicError(op string, value any) *PanicError {
	return &PanicError{
		Op:         op,
		Value:      value,
		StackTrace: CaptureStack(),
		Timestamp:  time.Now(),
	}
}

// CaptureStack formats the caller's stack, innermost first. Frames inside
// this package and the runtime's panic machinery are left out, so a stack
// taken during recovery starts at the panic site.
func CaptureStack() string {
	var pcs [48]uintptr
	n := runtime.Callers(2, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var sb strings.Builder
	for {
		f, more := frames.Next()
		if !skipFrame(f.Function) {
			fmt.Fprintf(&sb, "%s\n\t%s:%d\n", f.Function, f.File, f.Line)
		}
		if !more {
			break
		}
	}
	return sb.String()
}

var helperFrames = []string{
	"/pkg/errors.CaptureStack",
	"/pkg/errors.newPanicError",
	"/pkg/errors.Recover",
	"/pkg/errors.RecoverWithCallback",
	"/pkg/errors.Violate",
}

func skipFrame(fn string) bool {
	if strings.HasPrefix(fn, "runtime.") {
		return fn != "runtime.goexit"
	}
	for _, h := range helperFrames {
		if strings.HasSuffix(fn, h) {
			return true
		}
	}
	return false
}
