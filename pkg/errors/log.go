package errors

import (
	"log/slog"
)

// LogHandler is an ErrorHandler that writes reports through slog.
type LogHandler struct {
	// Logger receives the records. Nil means slog.Default().
	Logger *slog.Logger
	// Verbose adds stack traces to every record.
	Verbose bool
}

func (h *LogHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// HandleError logs an EngineError.
func (h *LogHandler) HandleError(err *EngineError) {
	if err == nil {
		return
	}
	attrs := []any{
		slog.String("op", err.Op),
		slog.String("kind", err.Kind.String()),
		slog.Any("error", err.Err),
	}
	if err.Worker >= 0 {
		attrs = append(attrs, slog.Int("worker", err.Worker))
	}
	if h.Verbose && err.StackTrace != "" {
		attrs = append(attrs, slog.String("stack", err.StackTrace))
	}
	h.logger().Error("viewmodel error", attrs...)
}

// HandlePanic logs a PanicError.
func (h *LogHandler) HandlePanic(err *PanicError) {
	if err == nil {
		return
	}
	attrs := []any{
		slog.String("op", err.Op),
		slog.Any("value", err.Value),
	}
	if h.Verbose && err.StackTrace != "" {
		attrs = append(attrs, slog.String("stack", err.StackTrace))
	}
	h.logger().Error("viewmodel panic", attrs...)
}

// HandleContractError logs a ContractError. The stack is always included
// since a violation is a bug that needs locating.
func (h *LogHandler) HandleContractError(err *ContractError) {
	if err == nil {
		return
	}
	h.logger().Error("viewmodel contract violation",
		slog.String("op", err.Op),
		slog.Any("error", err.Err),
		slog.String("stack", err.StackTrace),
	)
}
