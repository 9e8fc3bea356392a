// Package errors provides structured error handling for the view model engine.
//
// Runtime conditions are returned as *EngineError values. Contract
// violations (bad indices, use of destroyed handles, unexpected control
// signals) are reported and then raised as a panic carrying *ContractError,
// because they indicate a bug rather than something a caller can recover from.
package errors

import (
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindContract indicates a violated calling contract.
	KindContract
	// KindConfig indicates invalid or unreadable configuration.
	KindConfig
	// KindSpawn indicates the engine could not start its workers.
	KindSpawn
	// KindObserver indicates a failure inside an observer callback.
	KindObserver
	// KindPanic indicates a recovered panic.
	KindPanic
	// KindBoundary indicates misuse of the opaque-handle boundary.
	KindBoundary
)

func (k ErrorKind) String() string {
	switch k {
	case KindContract:
		return "contract"
	case KindConfig:
		return "config"
	case KindSpawn:
		return "spawn"
	case KindObserver:
		return "observer"
	case KindPanic:
		return "panic"
	case KindBoundary:
		return "boundary"
	default:
		return "unknown"
	}
}

// EngineError represents a structured error raised by the engine.
type EngineError struct {
	// Op is the operation that failed (e.g., "engine.New").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Err is the underlying error.
	Err error
	// Worker is the worker id, or -1 when the error is not tied to a worker.
	Worker int
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *EngineError) Error() string {
	if e.Worker >= 0 {
		return fmt.Sprintf("%s [%s] worker=%d: %v", e.Op, e.Kind, e.Worker, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// New returns an EngineError that is not tied to a worker.
func New(op string, kind ErrorKind, err error) *EngineError {
	return &EngineError{Op: op, Kind: kind, Err: err, Worker: -1}
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "engine.worker.notify").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// ContractError describes a violated calling contract. It is the panic value
// raised by Violate.
type ContractError struct {
	// Op is the operation whose contract was violated.
	Op string
	// Err describes the violation.
	Err error
	// StackTrace contains the call stack at the violation site.
	StackTrace string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("contract violation in %s: %v", e.Op, e.Err)
}

func (e *ContractError) Unwrap() error {
	return e.Err
}

// ErrorHandler receives errors reported by the engine.
type ErrorHandler interface {
	// HandleError is called when an error occurs.
	HandleError(err *EngineError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
	// HandleContractError is called right before a contract violation panics.
	HandleContractError(err *ContractError)
}
