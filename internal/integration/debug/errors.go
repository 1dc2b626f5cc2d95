package debug

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/reghover/internal/integration/debug/dap"
)

// Errors returned by the session gateway.
var (
	// ErrNoSession indicates no debug session is attached.
	ErrNoSession = errors.New("no active debug session")

	// ErrUnsupportedBackend indicates the attached backend does not accept
	// raw backend commands.
	ErrUnsupportedBackend = errors.New("backend does not accept raw commands")

	// ErrSessionNotFound indicates an unknown session id.
	ErrSessionNotFound = errors.New("session not found")
)

// AdapterError wraps a failure reported by, or while talking to, the debug
// adapter.
type AdapterError struct {
	Command string
	Err     error
}

// Error implements the error interface.
func (e *AdapterError) Error() string {
	return fmt.Sprintf("adapter %s: %v", e.Command, e.Err)
}

// Unwrap returns the underlying error.
func (e *AdapterError) Unwrap() error {
	return e.Err
}

// FailureKind classifies why an operation produced no data.
type FailureKind int

const (
	// KindNone means no failure.
	KindNone FailureKind = iota
	// KindNoActiveSession means no debugger is attached.
	KindNoActiveSession
	// KindNoThreadsAvailable means the adapter reported no threads.
	KindNoThreadsAvailable
	// KindEmptyStackTrace means the first thread has no frames.
	KindEmptyStackTrace
	// KindAdapterRequestFailure means an adapter request failed.
	KindAdapterRequestFailure
	// KindUnsupportedBackend means the backend cannot run raw commands.
	KindUnsupportedBackend
	// KindMemoryUnavailable means the target address cannot be read.
	KindMemoryUnavailable
)

// String returns a string representation of the kind.
func (k FailureKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNoActiveSession:
		return "no active session"
	case KindNoThreadsAvailable:
		return "no threads available"
	case KindEmptyStackTrace:
		return "empty stack trace"
	case KindAdapterRequestFailure:
		return "adapter request failure"
	case KindUnsupportedBackend:
		return "unsupported backend"
	case KindMemoryUnavailable:
		return "memory unavailable"
	default:
		return "unknown"
	}
}

// Status is the coarse outcome of an operation.
type Status int

const (
	// StatusOK means the operation produced data.
	StatusOK Status = iota
	// StatusDegraded means an expected condition left the result empty.
	StatusDegraded
	// StatusError means a request failed.
	StatusError
)

// String returns a string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusDegraded:
		return "degraded"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Result is the outcome of a gateway, refresh or inspection operation.
// Failures are values, never panics, so the hover path can always render.
type Result struct {
	Status Status
	Kind   FailureKind
	Err    error
}

// OK is the successful result.
var OK = Result{Status: StatusOK}

// Degraded builds a result for an expected, non-error absence of data.
func Degraded(kind FailureKind) Result {
	return Result{Status: StatusDegraded, Kind: kind}
}

// Failed builds an error result.
func Failed(kind FailureKind, err error) Result {
	return Result{Status: StatusError, Kind: kind, Err: err}
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool {
	return r.Status == StatusOK
}

// String returns a short description of the result.
func (r Result) String() string {
	switch {
	case r.Status == StatusOK:
		return "ok"
	case r.Err != nil:
		return fmt.Sprintf("%s (%s): %v", r.Status, r.Kind, r.Err)
	default:
		return fmt.Sprintf("%s (%s)", r.Status, r.Kind)
	}
}

// cannotAccessMemory is how gdb reports an unmapped address.
const cannotAccessMemory = "cannot access memory at address"

// CannotAccessMemory reports whether text holds gdb's unmapped-address
// message, in any case.
func CannotAccessMemory(text string) bool {
	return strings.Contains(strings.ToLower(text), cannotAccessMemory)
}

// IsMemoryUnavailable reports whether err is the adapter refusing a memory
// read at an unmapped address.
func IsMemoryUnavailable(err error) bool {
	var respErr *dap.ResponseError
	return errors.As(err, &respErr) && CannotAccessMemory(respErr.Message)
}

// ResultFromError maps a gateway error onto a Result.
func ResultFromError(err error) Result {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, ErrNoSession):
		return Degraded(KindNoActiveSession)
	case errors.Is(err, ErrUnsupportedBackend):
		return Degraded(KindUnsupportedBackend)
	case IsMemoryUnavailable(err):
		return Degraded(KindMemoryUnavailable)
	default:
		return Failed(KindAdapterRequestFailure, err)
	}
}
