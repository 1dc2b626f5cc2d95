package lua

import "errors"

// Errors for Lua state operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutionTimeout is returned when execution times out.
	ErrExecutionTimeout = errors.New("lua execution timeout")

	// ErrNotFunction is returned when calling a global that is not a function.
	ErrNotFunction = errors.New("not a lua function")

	// ErrNoHook is returned when a script defines no on_hover function.
	ErrNoHook = errors.New("script defines no on_hover function")

	// ErrBadReturn is returned when on_hover returns something other than
	// nil, a string or a list of strings.
	ErrBadReturn = errors.New("on_hover must return a string or a list of strings")
)
