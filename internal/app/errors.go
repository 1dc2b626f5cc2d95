package app

import (
	"errors"
	"fmt"
)

// Sentinel errors for application operations.
var (
	// ErrQuit signals that the application should exit normally.
	ErrQuit = errors.New("quit requested")

	// ErrNoActiveDocument indicates no document is open.
	ErrNoActiveDocument = errors.New("no active document")

	// ErrUnknownCommand indicates a REPL command that does not exist.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrUsage indicates a REPL command was called with bad arguments.
	ErrUsage = errors.New("usage")

	// ErrProfileNotFound indicates a launch profile that does not exist.
	ErrProfileNotFound = errors.New("launch profile not found")

	// ErrNoSession indicates a command that needs a started session.
	ErrNoSession = errors.New("no debug session started")
)

// ComponentError represents an error from a specific component.
type ComponentError struct {
	Component string // Component name (e.g., "config", "hook", "session")
	Action    string // Action being performed
	Err       error  // Underlying error
}

// NewComponentError creates a new ComponentError.
func NewComponentError(component, action string, err error) *ComponentError {
	return &ComponentError{
		Component: component,
		Action:    action,
		Err:       err,
	}
}

func (e *ComponentError) Error() string {
	if e.Action != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Component, e.Action, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Component, e.Action)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Component, e.Err)
	}
	return e.Component
}

func (e *ComponentError) Unwrap() error {
	return e.Err
}

// usageError wraps ErrUsage with the expected syntax.
func usageError(syntax string) error {
	return fmt.Errorf("%w: %s", ErrUsage, syntax)
}
