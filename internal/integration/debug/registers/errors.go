package registers

import "errors"

// Errors reported through debug.Result.Err.
var (
	// ErrTreeTooDeep indicates the variable tree exceeded the depth limit.
	ErrTreeTooDeep = errors.New("variable tree too deep")

	// ErrTooManyNodes indicates the variable tree exceeded the node limit.
	ErrTooManyNodes = errors.New("variable tree too large")

	// ErrInvalidLength indicates a non-positive memory window length.
	ErrInvalidLength = errors.New("memory length must be positive")

	// ErrEmptyAddress indicates an empty address expression.
	ErrEmptyAddress = errors.New("empty address expression")
)
