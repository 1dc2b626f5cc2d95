package debug

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/reghover/internal/integration/debug/dap"
)

func TestResultFromError(t *testing.T) {
	other := errors.New("timeout")
	unmapped := &AdapterError{Command: "evaluate", Err: &dap.ResponseError{Command: "evaluate", Message: "Cannot access memory at address 0x0"}}
	otherResp := &dap.ResponseError{Command: "evaluate", Message: "No symbol table"}

	tests := []struct {
		name string
		err  error
		want Result
	}{
		{"nil", nil, OK},
		{"no session", ErrNoSession, Degraded(KindNoActiveSession)},
		{"wrapped no session", fmt.Errorf("threads: %w", ErrNoSession), Degraded(KindNoActiveSession)},
		{"unsupported", ErrUnsupportedBackend, Degraded(KindUnsupportedBackend)},
		{"other", other, Failed(KindAdapterRequestFailure, other)},
		{"unmapped memory", unmapped, Degraded(KindMemoryUnavailable)},
		{"other response", otherResp, Failed(KindAdapterRequestFailure, otherResp)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResultFromError(tt.err))
		})
	}
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "ok", OK.String())
	assert.Equal(t, "degraded (no threads available)", Degraded(KindNoThreadsAvailable).String())
	assert.Equal(t, "error (adapter request failure): boom",
		Failed(KindAdapterRequestFailure, errors.New("boom")).String())
}

func TestFailureKindString(t *testing.T) {
	assert.Equal(t, "memory unavailable", KindMemoryUnavailable.String())
	assert.Equal(t, "empty stack trace", KindEmptyStackTrace.String())
	assert.Equal(t, "unknown", FailureKind(42).String())
	assert.Equal(t, "unknown", Status(9).String())
}

func TestAdapterErrorUnwrap(t *testing.T) {
	inner := errors.New("inner")
	err := &AdapterError{Command: "variables", Err: inner}

	assert.Equal(t, "adapter variables: inner", err.Error())
	assert.ErrorIs(t, err, inner)
}

func TestCannotAccessMemory(t *testing.T) {
	assert.True(t, CannotAccessMemory("Cannot access memory at address 0x2a"))
	assert.True(t, CannotAccessMemory("warning: CANNOT ACCESS MEMORY AT ADDRESS 0x0"))
	assert.False(t, CannotAccessMemory("0x2a:\t0x01"))
	assert.False(t, IsMemoryUnavailable(errors.New("Cannot access memory at address 0x2a")))
}
