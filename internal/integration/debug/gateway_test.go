package debug

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/reghover/internal/integration/debug/dap"
)

type fakeCall struct {
	Command string
	Args    interface{}
}

// fakeSession answers requests from a command table.
type fakeSession struct {
	id      string
	kind    string
	mu      sync.Mutex
	calls   []fakeCall
	handler func(command string, args interface{}) (json.RawMessage, error)
}

func (s *fakeSession) ID() string   { return s.id }
func (s *fakeSession) Type() string { return s.kind }

func (s *fakeSession) CustomRequest(_ context.Context, command string, args interface{}) (json.RawMessage, error) {
	s.mu.Lock()
	s.calls = append(s.calls, fakeCall{Command: command, Args: args})
	s.mu.Unlock()
	if s.handler == nil {
		return json.RawMessage(`{}`), nil
	}
	return s.handler(command, args)
}

type recordingNotifier struct {
	mu       sync.Mutex
	warnings []string
	statuses []string
}

func (n *recordingNotifier) Warn(msg string) {
	n.mu.Lock()
	n.warnings = append(n.warnings, msg)
	n.mu.Unlock()
}

func (n *recordingNotifier) Status(msg string) {
	n.mu.Lock()
	n.statuses = append(n.statuses, msg)
	n.mu.Unlock()
}

func newGatewayWith(s DebugSession, opts ...GatewayOption) (*Gateway, *Registry) {
	reg := NewRegistry()
	if s != nil {
		reg.Add(s)
	}
	return NewGateway(reg, opts...), reg
}

func TestGatewayNoSession(t *testing.T) {
	n := &recordingNotifier{}
	g, _ := newGatewayWith(nil, WithNotifier(n))

	assert.False(t, g.HasActiveSession())
	assert.Empty(t, g.ActiveSessionID())
	assert.False(t, g.SupportsBackendCommands())

	_, err := g.CustomRequest(context.Background(), "threads", nil)
	assert.ErrorIs(t, err, ErrNoSession)

	body, res := g.SendBackendCommand(context.Background(), "x/4xb 0x1000")
	assert.Nil(t, body)
	assert.Equal(t, Degraded(KindNoActiveSession), res)
	assert.Empty(t, n.warnings)
}

func TestGatewayCustomRequestWrapsAdapterErrors(t *testing.T) {
	boom := errors.New("boom")
	s := &fakeSession{id: "s1", kind: "gdb", handler: func(string, interface{}) (json.RawMessage, error) {
		return nil, boom
	}}
	g, _ := newGatewayWith(s)

	_, err := g.CustomRequest(context.Background(), "scopes", map[string]int{"frameId": 1})
	require.Error(t, err)

	var adapterErr *AdapterError
	require.ErrorAs(t, err, &adapterErr)
	assert.Equal(t, "scopes", adapterErr.Command)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Failed(KindAdapterRequestFailure, err), ResultFromError(err))
}

func TestGatewayCustomRequestPassesSessionGone(t *testing.T) {
	s := &fakeSession{id: "s1", kind: "gdb", handler: func(string, interface{}) (json.RawMessage, error) {
		return nil, ErrNoSession
	}}
	g, _ := newGatewayWith(s)

	_, err := g.CustomRequest(context.Background(), "threads", nil)
	assert.ErrorIs(t, err, ErrNoSession)

	var adapterErr *AdapterError
	assert.False(t, errors.As(err, &adapterErr))
}

func TestGatewayBackendPrefix(t *testing.T) {
	tests := []struct {
		kind string
		want string
	}{
		{"cppdbg", "-exec x/2xb 0x10"},
		{"gdb", "x/2xb 0x10"},
		{"GDB", "x/2xb 0x10"},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			s := &fakeSession{id: "s", kind: tt.kind, handler: func(string, interface{}) (json.RawMessage, error) {
				return json.RawMessage(`{"result":"0x10:\t0x01\t0x02","variablesReference":0}`), nil
			}}
			g, _ := newGatewayWith(s)

			assert.True(t, g.SupportsBackendCommands())

			body, res := g.SendBackendCommand(context.Background(), "x/2xb 0x10")
			require.True(t, res.OK(), res.String())
			require.NotNil(t, body)
			assert.Equal(t, "0x10:\t0x01\t0x02", body.Result)

			require.Len(t, s.calls, 1)
			assert.Equal(t, "evaluate", s.calls[0].Command)
			args, ok := s.calls[0].Args.(dap.EvaluateArguments)
			require.True(t, ok)
			assert.Equal(t, tt.want, args.Expression)
			assert.Equal(t, "repl", args.Context)
		})
	}
}

func TestGatewayUnsupportedBackendIsSilent(t *testing.T) {
	n := &recordingNotifier{}
	s := &fakeSession{id: "s", kind: "lldb"}
	g, _ := newGatewayWith(s, WithNotifier(n))

	assert.False(t, g.SupportsBackendCommands())

	body, res := g.SendBackendCommand(context.Background(), "x/1xb 0")
	assert.Nil(t, body)
	assert.Equal(t, Degraded(KindUnsupportedBackend), res)
	assert.Empty(t, s.calls)
	assert.Empty(t, n.warnings)
}

func TestGatewayBackendFailureWarns(t *testing.T) {
	n := &recordingNotifier{}
	s := &fakeSession{id: "s", kind: "cppdbg", handler: func(string, interface{}) (json.RawMessage, error) {
		return nil, &dap.ResponseError{Command: "evaluate", Message: "No symbol table"}
	}}
	g, _ := newGatewayWith(s, WithNotifier(n))

	body, res := g.SendBackendCommand(context.Background(), "x/1xb foo")
	assert.Nil(t, body)
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, KindAdapterRequestFailure, res.Kind)
	require.Len(t, n.warnings, 1)
	assert.Contains(t, n.warnings[0], "x/1xb foo")
}

func TestGatewayBackendUnmappedMemoryIsSilent(t *testing.T) {
	n := &recordingNotifier{}
	s := &fakeSession{id: "s", kind: "cppdbg", handler: func(string, interface{}) (json.RawMessage, error) {
		return nil, &dap.ResponseError{Command: "evaluate", Message: "Cannot access memory at address 0x2a"}
	}}
	g, _ := newGatewayWith(s, WithNotifier(n))

	body, res := g.SendBackendCommand(context.Background(), "x/32xb 0x2a")
	assert.Nil(t, body)
	assert.Equal(t, Degraded(KindMemoryUnavailable), res)
	assert.Empty(t, n.warnings)
}

func TestGatewayBackendUndecodableBody(t *testing.T) {
	n := &recordingNotifier{}
	s := &fakeSession{id: "s", kind: "gdb", handler: func(string, interface{}) (json.RawMessage, error) {
		return json.RawMessage(`"not an object"`), nil
	}}
	g, _ := newGatewayWith(s, WithNotifier(n))

	_, res := g.SendBackendCommand(context.Background(), "x/1xb 0")
	assert.Equal(t, StatusError, res.Status)
	assert.Len(t, n.warnings, 1)
}

func TestGatewayWithBackendTypes(t *testing.T) {
	s := &fakeSession{id: "s", kind: "lldb"}
	g, _ := newGatewayWith(s, WithBackendTypes(map[string]string{"LLDB": "script "}))

	assert.True(t, g.SupportsBackendCommands())
	_, res := g.SendBackendCommand(context.Background(), "print 1")
	require.True(t, res.OK())
	args := s.calls[0].Args.(dap.EvaluateArguments)
	assert.Equal(t, "script print 1", args.Expression)
}

func TestGatewaySetBackendTypes(t *testing.T) {
	s := &fakeSession{id: "s", kind: "lldb"}
	g, _ := newGatewayWith(s)
	assert.False(t, g.SupportsBackendCommands())

	g.SetBackendTypes(map[string]string{"lldb": ""})
	assert.True(t, g.SupportsBackendCommands())

	g.SetBackendTypes(nil)
	assert.False(t, g.SupportsBackendCommands(), "empty map restores the defaults")
}

func TestGatewayFollowsActiveSession(t *testing.T) {
	a := &fakeSession{id: "a", kind: "gdb"}
	b := &fakeSession{id: "b", kind: "lldb"}
	g, reg := newGatewayWith(a)
	reg.Add(b)

	assert.Equal(t, "b", g.ActiveSessionID())
	assert.False(t, g.SupportsBackendCommands())

	require.NoError(t, reg.SetActive("a"))
	assert.Equal(t, "a", g.ActiveSessionID())
	assert.True(t, g.SupportsBackendCommands())

	reg.Remove("a")
	assert.False(t, g.HasActiveSession())
}
