package debug

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/reghover/internal/integration/debug/dap"
)

// SessionState represents the current state of a debug session.
type SessionState int

const (
	// StateInitializing is the initial state before connection.
	StateInitializing SessionState = iota
	// StateConnected is after transport is established.
	StateConnected
	// StateConfiguring is after initialize but before configurationDone.
	StateConfiguring
	// StateRunning is when the debuggee is running.
	StateRunning
	// StateStopped is when the debuggee is stopped (breakpoint, step, signal).
	StateStopped
	// StateTerminated is when the debuggee has exited.
	StateTerminated
	// StateDisconnected is when the debug adapter has disconnected.
	StateDisconnected
)

// String returns a string representation of the state.
func (s SessionState) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateConnected:
		return "connected"
	case StateConfiguring:
		return "configuring"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateTerminated:
		return "terminated"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// SessionHandlers contains callbacks for session events.
type SessionHandlers struct {
	// OnStateChanged is called when the session state changes.
	OnStateChanged func(old, new SessionState)

	// OnStopped is called when the debuggee stops.
	OnStopped func(reason string, threadID int)

	// OnOutput is called when the adapter or debuggee produces output.
	OnOutput func(category, output string)

	// OnTerminated is called when the debuggee terminates.
	OnTerminated func()
}

// SessionConfig configures the initialize handshake.
type SessionConfig struct {
	// AdapterID is the debug adapter identifier.
	AdapterID string

	// ClientID is this client's identifier.
	ClientID string

	// ClientName is this client's name.
	ClientName string
}

// DefaultSessionConfig returns a default session configuration.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		AdapterID:  "generic",
		ClientID:   "reghover",
		ClientName: "reghover",
	}
}

// Session is one connection to a debug adapter. The session type names the
// adapter family ("gdb", "cppdbg", "lldb") and gates raw backend commands.
type Session struct {
	id          string
	sessionType string

	client       *dap.Client
	capabilities *dap.Capabilities
	state        SessionState
	stateMu      sync.RWMutex

	handlers   SessionHandlers
	handlersMu sync.RWMutex

	// Adapter command (for stdio transport)
	cmd *exec.Cmd
}

// NewSession creates a new debug session with the given client.
func NewSession(client *dap.Client, sessionType string) *Session {
	s := &Session{
		id:          uuid.NewString(),
		sessionType: sessionType,
		client:      client,
		state:       StateConnected,
	}

	client.OnInitialized(s.onInitialized)
	client.OnStopped(s.onStopped)
	client.OnContinued(s.onContinued)
	client.OnExited(s.onExited)
	client.OnTerminated(s.onTerminated)
	client.OnOutput(s.onOutput)

	return s
}

// NewStdioSession creates a debug session using stdio transport with a subprocess.
func NewStdioSession(cmd *exec.Cmd, sessionType string) (*Session, error) {
	transport, err := dap.NewStdioTransport(cmd)
	if err != nil {
		return nil, fmt.Errorf("create stdio transport: %w", err)
	}

	session := NewSession(dap.NewClient(transport), sessionType)
	session.cmd = cmd
	return session, nil
}

// NewSocketSession creates a debug session using socket transport.
func NewSocketSession(address, sessionType string) (*Session, error) {
	transport, err := dap.NewSocketTransport(address)
	if err != nil {
		return nil, fmt.Errorf("create socket transport: %w", err)
	}

	return NewSession(dap.NewClient(transport), sessionType), nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Type returns the adapter family of the session.
func (s *Session) Type() string {
	return s.sessionType
}

// SetHandlers sets the session event handlers.
func (s *Session) SetHandlers(handlers SessionHandlers) {
	s.handlersMu.Lock()
	s.handlers = handlers
	s.handlersMu.Unlock()
}

// State returns the current session state.
func (s *Session) State() SessionState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

func (s *Session) setState(state SessionState) {
	s.stateMu.Lock()
	old := s.state
	s.state = state
	s.stateMu.Unlock()

	s.handlersMu.RLock()
	handler := s.handlers.OnStateChanged
	s.handlersMu.RUnlock()

	if handler != nil && old != state {
		handler(old, state)
	}
}

// Capabilities returns the debug adapter capabilities.
func (s *Session) Capabilities() *dap.Capabilities {
	return s.capabilities
}

// Initialize performs the initialize handshake.
func (s *Session) Initialize(ctx context.Context, config SessionConfig) error {
	args := dap.InitializeRequestArguments{
		ClientID:                 config.ClientID,
		ClientName:               config.ClientName,
		AdapterID:                config.AdapterID,
		LinesStartAt1:            true,
		ColumnsStartAt1:          true,
		PathFormat:               "path",
		SupportsVariableType:     true,
		SupportsMemoryReferences: true,
	}

	caps, err := s.client.Initialize(ctx, args)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	s.capabilities = caps
	s.setState(StateConfiguring)
	return nil
}

// ConfigurationDone signals that configuration is complete.
func (s *Session) ConfigurationDone(ctx context.Context) error {
	if err := s.client.ConfigurationDone(ctx); err != nil {
		return fmt.Errorf("configurationDone: %w", err)
	}

	s.setState(StateRunning)
	return nil
}

// Launch launches the debuggee with the given arguments.
func (s *Session) Launch(ctx context.Context, launchArgs interface{}) error {
	if err := s.client.Launch(ctx, launchArgs); err != nil {
		return fmt.Errorf("launch: %w", err)
	}
	return nil
}

// Attach attaches to a running process.
func (s *Session) Attach(ctx context.Context, attachArgs interface{}) error {
	if err := s.client.Attach(ctx, attachArgs); err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	return nil
}

// Disconnect disconnects from the debug adapter.
func (s *Session) Disconnect(ctx context.Context, terminate bool) error {
	args := dap.DisconnectArguments{
		TerminateDebuggee: terminate,
	}

	if err := s.client.Disconnect(ctx, args); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}

	s.setState(StateDisconnected)
	return nil
}

// Close closes the session and underlying client.
func (s *Session) Close() error {
	s.setState(StateDisconnected)
	return s.client.Close()
}

// CustomRequest forwards an arbitrary request to the adapter and returns the
// raw response body.
func (s *Session) CustomRequest(ctx context.Context, command string, args interface{}) (json.RawMessage, error) {
	switch s.State() {
	case StateTerminated, StateDisconnected:
		return nil, ErrNoSession
	}
	if err := s.client.Error(); err != nil {
		return nil, fmt.Errorf("%w: adapter connection lost: %v", ErrNoSession, err)
	}
	return s.client.Request(ctx, command, args)
}

// Event handlers

func (s *Session) onInitialized() {
	s.setState(StateConfiguring)
}

func (s *Session) onStopped(body dap.StoppedEventBody) {
	s.setState(StateStopped)

	s.handlersMu.RLock()
	handler := s.handlers.OnStopped
	s.handlersMu.RUnlock()

	if handler != nil {
		handler(body.Reason, body.ThreadID)
	}
}

func (s *Session) onContinued(dap.ContinuedEventBody) {
	s.setState(StateRunning)
}

func (s *Session) onExited(dap.ExitedEventBody) {
	s.setState(StateTerminated)
}

func (s *Session) onTerminated(dap.TerminatedEventBody) {
	s.setState(StateTerminated)

	s.handlersMu.RLock()
	handler := s.handlers.OnTerminated
	s.handlersMu.RUnlock()

	if handler != nil {
		handler()
	}
}

func (s *Session) onOutput(body dap.OutputEventBody) {
	s.handlersMu.RLock()
	handler := s.handlers.OnOutput
	s.handlersMu.RUnlock()

	if handler != nil {
		handler(body.Category, body.Output)
	}
}
