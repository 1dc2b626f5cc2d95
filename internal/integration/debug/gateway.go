package debug

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dshills/reghover/internal/integration/debug/adapters"
	"github.com/dshills/reghover/internal/integration/debug/dap"
)

// Gateway wraps the request patterns the register engine needs from a debug
// adapter: generic requests, raw backend commands, and session guards.
type Gateway struct {
	provider SessionProvider
	notifier Notifier
	logger   Logger

	mu sync.RWMutex
	// session type -> prefix prepended to raw backend commands
	backends map[string]string
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithNotifier sets where backend command warnings are shown.
func WithNotifier(n Notifier) GatewayOption {
	return func(g *Gateway) {
		if n != nil {
			g.notifier = n
		}
	}
}

// WithLogger sets the gateway logger.
func WithLogger(l Logger) GatewayOption {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithBackendTypes replaces the set of session types that accept raw
// backend commands, mapped to their command prefix.
func WithBackendTypes(types map[string]string) GatewayOption {
	return func(g *Gateway) {
		if len(types) > 0 {
			g.backends = normalizeBackends(types)
		}
	}
}

// SetBackendTypes replaces the backend command prefixes. An empty map
// restores the adapter defaults.
func (g *Gateway) SetBackendTypes(types map[string]string) {
	if len(types) == 0 {
		types = adapters.BackendCommandPrefixes()
	}
	backends := normalizeBackends(types)

	g.mu.Lock()
	g.backends = backends
	g.mu.Unlock()
}

func normalizeBackends(types map[string]string) map[string]string {
	out := make(map[string]string, len(types))
	for k, v := range types {
		out[strings.ToLower(k)] = v
	}
	return out
}

// backendPrefix returns the raw command prefix for a session type.
func (g *Gateway) backendPrefix(sessionType string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	prefix, ok := g.backends[strings.ToLower(sessionType)]
	return prefix, ok
}

// NewGateway creates a gateway over the given session provider.
func NewGateway(provider SessionProvider, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		provider: provider,
		notifier: NopNotifier,
		logger:   NopLogger,
		backends: adapters.BackendCommandPrefixes(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// HasActiveSession reports whether a debugger is attached.
func (g *Gateway) HasActiveSession() bool {
	return g.provider.ActiveSession() != nil
}

// ActiveSessionID returns the active session id, or "" when detached.
func (g *Gateway) ActiveSessionID() string {
	s := g.provider.ActiveSession()
	if s == nil {
		return ""
	}
	return s.ID()
}

// CustomRequest forwards command to the active session. It returns
// ErrNoSession when detached and *AdapterError when the adapter fails.
func (g *Gateway) CustomRequest(ctx context.Context, command string, args interface{}) (json.RawMessage, error) {
	s := g.provider.ActiveSession()
	if s == nil {
		return nil, ErrNoSession
	}

	body, err := s.CustomRequest(ctx, command, args)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return nil, err
		}
		return nil, &AdapterError{Command: command, Err: err}
	}
	return body, nil
}

// SupportsBackendCommands reports whether the active session accepts raw
// backend commands.
func (g *Gateway) SupportsBackendCommands() bool {
	s := g.provider.ActiveSession()
	if s == nil {
		return false
	}
	_, ok := g.backendPrefix(s.Type())
	return ok
}

// SendBackendCommand runs a raw debugger command through the REPL evaluate
// channel. Without a compatible backend, or when the adapter rejects an
// unmapped memory address, it returns nil and a degraded result without
// warning; any other failing request is reported to the user.
func (g *Gateway) SendBackendCommand(ctx context.Context, raw string) (*dap.EvaluateResponseBody, Result) {
	s := g.provider.ActiveSession()
	if s == nil {
		return nil, Degraded(KindNoActiveSession)
	}

	prefix, ok := g.backendPrefix(s.Type())
	if !ok {
		g.logger.Debug("skipping backend command for session type %q", s.Type())
		return nil, Degraded(KindUnsupportedBackend)
	}

	args := dap.EvaluateArguments{
		Expression: prefix + raw,
		Context:    "repl",
	}

	body, err := g.CustomRequest(ctx, "evaluate", args)
	if err != nil {
		if IsMemoryUnavailable(err) {
			g.logger.Debug("%s: %v", raw, err)
			return nil, Degraded(KindMemoryUnavailable)
		}
		g.notifier.Warn(fmt.Sprintf("Failed to run %q: %v", raw, err))
		return nil, ResultFromError(err)
	}

	var result dap.EvaluateResponseBody
	if err := json.Unmarshal(body, &result); err != nil {
		err = &AdapterError{Command: "evaluate", Err: fmt.Errorf("decode body: %w", err)}
		g.notifier.Warn(fmt.Sprintf("Failed to run %q: %v", raw, err))
		return nil, Failed(KindAdapterRequestFailure, err)
	}

	return &result, OK
}
