package debug

import (
	"context"
	"encoding/json"
	"sync"
)

// DebugSession is the capability the gateway needs from an attached
// debugger. *Session implements it.
type DebugSession interface {
	// ID returns a unique session identifier.
	ID() string

	// Type returns the adapter family, e.g. "gdb" or "cppdbg".
	Type() string

	// CustomRequest forwards a DAP request and returns its raw body.
	CustomRequest(ctx context.Context, command string, args interface{}) (json.RawMessage, error)
}

// SessionProvider yields the active session, or nil when none is attached.
type SessionProvider interface {
	ActiveSession() DebugSession
}

// Registry tracks debug sessions by id and which one is active.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]DebugSession
	active   string

	onActiveChanged func(id string)
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]DebugSession),
	}
}

// OnActiveChanged sets a callback fired whenever the active session changes.
// An empty id means no session is active.
func (r *Registry) OnActiveChanged(fn func(id string)) {
	r.mu.Lock()
	r.onActiveChanged = fn
	r.mu.Unlock()
}

// Add registers a session and makes it active.
func (r *Registry) Add(s DebugSession) {
	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.active = s.ID()
	fn := r.onActiveChanged
	r.mu.Unlock()

	if fn != nil {
		fn(s.ID())
	}
}

// Remove forgets a session. If it was active, no session is active afterwards.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	changed := r.active == id
	if changed {
		r.active = ""
	}
	fn := r.onActiveChanged
	r.mu.Unlock()

	if changed && fn != nil {
		fn("")
	}
}

// SetActive makes a registered session active.
func (r *Registry) SetActive(id string) error {
	r.mu.Lock()
	if _, ok := r.sessions[id]; !ok {
		r.mu.Unlock()
		return ErrSessionNotFound
	}
	r.active = id
	fn := r.onActiveChanged
	r.mu.Unlock()

	if fn != nil {
		fn(id)
	}
	return nil
}

// ActiveSession implements SessionProvider.
func (r *Registry) ActiveSession() DebugSession {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.active == "" {
		return nil
	}
	s, ok := r.sessions[r.active]
	if !ok {
		return nil
	}
	return s
}

// Get returns a session by id.
func (r *Registry) Get(id string) (DebugSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
