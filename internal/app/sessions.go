package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dshills/reghover/internal/integration/debug"
	"github.com/dshills/reghover/internal/integration/debug/adapters"
)

// StoppedDebounce is the quiet period after a stopped event before the
// register cache is refreshed.
const StoppedDebounce = 50 * time.Millisecond

// SessionEvents are the application callbacks for session lifecycle.
type SessionEvents struct {
	// OnStopped fires once a burst of stopped events settles.
	OnStopped func(id string)

	// OnTerminated fires when a session ends, however it ended.
	OnTerminated func(id string)
}

// SessionManager starts debug sessions from launch profiles and keeps the
// session registry in sync with their lifecycle.
type SessionManager struct {
	registry *debug.Registry
	adapters *adapters.Registry
	logger   *Logger
	events   SessionEvents

	mu       sync.Mutex
	profiles []adapters.Config
	running  map[string]*runningSession
}

type runningSession struct {
	session   *debug.Session
	profile   string
	adapter   *exec.Cmd // socket adapters started by us
	debouncer *Debouncer
}

// NewSessionManager creates a session manager registering sessions in
// registry.
func NewSessionManager(registry *debug.Registry, logger *Logger, events SessionEvents) *SessionManager {
	return &SessionManager{
		registry: registry,
		adapters: adapters.NewRegistry(),
		logger:   logger.WithComponent("session"),
		events:   events,
		running:  make(map[string]*runningSession),
	}
}

// SetProfiles replaces the known launch profiles.
func (sm *SessionManager) SetProfiles(profiles []adapters.Config) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.profiles = append([]adapters.Config(nil), profiles...)
}

// LoadProfiles reads launch profiles from a YAML file. A missing file
// leaves no profiles.
func (sm *SessionManager) LoadProfiles(path string) error {
	profiles, err := adapters.LoadProfiles(path)
	if errors.Is(err, fs.ErrNotExist) {
		profiles, err = nil, nil
	}
	if err != nil {
		return err
	}
	sm.SetProfiles(profiles)
	return nil
}

// Profiles returns the known profile names, sorted.
func (sm *SessionManager) Profiles() []string {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	names := make([]string, 0, len(sm.profiles))
	for _, p := range sm.profiles {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// Profile returns the named profile.
func (sm *SessionManager) Profile(name string) (adapters.Config, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	p, ok := adapters.FindProfile(sm.profiles, name)
	if !ok {
		return adapters.Config{}, fmt.Errorf("%w: %q", ErrProfileNotFound, name)
	}
	return p, nil
}

// Start launches or attaches a debug session for the named profile and
// makes it the active session.
func (sm *SessionManager) Start(ctx context.Context, name string) (*debug.Session, error) {
	profile, err := sm.Profile(name)
	if err != nil {
		return nil, err
	}

	adapter, err := sm.adapters.Create(profile)
	if err != nil {
		return nil, NewComponentError("session", "create adapter", err)
	}
	if err := adapter.Validate(); err != nil {
		return nil, NewComponentError("session", "validate profile "+name, err)
	}

	session, adapterCmd, err := sm.connect(ctx, profile, adapter)
	if err != nil {
		return nil, NewComponentError("session", "connect", err)
	}

	rs := sm.track(session, name, adapterCmd)
	if err := sm.handshake(ctx, session, profile, adapter); err != nil {
		sm.teardown(rs)
		return nil, NewComponentError("session", "start "+name, err)
	}
	sm.activate(rs)

	sm.logger.Info("session %s started for profile %q (%s)", session.ID(), name, adapter.Name())
	return session, nil
}

// connect opens the transport for adapter. For socket adapters that need a
// listening process, the process is started first and returned.
func (sm *SessionManager) connect(ctx context.Context, profile adapters.Config, adapter adapters.Adapter) (*debug.Session, *exec.Cmd, error) {
	sessionType := string(profile.Type)

	if adapter.GetConnectionType() != "socket" {
		cmd, err := adapter.GetCommand()
		if err != nil {
			return nil, nil, err
		}
		session, err := debug.NewStdioSession(cmd, sessionType)
		return session, nil, err
	}

	var cmd *exec.Cmd
	if profile.Request != "attach" {
		var err error
		if cmd, err = adapter.GetCommand(); err != nil {
			return nil, nil, err
		}
		if err := cmd.Start(); err != nil {
			return nil, nil, fmt.Errorf("start adapter: %w", err)
		}
		host := profile.Host
		if host == "" {
			host = "127.0.0.1"
		}
		if err := adapters.WaitForPort(ctx, host, profile.Port); err != nil {
			killAdapter(cmd)
			return nil, nil, err
		}
	}

	session, err := debug.NewSocketSession(adapter.GetAddress(), sessionType)
	if err != nil {
		killAdapter(cmd)
		return nil, nil, err
	}
	return session, cmd, nil
}

// track wires a connected session's events to the manager.
func (sm *SessionManager) track(session *debug.Session, profile string, adapterCmd *exec.Cmd) *runningSession {
	rs := &runningSession{
		session: session,
		profile: profile,
		adapter: adapterCmd,
	}
	id := session.ID()
	rs.debouncer = NewDebouncer(StoppedDebounce, func() {
		if sm.events.OnStopped != nil {
			sm.events.OnStopped(id)
		}
	})
	session.SetHandlers(sm.handlers(rs))
	return rs
}

// activate registers a started session and makes it active.
func (sm *SessionManager) activate(rs *runningSession) {
	sm.mu.Lock()
	sm.running[rs.session.ID()] = rs
	sm.mu.Unlock()
	sm.registry.Add(rs.session)
}

func (sm *SessionManager) handshake(ctx context.Context, session *debug.Session, profile adapters.Config, adapter adapters.Adapter) error {
	cfg := debug.DefaultSessionConfig()
	cfg.AdapterID = string(profile.Type)
	if err := session.Initialize(ctx, cfg); err != nil {
		return err
	}

	if profile.Request == "attach" {
		args, err := adapter.GetAttachArgs()
		if err != nil {
			return err
		}
		if err := session.Attach(ctx, args); err != nil {
			return err
		}
	} else {
		args, err := adapter.GetLaunchArgs()
		if err != nil {
			return err
		}
		if err := session.Launch(ctx, args); err != nil {
			return err
		}
	}

	return session.ConfigurationDone(ctx)
}

func (sm *SessionManager) handlers(rs *runningSession) debug.SessionHandlers {
	id := rs.session.ID()
	output := sm.logger.WithField("session", id)

	return debug.SessionHandlers{
		OnStopped: func(reason string, threadID int) {
			sm.logger.Debug("session %s stopped: %s (thread %d)", id, reason, threadID)
			rs.debouncer.Call()
		},
		OnOutput: func(category, text string) {
			text = strings.TrimRight(text, "\r\n")
			if text == "" {
				return
			}
			output.Debug("[%s] %s", category, text)
		},
		OnTerminated: func() {
			sm.logger.Info("session %s terminated", id)
			sm.finish(id)
		},
	}
}

// finish forgets a session and notifies the application. It is safe to
// call more than once.
func (sm *SessionManager) finish(id string) {
	sm.mu.Lock()
	rs, ok := sm.running[id]
	delete(sm.running, id)
	sm.mu.Unlock()

	if !ok {
		return
	}
	rs.debouncer.Cancel()
	sm.registry.Remove(id)
	if sm.events.OnTerminated != nil {
		sm.events.OnTerminated(id)
	}
}

// Stop disconnects the active session, terminating a launched debuggee.
func (sm *SessionManager) Stop(ctx context.Context) error {
	active := sm.registry.ActiveSession()
	if active == nil {
		return ErrNoSession
	}
	return sm.StopSession(ctx, active.ID())
}

// StopSession disconnects a session by id.
func (sm *SessionManager) StopSession(ctx context.Context, id string) error {
	sm.mu.Lock()
	rs, ok := sm.running[id]
	sm.mu.Unlock()
	if !ok {
		return ErrNoSession
	}

	err := rs.session.Disconnect(ctx, true)
	sm.teardown(rs)
	sm.finish(id)
	return err
}

// StopAll disconnects every session.
func (sm *SessionManager) StopAll(ctx context.Context) {
	sm.mu.Lock()
	ids := make([]string, 0, len(sm.running))
	for id := range sm.running {
		ids = append(ids, id)
	}
	sm.mu.Unlock()

	for _, id := range ids {
		if err := sm.StopSession(ctx, id); err != nil {
			sm.logger.Warn("stop session %s: %v", id, err)
		}
	}
}

// Running returns the number of started sessions.
func (sm *SessionManager) Running() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.running)
}

// ProfileOf returns the profile a session was started from.
func (sm *SessionManager) ProfileOf(id string) (string, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	rs, ok := sm.running[id]
	if !ok {
		return "", false
	}
	return rs.profile, true
}

func (sm *SessionManager) teardown(rs *runningSession) {
	rs.debouncer.Cancel()
	if err := rs.session.Close(); err != nil {
		sm.logger.Debug("close session %s: %v", rs.session.ID(), err)
	}
	killAdapter(rs.adapter)
}

func killAdapter(cmd *exec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
	_ = cmd.Wait()
}
