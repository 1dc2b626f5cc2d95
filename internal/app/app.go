// Package app wires the register hover engine into an interactive debug
// console: configuration, logging, debug sessions, the hover controller,
// the Lua hover hook and the command loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/reghover/internal/config"
	"github.com/dshills/reghover/internal/config/loader"
	"github.com/dshills/reghover/internal/config/watcher"
	"github.com/dshills/reghover/internal/hover"
	"github.com/dshills/reghover/internal/integration/debug"
	"github.com/dshills/reghover/internal/integration/debug/registers"
	"github.com/dshills/reghover/internal/plugin/lua"
)

// shutdownTimeout bounds disconnecting sessions on exit.
const shutdownTimeout = 3 * time.Second

// Application is the central coordinator for all reghover components.
type Application struct {
	opts Options

	config  *config.Manager
	logger  *Logger
	console *Console
	metrics *Metrics

	registry   *debug.Registry
	gateway    *debug.Gateway
	backend    *registers.GDBBackend
	inspector  *registers.Inspector
	controller *hover.Controller
	documents  *DocumentManager
	sessions   *SessionManager

	// hookWatcher reloads the hook script when it changes.
	hookWatcher *watcher.Watcher

	mu       sync.Mutex
	settings *config.Settings
	hook     *lua.Hook
	hookPath string
	logPath  string
	logFile  *os.File

	refreshed chan struct{}

	running      atomic.Bool
	shutdownOnce sync.Once
}

// Options configures the application.
type Options struct {
	// ConfigPath is the configuration file. Empty searches the default
	// locations.
	ConfigPath string

	// LogLevel overrides the configured log level.
	LogLevel string

	// Profile is a launch profile started on Run.
	Profile string

	// Files are opened on startup; the last one is active.
	Files []string

	// NoWatch disables reloading the config and hook files.
	NoWatch bool

	// Stdin, Stdout and Stderr default to the process streams. Logs go to
	// Stderr unless a log file is configured.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// New creates a new Application with the given options.
func New(opts Options) (*Application, error) {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	app := &Application{
		opts:      opts,
		documents: NewDocumentManager(),
		metrics:   NewMetrics(),
		refreshed: make(chan struct{}, 1),
	}

	if err := app.bootstrap(); err != nil {
		app.Shutdown()
		return nil, err
	}
	return app, nil
}

// bootstrap initializes all components in dependency order.
func (app *Application) bootstrap() error {
	// 1. Config
	path := app.opts.ConfigPath
	if path == "" {
		path = config.Locate(loader.DefaultFS(), config.SearchDirs()...)
	}
	app.config = config.NewManager(path)
	settings, err := app.config.Load()
	if err != nil {
		return NewComponentError("config", "load", err)
	}

	// 2. Logging and the console
	logCfg := DefaultLoggerConfig()
	logCfg.Output = app.opts.Stderr
	app.logger = NewLogger(logCfg)
	app.console = NewConsole(app.opts.Stdout)

	// 3. Debug sessions and the gateway
	app.registry = debug.NewRegistry()
	app.registry.OnActiveChanged(app.onActiveChanged)
	app.gateway = debug.NewGateway(app.registry,
		debug.WithNotifier(app.console),
		debug.WithLogger(app.logger.WithComponent("gateway")),
		debug.WithBackendTypes(settings.Debug.Backends))
	app.sessions = NewSessionManager(app.registry, app.logger, SessionEvents{
		OnStopped:    app.onStopped,
		OnTerminated: app.onTerminated,
	})

	// 4. Memory inspection and the hover controller
	app.backend = registers.NewGDBBackend(app.gateway)
	app.inspector = registers.NewInspector(app.backend, app.logger.WithComponent("memory"))
	app.controller = hover.NewController(app.gateway, app.inspector,
		hover.WithConfig(hoverConfig(settings)),
		hover.WithNotifier(app.console),
		hover.WithLogger(app.logger.WithComponent("hover")),
		hover.WithContextSetter(app.console))

	// 5. Live reload
	if !app.opts.NoWatch {
		w, err := watcher.New(watcher.WithErrorHandler(func(err error) {
			app.logger.Warn("hook watcher: %v", err)
		}))
		if err != nil {
			app.logger.Warn("hook reload disabled: %v", err)
		} else {
			w.OnChange(app.onHookChanged)
			app.hookWatcher = w
		}
	}

	app.applySettings(settings)

	app.config.OnReload(func(s *config.Settings) {
		app.logger.Info("configuration reloaded")
		app.applySettings(s)
	})
	app.config.OnError(func(err error) {
		app.console.Warn(fmt.Sprintf("configuration not reloaded: %v", err))
	})
	if !app.opts.NoWatch {
		if err := app.config.Watch(); err != nil {
			app.logger.Warn("config reload disabled: %v", err)
		}
	}

	// 6. Startup files
	for _, f := range app.opts.Files {
		if _, err := app.documents.Open(f); err != nil {
			return NewComponentError("documents", "open "+f, err)
		}
	}

	return nil
}

// hoverConfig maps settings onto the hover controller configuration.
func hoverConfig(s *config.Settings) hover.Config {
	return hover.Config{
		Modes:         s.Modes(),
		Length:        s.Inspect.Length,
		RowWidth:      s.Inspect.RowWidth,
		Languages:     s.Hover.Languages,
		Extensions:    s.Hover.Extensions,
		GroupDigits:   s.Hover.GroupDigits,
		Locale:        s.Hover.Locale,
		ShowArchWidth: s.Hover.ShowArchWidth,
		MaxDepth:      s.Debug.MaxDepth,
		MaxNodes:      s.Debug.MaxNodes,
	}
}

// applySettings pushes settings into every component. It runs at startup
// and after each successful config reload.
func (app *Application) applySettings(s *config.Settings) {
	app.mu.Lock()
	app.settings = s
	app.mu.Unlock()

	level := s.Logging.Level
	if app.opts.LogLevel != "" {
		level = app.opts.LogLevel
	}
	app.logger.SetLevel(ParseLogLevel(level))
	app.setLogFile(app.resolve(s.Logging.File))

	app.gateway.SetBackendTypes(s.Debug.Backends)
	app.controller.SetConfig(hoverConfig(s))

	if profiles := app.resolve(s.Debug.Profiles); profiles != "" {
		if err := app.sessions.LoadProfiles(profiles); err != nil {
			app.console.Warn(fmt.Sprintf("launch profiles not loaded: %v", err))
		}
	}

	app.setHook(app.resolve(s.Plugin.Hook))
}

// resolve makes a configured path relative to the config file directory.
func (app *Application) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || app.config.Path() == "" {
		return path
	}
	return filepath.Join(filepath.Dir(app.config.Path()), path)
}

// setLogFile redirects logs to path, or back to Stderr when path is empty.
func (app *Application) setLogFile(path string) {
	app.mu.Lock()
	defer app.mu.Unlock()

	if path == app.logPath {
		return
	}

	var out io.Writer = app.opts.Stderr
	var file *os.File
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			app.logger.Warn("open log file %s: %v", path, err)
			return
		}
		out, file = f, f
	}

	app.logger.SetOutput(out)
	if app.logFile != nil {
		app.logFile.Close()
	}
	app.logFile = file
	app.logPath = path
}

// setHook loads the hook script at path, replacing the current hook. An
// empty path removes the hook.
func (app *Application) setHook(path string) {
	app.mu.Lock()
	oldPath := app.hookPath
	app.hookPath = path
	app.mu.Unlock()

	if app.hookWatcher != nil && oldPath != path {
		if oldPath != "" {
			_ = app.hookWatcher.Unwatch(oldPath)
		}
		if path != "" {
			if err := app.hookWatcher.Watch(path); err != nil {
				app.logger.Warn("watch hook %s: %v", path, err)
			}
		}
	}

	app.reloadHook()
}

func (app *Application) onHookChanged(event watcher.Event) {
	app.logger.Debug("hook %s: %s", event.Path, event.Op)
	app.reloadHook()
}

// reloadHook loads the current hook path. On failure the hook is removed
// and a warning is shown.
func (app *Application) reloadHook() {
	app.mu.Lock()
	path := app.hookPath
	timeout := app.settings.HookTimeout()
	app.mu.Unlock()

	var hook *lua.Hook
	if path != "" {
		hookLog := app.logger.WithComponent("hook")
		h, err := lua.LoadHook(path,
			lua.WithExecutionTimeout(timeout),
			lua.WithPrinter(func(line string) { hookLog.Info("%s", line) }))
		if err != nil {
			app.console.Warn(fmt.Sprintf("hover hook %s not loaded: %v", path, err))
		} else {
			hook = h
		}
	}

	if hook != nil {
		app.controller.SetHooks(hook)
	} else {
		app.controller.SetHooks()
	}

	app.mu.Lock()
	old := app.hook
	app.hook = hook
	app.mu.Unlock()

	if old != nil {
		old.Close()
	}
}

// Settings returns the current settings.
func (app *Application) Settings() *config.Settings {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.settings
}

// Logger returns the application logger.
func (app *Application) Logger() *Logger {
	return app.logger
}

// Console returns the console status messages go to.
func (app *Application) Console() *Console {
	return app.console
}

// Controller returns the hover controller.
func (app *Application) Controller() *hover.Controller {
	return app.controller
}

// Documents returns the document manager.
func (app *Application) Documents() *DocumentManager {
	return app.documents
}

// Sessions returns the session manager.
func (app *Application) Sessions() *SessionManager {
	return app.sessions
}

// Registry returns the debug session registry.
func (app *Application) Registry() *debug.Registry {
	return app.registry
}

// Metrics returns the application metrics.
func (app *Application) Metrics() *Metrics {
	return app.metrics
}

// Refreshed delivers a value after each register refresh triggered by a
// stopped event.
func (app *Application) Refreshed() <-chan struct{} {
	return app.refreshed
}

// requestContext bounds a debugger round trip.
func (app *Application) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, app.Settings().RequestTimeout())
}

// onActiveChanged rebuilds the cache of a newly active session in the
// background.
func (app *Application) onActiveChanged(id string) {
	app.logger.Debug("active session changed to %q", id)
	if id == "" {
		return
	}
	go app.refreshSession(id)
}

// onStopped refreshes the register cache once the debuggee settles.
func (app *Application) onStopped(id string) {
	app.refreshSession(id)
}

// refreshSession refreshes the cache if id is still the active session and
// wakes the watch view.
func (app *Application) refreshSession(id string) {
	if app.gateway.ActiveSessionID() != id {
		return
	}
	ctx, cancel := app.requestContext(context.Background())
	defer cancel()

	app.Refresh(ctx)

	select {
	case app.refreshed <- struct{}{}:
	default:
	}
}

func (app *Application) onTerminated(id string) {
	app.controller.SessionEnded(id)
	app.console.Status("Debug session ended")
}

// Refresh rebuilds the register cache of the active session.
func (app *Application) Refresh(ctx context.Context) debug.Result {
	timer := StartTimer()
	res := app.controller.Refresh(ctx)
	app.metrics.RecordRefresh(timer.Elapsed(), res)
	return res
}

// HoverAt resolves a register hover in the active document at a 0-based
// line and byte column. It returns a nil result when nothing is hovered.
func (app *Application) HoverAt(ctx context.Context, line, col int) (*hover.Result, error) {
	doc := app.documents.Active()
	if doc == nil {
		return nil, ErrNoActiveDocument
	}

	ctx, cancel := context.WithTimeout(ctx, app.Settings().HoverTimeout())
	defer cancel()

	res := app.controller.Hover(ctx, doc.HoverDocument(), hover.Position{Line: line, Character: col})
	if res == nil {
		return nil, nil
	}

	app.metrics.RecordHover()
	app.metrics.RecordRefresh(res.RefreshTime, res.Refresh)
	if res.Inspected {
		app.metrics.RecordMemory(res.Memory)
	}
	return res, nil
}

// Examine reads a memory window at addr in the given mode.
func (app *Application) Examine(ctx context.Context, addr string, length int, mode registers.Mode) (registers.Window, debug.Result) {
	ctx, cancel := app.requestContext(ctx)
	defer cancel()

	window, res := app.inspector.Inspect(ctx, mode, length, addr)
	app.metrics.RecordMemory(res)
	return window, res
}

// BackendRegisters lists registers through the backend's info registers.
func (app *Application) BackendRegisters(ctx context.Context) (map[string]string, debug.Result) {
	ctx, cancel := app.requestContext(ctx)
	defer cancel()
	return app.backend.ListRegisters(ctx)
}

// Request sends a raw DAP request to the active session.
func (app *Application) Request(ctx context.Context, command string, args any) ([]byte, error) {
	ctx, cancel := app.requestContext(ctx)
	defer cancel()
	return app.gateway.CustomRequest(ctx, command, args)
}

// StartSession starts a debug session from a launch profile. An empty name
// uses the configured default profile.
func (app *Application) StartSession(ctx context.Context, name string) (*debug.Session, error) {
	if name == "" {
		name = app.Settings().Debug.Profile
	}
	if name == "" {
		return nil, usageError("start <profile>")
	}

	ctx, cancel := app.requestContext(ctx)
	defer cancel()
	return app.sessions.Start(ctx, name)
}

// StopSession disconnects the active debug session.
func (app *Application) StopSession(ctx context.Context) error {
	ctx, cancel := app.requestContext(ctx)
	defer cancel()
	return app.sessions.Stop(ctx)
}

// Run starts the configured profile, if any, and runs the command loop
// until quit or end of input.
func (app *Application) Run(ctx context.Context) error {
	if !app.running.CompareAndSwap(false, true) {
		return errors.New("application already running")
	}
	defer app.running.Store(false)

	if app.opts.Profile != "" {
		if _, err := app.StartSession(ctx, app.opts.Profile); err != nil {
			return err
		}
	}

	return NewREPL(app, app.opts.Stdin, app.opts.Stdout).Run(ctx)
}

// Shutdown stops all sessions and releases resources. It is safe to call
// more than once.
func (app *Application) Shutdown() {
	app.shutdownOnce.Do(func() {
		if app.sessions != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			app.sessions.StopAll(ctx)
			cancel()
		}
		if app.config != nil {
			app.config.Close()
		}
		if app.hookWatcher != nil {
			app.hookWatcher.Close()
		}

		app.mu.Lock()
		hook, logFile := app.hook, app.logFile
		app.hook, app.logFile = nil, nil
		app.mu.Unlock()

		if hook != nil {
			hook.Close()
		}
		if logFile != nil {
			app.logger.SetOutput(app.opts.Stderr)
			logFile.Close()
		}
	})
}
