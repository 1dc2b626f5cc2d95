package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/dshills/reghover/internal/config/loader"
	"github.com/dshills/reghover/internal/config/watcher"
)

// DefaultFileNames are the config files looked for, in order.
var DefaultFileNames = []string{"reghover.toml", "reghover.yaml", "reghover.yml"}

// Manager owns the current Settings and reloads them when the config file
// changes.
type Manager struct {
	mu sync.RWMutex

	path     string
	fs       loader.FileSystem
	env      *loader.EnvLoader
	settings *Settings

	watcher  *watcher.Watcher
	onReload []func(*Settings)
	onError  []func(error)
}

// Option configures a Manager.
type Option func(*Manager)

// WithFileSystem sets the file system config files are read from.
func WithFileSystem(fsys loader.FileSystem) Option {
	return func(m *Manager) {
		m.fs = fsys
	}
}

// WithEnvLoader replaces the environment layer loader.
func WithEnvLoader(env *loader.EnvLoader) Option {
	return func(m *Manager) {
		m.env = env
	}
}

// NewManager creates a manager for the config file at path. An empty
// path uses only defaults and the environment.
func NewManager(path string, opts ...Option) *Manager {
	m := &Manager{
		path:     path,
		fs:       loader.DefaultFS(),
		env:      loader.NewEnvLoader(loader.EnvPrefix),
		settings: Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load is a shortcut for NewManager(path).Load().
func Load(path string) (*Settings, error) {
	return NewManager(path).Load()
}

// Path returns the config file path.
func (m *Manager) Path() string {
	return m.path
}

// Settings returns the current settings.
func (m *Manager) Settings() *Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// OnReload registers a handler called with new settings after a reload.
func (m *Manager) OnReload(fn func(*Settings)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReload = append(m.onReload, fn)
}

// OnError registers a handler for reload failures.
func (m *Manager) OnError(fn func(error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onError = append(m.onError, fn)
}

// Load reads all layers, validates the result, and makes it current.
// On error the current settings are unchanged.
func (m *Manager) Load() (*Settings, error) {
	s, err := m.build()
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.settings = s
	m.mu.Unlock()
	return s, nil
}

func (m *Manager) build() (*Settings, error) {
	merged, err := Default().Map()
	if err != nil {
		return nil, err
	}

	if m.path != "" {
		file, err := loader.NewFileLoaderWithFS(m.fs, m.path).Load()
		if err != nil {
			return nil, err
		}
		merged = loader.DeepMerge(merged, file)
	}

	if m.env != nil {
		env, err := m.env.Load()
		if err != nil {
			return nil, fmt.Errorf("loading environment: %w", err)
		}
		merged = loader.DeepMerge(merged, env)
	}

	s, err := Decode(merged)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Watch starts reloading the config file when it changes.
func (m *Manager) Watch(opts ...watcher.Option) error {
	if m.path == "" {
		return nil
	}

	opts = append([]watcher.Option{watcher.WithErrorHandler(m.reportError)}, opts...)
	w, err := watcher.New(opts...)
	if err != nil {
		return err
	}
	w.OnChange(m.handleFileChange)
	if err := w.Watch(m.path); err != nil {
		w.Close()
		return err
	}

	m.mu.Lock()
	m.watcher = w
	m.mu.Unlock()
	return nil
}

// Close stops watching.
func (m *Manager) Close() error {
	m.mu.Lock()
	w := m.watcher
	m.watcher = nil
	m.mu.Unlock()

	if w == nil {
		return nil
	}
	return w.Close()
}

// handleFileChange reloads on writes and creates. A removed file falls
// back to defaults and the environment.
func (m *Manager) handleFileChange(event watcher.Event) {
	if event.Op == watcher.OpRename {
		// Rename-and-replace saves are followed by a create.
		if _, err := m.fs.Stat(m.path); err != nil {
			return
		}
	}

	s, err := m.Load()
	if err != nil {
		m.reportError(fmt.Errorf("reloading %s: %w", event.Path, err))
		return
	}

	m.mu.RLock()
	handlers := slices.Clone(m.onReload)
	m.mu.RUnlock()

	for _, fn := range handlers {
		fn(s)
	}
}

func (m *Manager) reportError(err error) {
	m.mu.RLock()
	handlers := slices.Clone(m.onError)
	m.mu.RUnlock()

	for _, fn := range handlers {
		fn(err)
	}
}

// Locate returns the first default config file found in dirs, or "".
func Locate(fsys loader.FileSystem, dirs ...string) string {
	for _, dir := range dirs {
		for _, name := range DefaultFileNames {
			path := filepath.Join(dir, name)
			if _, err := fsys.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// SearchDirs returns the directories searched for a config file: the
// working directory, then the user config directory.
func SearchDirs() []string {
	dirs := []string{"."}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, "reghover"))
	} else if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", "reghover"))
	}
	return dirs
}
