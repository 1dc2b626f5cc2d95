// Package config loads reghover settings.
//
// # Architecture
//
// Settings are built from layers, higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  3. Environment Variables   │  ← REGHOVER_* (highest priority)
//	├─────────────────────────────┤
//	│  2. Config File             │  ← reghover.toml or reghover.yaml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// Each layer is a plain map. The maps are deep-merged and then decoded
// into Settings, which is validated before use.
//
// # Live Reload
//
// A Manager re-reads the config file when it changes on disk and hands
// the new Settings to its reload handlers. A file that fails to parse or
// validate leaves the previous Settings in place.
//
//	m := config.NewManager(path)
//	settings, err := m.Load()
//	m.OnReload(func(s *config.Settings) { ... })
//	err = m.Watch()
//	defer m.Close()
//
// # Sub-packages
//
//   - loader: TOML/YAML file loading and environment variables
//   - watcher: fsnotify-based file watching with debouncing
package config
