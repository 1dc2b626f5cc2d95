package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/reghover/internal/config/loader"
	"github.com/dshills/reghover/internal/integration/debug/registers"
)

// MaxInspectLength bounds a single memory window read.
const MaxInspectLength = 4096

// Settings is the complete reghover configuration.
type Settings struct {
	Logging LoggingSettings `toml:"logging"`
	Debug   DebugSettings   `toml:"debug"`
	Hover   HoverSettings   `toml:"hover"`
	Inspect InspectSettings `toml:"inspect"`
	Plugin  PluginSettings  `toml:"plugin"`
}

// LoggingSettings configures the application logger.
type LoggingSettings struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`
	// File receives log output; empty means stderr.
	File string `toml:"file"`
}

// DebugSettings configures debug sessions.
type DebugSettings struct {
	// Profiles is the launch profile file.
	Profiles string `toml:"profiles"`
	// Profile is the profile started when none is named.
	Profile string `toml:"profile"`
	// Backends maps session types to their raw command prefix. Empty
	// uses the adapter defaults.
	Backends map[string]string `toml:"backends,omitempty"`
	// RequestTimeoutMs bounds each DAP request.
	RequestTimeoutMs int `toml:"requestTimeoutMs"`
	// MaxDepth and MaxNodes bound each register tree walk.
	MaxDepth int `toml:"maxDepth"`
	MaxNodes int `toml:"maxNodes"`
}

// HoverSettings configures hover rendering.
type HoverSettings struct {
	Languages     []string `toml:"languages"`
	Extensions    []string `toml:"extensions"`
	GroupDigits   bool     `toml:"groupDigits"`
	Locale        string   `toml:"locale"`
	ShowArchWidth bool     `toml:"showArchWidth"`
	// TimeoutMs bounds one hover, refresh and memory read included.
	TimeoutMs int `toml:"timeoutMs"`
}

// InspectSettings configures memory windows.
type InspectSettings struct {
	Modes    []string `toml:"modes"`
	Length   int      `toml:"length"`
	RowWidth int      `toml:"rowWidth"`
}

// PluginSettings configures the Lua hover hook.
type PluginSettings struct {
	// Hook is a Lua script defining on_hover; empty disables hooks.
	Hook      string `toml:"hook"`
	TimeoutMs int    `toml:"timeoutMs"`
}

// Default returns the built-in settings.
func Default() *Settings {
	return &Settings{
		Logging: LoggingSettings{Level: "info"},
		Debug: DebugSettings{
			Profiles:         "launch.yaml",
			RequestTimeoutMs: 10000,
			MaxDepth:         registers.DefaultMaxDepth,
			MaxNodes:         registers.DefaultMaxNodes,
		},
		Hover: HoverSettings{
			Languages:  []string{"asm", "nasm", "x86asm", "assembly", "asm-intel-x86-generic"},
			Extensions: []string{".asm", ".s", ".S", ".nasm", ".inc"},
			TimeoutMs:  5000,
		},
		Inspect: InspectSettings{
			Modes:    []string{string(registers.ModeHex), string(registers.ModeChar)},
			Length:   32,
			RowWidth: 16,
		},
		Plugin: PluginSettings{TimeoutMs: 500},
	}
}

// Map converts settings into a configuration map, the shape the loaders
// produce.
func (s *Settings) Map() (map[string]any, error) {
	data, err := toml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding settings: %w", err)
	}
	return loader.Parse("<settings>", loader.FormatTOML, data)
}

// Decode builds settings from a merged configuration map.
func Decode(data map[string]any) (*Settings, error) {
	raw, err := toml.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}

	var s Settings
	if err := toml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &s, nil
}

// Validate checks every setting and returns ValidationErrors listing all
// failures.
func (s *Settings) Validate() error {
	var errs ValidationErrors
	fail := func(path, msg string, v any) {
		errs = append(errs, &ValidationError{Path: path, Message: msg, Value: v})
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(s.Logging.Level)) {
		fail("logging.level", "must be debug, info, warn or error", s.Logging.Level)
	}

	if s.Debug.RequestTimeoutMs <= 0 {
		fail("debug.requestTimeoutMs", "must be positive", s.Debug.RequestTimeoutMs)
	}
	if s.Debug.MaxDepth <= 0 {
		fail("debug.maxDepth", "must be positive", s.Debug.MaxDepth)
	}
	if s.Debug.MaxNodes <= 0 {
		fail("debug.maxNodes", "must be positive", s.Debug.MaxNodes)
	}

	for _, ext := range s.Hover.Extensions {
		if !strings.HasPrefix(ext, ".") {
			fail("hover.extensions", "must start with a dot", ext)
		}
	}
	if s.Hover.TimeoutMs <= 0 {
		fail("hover.timeoutMs", "must be positive", s.Hover.TimeoutMs)
	}

	if len(s.Inspect.Modes) == 0 {
		fail("inspect.modes", "must list at least one mode", s.Inspect.Modes)
	}
	for _, m := range s.Inspect.Modes {
		if _, err := registers.ParseMode(m); err != nil {
			fail("inspect.modes", err.Error(), m)
		}
	}
	if s.Inspect.Length <= 0 || s.Inspect.Length > MaxInspectLength {
		fail("inspect.length", fmt.Sprintf("must be between 1 and %d", MaxInspectLength), s.Inspect.Length)
	}
	if s.Inspect.RowWidth <= 0 {
		fail("inspect.rowWidth", "must be positive", s.Inspect.RowWidth)
	}

	if s.Plugin.TimeoutMs <= 0 {
		fail("plugin.timeoutMs", "must be positive", s.Plugin.TimeoutMs)
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Modes returns the parsed inspect modes, skipping invalid entries.
func (s *Settings) Modes() []registers.Mode {
	modes := make([]registers.Mode, 0, len(s.Inspect.Modes))
	for _, name := range s.Inspect.Modes {
		if m, err := registers.ParseMode(name); err == nil {
			modes = append(modes, m)
		}
	}
	return modes
}

// RequestTimeout returns the DAP request timeout.
func (s *Settings) RequestTimeout() time.Duration {
	return time.Duration(s.Debug.RequestTimeoutMs) * time.Millisecond
}

// HoverTimeout returns the per-hover timeout.
func (s *Settings) HoverTimeout() time.Duration {
	return time.Duration(s.Hover.TimeoutMs) * time.Millisecond
}

// HookTimeout returns the Lua hook execution timeout.
func (s *Settings) HookTimeout() time.Duration {
	return time.Duration(s.Plugin.TimeoutMs) * time.Millisecond
}
