// Package adapters provides debug adapter configurations for native code
// debuggers that can report x86 registers.
package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"
)

// AdapterType identifies a debug adapter.
type AdapterType string

const (
	// AdapterGDB is GDB's built-in DAP interpreter (gdb -i dap).
	AdapterGDB AdapterType = "gdb"
	// AdapterCppdbg is the cpptools MI engine (OpenDebugAD7) driving gdb.
	AdapterCppdbg AdapterType = "cppdbg"
	// AdapterLLDB is lldb-dap.
	AdapterLLDB AdapterType = "lldb"
)

// BackendCommandPrefixes returns the adapter types that accept raw GDB
// commands through the evaluate request, mapped to the prefix each one
// needs in front of the command text.
func BackendCommandPrefixes() map[string]string {
	return map[string]string{
		string(AdapterCppdbg): "-exec ",
		string(AdapterGDB):    "",
	}
}

// Config is the base configuration for a debug adapter.
type Config struct {
	// Type is the adapter type.
	Type AdapterType `json:"type" yaml:"type"`

	// Name is a human-readable name for this configuration.
	Name string `json:"name" yaml:"name"`

	// Request is the request type: "launch" or "attach".
	Request string `json:"request" yaml:"request"`

	// Program is the program to debug.
	Program string `json:"program,omitempty" yaml:"program,omitempty"`

	// Args are the program arguments.
	Args []string `json:"args,omitempty" yaml:"args,omitempty"`

	// Cwd is the working directory.
	Cwd string `json:"cwd,omitempty" yaml:"cwd,omitempty"`

	// Env are additional environment variables.
	Env map[string]string `json:"env,omitempty" yaml:"env,omitempty"`

	// StopOnEntry stops at the program entry point.
	StopOnEntry bool `json:"stopOnEntry,omitempty" yaml:"stopOnEntry,omitempty"`

	// Port is the port to connect to (for attach or socket adapter).
	Port int `json:"port,omitempty" yaml:"port,omitempty"`

	// Host is the host to connect to.
	Host string `json:"host,omitempty" yaml:"host,omitempty"`

	// ProcessID is the process ID to attach to.
	ProcessID int `json:"processId,omitempty" yaml:"processId,omitempty"`

	// Target is a remote target for attach (e.g. "localhost:1234" for gdbserver).
	Target string `json:"target,omitempty" yaml:"target,omitempty"`

	// AdapterPath is the path to the debug adapter executable.
	AdapterPath string `json:"adapterPath,omitempty" yaml:"adapterPath,omitempty"`

	// AdapterArgs are extra arguments for the adapter executable.
	AdapterArgs []string `json:"adapterArgs,omitempty" yaml:"adapterArgs,omitempty"`

	// DebuggerPath is the gdb binary used by MI-based adapters.
	DebuggerPath string `json:"debuggerPath,omitempty" yaml:"debuggerPath,omitempty"`

	// Extra holds adapter-specific launch/attach keys. Keys are sjson paths
	// and override generated values.
	Extra map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Adapter provides configuration and launch capabilities for a debug adapter.
type Adapter interface {
	// Type returns the adapter type.
	Type() AdapterType

	// Name returns a human-readable adapter name.
	Name() string

	// Validate validates the configuration.
	Validate() error

	// GetCommand returns the command to start the adapter.
	GetCommand() (*exec.Cmd, error)

	// GetLaunchArgs returns the arguments for the launch request.
	GetLaunchArgs() (json.RawMessage, error)

	// GetAttachArgs returns the arguments for the attach request.
	GetAttachArgs() (json.RawMessage, error)

	// GetConnectionType returns whether to use "stdio" or "socket".
	GetConnectionType() string

	// GetAddress returns the socket address (for socket connection).
	GetAddress() string
}

// Registry manages available debug adapters.
type Registry struct {
	adapters map[AdapterType]func(Config) (Adapter, error)
}

// NewRegistry creates a new adapter registry with default adapters.
func NewRegistry() *Registry {
	r := &Registry{
		adapters: make(map[AdapterType]func(Config) (Adapter, error)),
	}

	r.Register(AdapterGDB, NewGDBAdapter)
	r.Register(AdapterCppdbg, NewCppdbgAdapter)
	r.Register(AdapterLLDB, NewLLDBAdapter)

	return r
}

// Register registers an adapter factory.
func (r *Registry) Register(adapterType AdapterType, factory func(Config) (Adapter, error)) {
	r.adapters[adapterType] = factory
}

// Create creates an adapter from configuration.
func (r *Registry) Create(config Config) (Adapter, error) {
	factory, ok := r.adapters[config.Type]
	if !ok {
		return nil, fmt.Errorf("unknown adapter type: %s", config.Type)
	}
	return factory(config)
}

// AvailableAdapters returns the registered adapter types in sorted order.
func (r *Registry) AvailableAdapters() []AdapterType {
	result := make([]AdapterType, 0, len(r.adapters))
	for t := range r.adapters {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// FindExecutable searches for an executable in PATH.
func FindExecutable(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s not found in PATH: %w", name, err)
	}
	return path, nil
}

// validateRequest checks the launch/attach fields common to all adapters.
func validateRequest(c Config) error {
	switch c.Request {
	case "launch":
		if c.Program == "" {
			return fmt.Errorf("program is required for launch request")
		}
	case "attach":
		if c.ProcessID == 0 && c.Target == "" && c.Port == 0 {
			return fmt.Errorf("processId, target or port is required for attach request")
		}
	case "":
	default:
		return fmt.Errorf("invalid request type: %s", c.Request)
	}
	return nil
}

// buildCommand resolves the adapter binary and applies cwd/env from config.
func buildCommand(c Config, defaultBinary, hint string, args ...string) (*exec.Cmd, error) {
	path := c.AdapterPath
	if path == "" {
		var err error
		path, err = FindExecutable(defaultBinary)
		if err != nil {
			return nil, fmt.Errorf("%s: %w (%s)", defaultBinary, err, hint)
		}
	}

	cmd := exec.Command(path, append(args, c.AdapterArgs...)...)
	if c.Cwd != "" {
		cmd.Dir = c.Cwd
	}

	// Inherit parent environment and add/override with config values
	cmd.Env = os.Environ()
	for k, v := range c.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	return cmd, nil
}

// encodeArgs marshals generated request arguments and applies Extra.
func encodeArgs(c Config, args map[string]interface{}) (json.RawMessage, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal arguments: %w", err)
	}
	return ApplyExtra(raw, c.Extra)
}

func hostOrDefault(host string) string {
	if host != "" {
		return host
	}
	return "127.0.0.1"
}

func envList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

// IsAssemblySource reports whether filename looks like an x86 assembly file.
func IsAssemblySource(filename string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range []string{".asm", ".s", ".nasm", ".inc"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// WaitForPort waits for a port to become available by polling with connection attempts.
// It returns nil when the port is accepting connections, or an error if the context
// is cancelled or times out.
func WaitForPort(ctx context.Context, host string, port int) error {
	address := net.JoinHostPort(host, strconv.Itoa(port))
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for port %d: %w", port, ctx.Err())
		case <-ticker.C:
			conn, err := net.DialTimeout("tcp", address, 50*time.Millisecond)
			if err == nil {
				conn.Close()
				return nil
			}
		}
	}
}
