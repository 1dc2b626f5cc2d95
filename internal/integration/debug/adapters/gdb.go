package adapters

import (
	"encoding/json"
	"os/exec"
)

// GDBAdapter drives GDB's built-in DAP interpreter (GDB 14+).
type GDBAdapter struct {
	config Config
}

// NewGDBAdapter creates a new GDB adapter.
func NewGDBAdapter(config Config) (Adapter, error) {
	return &GDBAdapter{config: config}, nil
}

// Type returns the adapter type.
func (a *GDBAdapter) Type() AdapterType {
	return AdapterGDB
}

// Name returns a human-readable adapter name.
func (a *GDBAdapter) Name() string {
	return "GDB (native DAP)"
}

// Validate validates the configuration.
func (a *GDBAdapter) Validate() error {
	return validateRequest(a.config)
}

// GetCommand returns the command to start the adapter.
func (a *GDBAdapter) GetCommand() (*exec.Cmd, error) {
	return buildCommand(a.config, "gdb", "GDB 14 or newer is required", "--interpreter=dap", "--quiet")
}

// GetLaunchArgs returns the arguments for the launch request.
func (a *GDBAdapter) GetLaunchArgs() (json.RawMessage, error) {
	args := map[string]interface{}{
		"program": a.config.Program,
	}
	if len(a.config.Args) > 0 {
		args["args"] = a.config.Args
	}
	if a.config.Cwd != "" {
		args["cwd"] = a.config.Cwd
	}
	if len(a.config.Env) > 0 {
		args["env"] = a.config.Env
	}
	if a.config.StopOnEntry {
		args["stopAtBeginningOfMainSubprogram"] = true
	}
	return encodeArgs(a.config, args)
}

// GetAttachArgs returns the arguments for the attach request.
func (a *GDBAdapter) GetAttachArgs() (json.RawMessage, error) {
	args := map[string]interface{}{}
	if a.config.ProcessID > 0 {
		args["pid"] = a.config.ProcessID
	}
	if a.config.Target != "" {
		args["target"] = a.config.Target
	}
	if a.config.Program != "" {
		args["program"] = a.config.Program
	}
	return encodeArgs(a.config, args)
}

// GetConnectionType returns whether to use "stdio" or "socket".
func (a *GDBAdapter) GetConnectionType() string {
	return "stdio"
}

// GetAddress returns the socket address (for socket connection).
func (a *GDBAdapter) GetAddress() string {
	return ""
}
