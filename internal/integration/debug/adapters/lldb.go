package adapters

import (
	"encoding/json"
	"fmt"
	"net"
	"os/exec"
	"strconv"
)

// LLDBAdapter drives lldb-dap. It reports registers through scopes but does
// not accept gdb memory commands.
type LLDBAdapter struct {
	config Config
}

// NewLLDBAdapter creates a new lldb-dap adapter.
func NewLLDBAdapter(config Config) (Adapter, error) {
	return &LLDBAdapter{config: config}, nil
}

// Type returns the adapter type.
func (a *LLDBAdapter) Type() AdapterType {
	return AdapterLLDB
}

// Name returns a human-readable adapter name.
func (a *LLDBAdapter) Name() string {
	return "LLDB (lldb-dap)"
}

// Validate validates the configuration.
func (a *LLDBAdapter) Validate() error {
	return validateRequest(a.config)
}

// GetCommand returns the command to start the adapter.
func (a *LLDBAdapter) GetCommand() (*exec.Cmd, error) {
	var args []string
	if a.config.Port > 0 && a.config.Request != "attach" {
		args = append(args, "--connection", fmt.Sprintf("listen://%s", a.GetAddress()))
	}
	return buildCommand(a.config, "lldb-dap", "install LLDB 18 or newer", args...)
}

// GetLaunchArgs returns the arguments for the launch request.
func (a *LLDBAdapter) GetLaunchArgs() (json.RawMessage, error) {
	args := map[string]interface{}{
		"program":     a.config.Program,
		"stopOnEntry": a.config.StopOnEntry,
	}
	if len(a.config.Args) > 0 {
		args["args"] = a.config.Args
	}
	if a.config.Cwd != "" {
		args["cwd"] = a.config.Cwd
	}
	if len(a.config.Env) > 0 {
		args["env"] = envList(a.config.Env)
	}
	return encodeArgs(a.config, args)
}

// GetAttachArgs returns the arguments for the attach request.
func (a *LLDBAdapter) GetAttachArgs() (json.RawMessage, error) {
	args := map[string]interface{}{
		"stopOnEntry": a.config.StopOnEntry,
	}
	if a.config.ProcessID > 0 {
		args["pid"] = a.config.ProcessID
	}
	if a.config.Program != "" {
		args["program"] = a.config.Program
	}
	if port, err := strconv.Atoi(a.config.Target); err == nil {
		args["gdb-remote-port"] = port
	}
	return encodeArgs(a.config, args)
}

// GetConnectionType returns whether to use "stdio" or "socket".
func (a *LLDBAdapter) GetConnectionType() string {
	if a.config.Port > 0 {
		return "socket"
	}
	return "stdio"
}

// GetAddress returns the socket address (for socket connection).
func (a *LLDBAdapter) GetAddress() string {
	if a.config.Port > 0 {
		return net.JoinHostPort(hostOrDefault(a.config.Host), strconv.Itoa(a.config.Port))
	}
	return ""
}
