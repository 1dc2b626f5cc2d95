package adapters

import (
	"encoding/json"
	"os/exec"
	"sort"
)

// CppdbgAdapter drives the cpptools MI engine (OpenDebugAD7) with gdb as
// the backend. Raw gdb commands must be prefixed with "-exec".
type CppdbgAdapter struct {
	config Config
}

// NewCppdbgAdapter creates a new cppdbg adapter.
func NewCppdbgAdapter(config Config) (Adapter, error) {
	return &CppdbgAdapter{config: config}, nil
}

// Type returns the adapter type.
func (a *CppdbgAdapter) Type() AdapterType {
	return AdapterCppdbg
}

// Name returns a human-readable adapter name.
func (a *CppdbgAdapter) Name() string {
	return "cpptools (gdb via MI)"
}

// Validate validates the configuration.
func (a *CppdbgAdapter) Validate() error {
	return validateRequest(a.config)
}

// GetCommand returns the command to start the adapter.
func (a *CppdbgAdapter) GetCommand() (*exec.Cmd, error) {
	return buildCommand(a.config, "OpenDebugAD7", "install the cpptools debug adapter")
}

func (a *CppdbgAdapter) common() map[string]interface{} {
	args := map[string]interface{}{
		"MIMode": "gdb",
		"setupCommands": []map[string]interface{}{
			{"text": "-enable-pretty-printing", "ignoreFailures": true},
		},
	}
	if a.config.DebuggerPath != "" {
		args["miDebuggerPath"] = a.config.DebuggerPath
	}
	if a.config.Target != "" {
		args["miDebuggerServerAddress"] = a.config.Target
	}
	return args
}

// GetLaunchArgs returns the arguments for the launch request.
func (a *CppdbgAdapter) GetLaunchArgs() (json.RawMessage, error) {
	args := a.common()
	args["program"] = a.config.Program
	args["stopAtEntry"] = a.config.StopOnEntry
	args["args"] = nonNil(a.config.Args)
	if a.config.Cwd != "" {
		args["cwd"] = a.config.Cwd
	}

	keys := make([]string, 0, len(a.config.Env))
	for k := range a.config.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	environment := make([]map[string]string, 0, len(keys))
	for _, k := range keys {
		environment = append(environment, map[string]string{"name": k, "value": a.config.Env[k]})
	}
	args["environment"] = environment

	return encodeArgs(a.config, args)
}

// GetAttachArgs returns the arguments for the attach request.
func (a *CppdbgAdapter) GetAttachArgs() (json.RawMessage, error) {
	args := a.common()
	if a.config.Program != "" {
		args["program"] = a.config.Program
	}
	if a.config.ProcessID > 0 {
		args["processId"] = a.config.ProcessID
	}
	return encodeArgs(a.config, args)
}

// GetConnectionType returns whether to use "stdio" or "socket".
func (a *CppdbgAdapter) GetConnectionType() string {
	return "stdio"
}

// GetAddress returns the socket address (for socket connection).
func (a *CppdbgAdapter) GetAddress() string {
	return ""
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
