// Package debug connects reghover to a debugger over the Debug Adapter
// Protocol.
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│                      Gateway                                     │
//	│  - Resolves the active session through a SessionProvider         │
//	│  - Forwards generic requests (threads, stackTrace, ...)          │
//	│  - Sends raw gdb commands through evaluate/repl                  │
//	└─────────────────────────────────────────────────────────────────┘
//	                              │
//	                              ▼
//	┌─────────────────────────────────────────────────────────────────┐
//	│                      Session / Registry                          │
//	│  - One DAP client per adapter process                            │
//	│  - Registry tracks which session is active                       │
//	└─────────────────────────────────────────────────────────────────┘
//	                              │
//	                              ▼
//	┌─────────────────────────────────────────────────────────────────┐
//	│                      Debug Adapter                               │
//	│  - gdb -i dap, cpptools (OpenDebugAD7), lldb-dap                 │
//	└─────────────────────────────────────────────────────────────────┘
//
// # Results
//
// Gateway operations that feed the hover path return a Result instead of
// an error. A Result is OK, Degraded (an expected absence such as no
// active session or a backend that cannot run gdb commands), or an Error
// (the adapter failed a request). Only errors are shown to the user.
//
// # Backend Commands
//
// Adapters backed by gdb accept raw commands through the evaluate request
// in the "repl" context. cpptools requires the "-exec " prefix; gdb's own
// DAP interpreter takes the command as is. Other session types are
// skipped without warning.
//
// # Usage
//
//	reg := debug.NewRegistry()
//	gw := debug.NewGateway(reg, debug.WithNotifier(n), debug.WithLogger(l))
//
//	session, err := debug.NewStdioSession(cmd, "gdb")
//	if err != nil {
//	    return err
//	}
//	reg.Add(session)
//
//	body, res := gw.SendBackendCommand(ctx, "x/16xb $rsp")
//
// # Subpackages
//
//   - adapters: Launch configurations for gdb, cppdbg and lldb-dap
//   - dap: Debug Adapter Protocol types and client
//   - registers: Register classification, cache and memory inspection
package debug
