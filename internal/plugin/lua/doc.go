// Package lua runs user hover hooks written in Lua.
//
// A hook script defines a global on_hover(info) function. It is called
// once per rendered register hover with a table describing the hover and
// may return nil, a string, or a list of strings. Returned lines are
// appended to the hover card.
//
// # State
//
// State wraps a gopher-lua state with only the base, package, table,
// string and math libraries opened. Every call runs under a mutex with
// an execution timeout:
//
//	state := lua.NewState(lua.WithExecutionTimeout(200 * time.Millisecond))
//	defer state.Close()
//
// # Sandbox
//
// The Sandbox removes dofile, loadfile, load and loadstring, clears the
// package search paths, and routes print to a caller-supplied printer.
// require only resolves the safe built-ins and the reghover helper module:
//
//	local rh = require("reghover")
//	rh.classify("eax")        -- 4
//	rh.arch_width("rsi")      -- 8
//	rh.parse_hex("0x2a")      -- "42"
//	rh.signed("0xff", 1)      -- "-1"
package lua
