package lua

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// ModuleName is the module hook scripts can require for register helpers.
const ModuleName = "reghover"

// Sandbox restricts Lua execution to pure computation: no files, no
// processes, no module loading from disk.
type Sandbox struct {
	L *lua.LState

	printer func(string)
}

// NewSandbox creates a sandbox for L. Output of print goes to printer, or
// is discarded when printer is nil.
func NewSandbox(L *lua.LState, printer func(string)) *Sandbox {
	return &Sandbox{L: L, printer: printer}
}

// Install applies the sandbox restrictions.
func (s *Sandbox) Install() {
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		s.L.SetGlobal(name, lua.LNil)
	}

	s.installPrint()
	s.installSafeRequire()
}

// installPrint replaces print so output reaches the application log
// instead of stdout.
func (s *Sandbox) installPrint() {
	s.L.SetGlobal("print", s.L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		if s.printer != nil {
			s.printer(strings.Join(parts, "\t"))
		}
		return 0
	}))
}

// installSafeRequire clears the search paths and only lets require load
// built-in safe modules and the preloaded helper module.
func (s *Sandbox) installSafeRequire() {
	if pkg, ok := s.L.GetGlobal("package").(*lua.LTable); ok {
		s.L.SetField(pkg, "path", lua.LString(""))
		s.L.SetField(pkg, "cpath", lua.LString(""))
	}

	allowed := map[string]bool{
		"string":   true,
		"table":    true,
		"math":     true,
		ModuleName: true,
	}

	originalRequire := s.L.GetGlobal("require")
	s.L.SetGlobal("require", s.L.NewFunction(func(L *lua.LState) int {
		modName := L.CheckString(1)
		if !allowed[modName] {
			L.RaiseError("module %q is not available", modName)
			return 0
		}
		L.Push(originalRequire)
		L.Push(lua.LString(modName))
		L.Call(1, 1)
		return 1
	}))
}
