package lua

import (
	"testing"

	glua "github.com/yuin/gopher-lua"
)

func TestSandboxRemovesLoaders(t *testing.T) {
	state := NewState()
	defer state.Close()

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		if state.GetGlobal(name) != glua.LNil {
			t.Errorf("%s should be removed", name)
		}
	}
}

func TestSandboxLibraries(t *testing.T) {
	state := NewState()
	defer state.Close()

	for _, name := range []string{"io", "os", "debug"} {
		if state.GetGlobal(name) != glua.LNil {
			t.Errorf("%s library should not be opened", name)
		}
	}
	for _, name := range []string{"string", "table", "math"} {
		if state.GetGlobal(name) == glua.LNil {
			t.Errorf("%s library should be opened", name)
		}
	}
}

func TestSandboxRequire(t *testing.T) {
	state := NewState()
	defer state.Close()

	if err := state.DoString(`local s = require("string"); r = s.upper("ok")`); err != nil {
		t.Fatalf("require(string) error = %v", err)
	}
	if got := state.GetGlobal("r"); got != glua.LString("OK") {
		t.Errorf("r = %v, want OK", got)
	}

	for _, mod := range []string{"os", "io", "socket", "./evil"} {
		if err := state.DoString(`require("` + mod + `")`); err == nil {
			t.Errorf("require(%q) should fail", mod)
		}
	}
}

func TestSandboxPrint(t *testing.T) {
	var got []string
	state := NewState(WithPrinter(func(s string) { got = append(got, s) }))
	defer state.Close()

	if err := state.DoString(`print("rax", 42, true)`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	if len(got) != 1 || got[0] != "rax\t42\ttrue" {
		t.Errorf("printed %q, want [\"rax\\t42\\ttrue\"]", got)
	}

	silent := NewState()
	defer silent.Close()
	if err := silent.DoString(`print("dropped")`); err != nil {
		t.Errorf("print without printer error = %v", err)
	}
}
