package lua

import (
	"fmt"
	"strconv"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/reghover/internal/hover"
	"github.com/dshills/reghover/internal/integration/debug/registers"
)

// HookFunction is the global a hook script defines.
const HookFunction = "on_hover"

// Hook runs a Lua script's on_hover(info) for every rendered hover. The
// function returns nil, a string, or a list of strings to append.
//
//	local rh = require("reghover")
//	function on_hover(info)
//	  if info.has_value then
//	    return "signed: " .. rh.signed(info.value, info.width)
//	  end
//	end
type Hook struct {
	state *State
}

// LoadHook loads a hook script from path.
func LoadHook(path string, opts ...StateOption) (*Hook, error) {
	return newHook(func(s *State) error { return s.DoFile(path) }, opts...)
}

// NewHook creates a hook from script source.
func NewHook(source string, opts ...StateOption) (*Hook, error) {
	return newHook(func(s *State) error { return s.DoString(source) }, opts...)
}

func newHook(load func(*State) error, opts ...StateOption) (*Hook, error) {
	state := NewState(opts...)
	state.Preload(ModuleName, loadModule)

	if err := load(state); err != nil {
		state.Close()
		return nil, fmt.Errorf("load hook: %w", err)
	}
	if !state.HasFunction(HookFunction) {
		state.Close()
		return nil, ErrNoHook
	}
	return &Hook{state: state}, nil
}

// OnHover implements hover.Hook.
func (h *Hook) OnHover(info hover.Info) ([]string, error) {
	var lines []string
	err := h.state.run(func() error {
		L := h.state.L
		fn := L.GetGlobal(HookFunction)
		if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, infoTable(L, info)); err != nil {
			return err
		}
		ret := L.Get(-1)
		L.Pop(1)

		var err error
		lines, err = toLines(ret)
		return err
	})
	return lines, err
}

// Close releases the script state.
func (h *Hook) Close() error {
	return h.state.Close()
}

func infoTable(L *lua.LState, info hover.Info) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("name", lua.LString(info.Name))
	t.RawSetString("width", lua.LNumber(info.Width))
	t.RawSetString("arch_width", lua.LNumber(info.ArchWidth))
	t.RawSetString("attached", lua.LBool(info.Attached))
	t.RawSetString("has_value", lua.LBool(info.HasValue))
	t.RawSetString("value", lua.LString(info.Value))
	t.RawSetString("decimal", lua.LString(info.Decimal))
	t.RawSetString("inspecting", lua.LBool(info.Inspecting))
	t.RawSetString("mode", lua.LString(info.Mode))

	memory := L.NewTable()
	for _, line := range info.Memory {
		memory.Append(lua.LString(line))
	}
	t.RawSetString("memory", memory)
	return t
}

func toLines(v lua.LValue) ([]string, error) {
	switch v := v.(type) {
	case *lua.LNilType:
		return nil, nil
	case lua.LString:
		return []string{string(v)}, nil
	case *lua.LTable:
		var lines []string
		var bad bool
		v.ForEach(func(_, item lua.LValue) {
			s, ok := item.(lua.LString)
			if !ok {
				bad = true
				return
			}
			lines = append(lines, string(s))
		})
		if bad {
			return nil, ErrBadReturn
		}
		return lines, nil
	}
	return nil, fmt.Errorf("%w, got %s", ErrBadReturn, v.Type())
}

// loadModule builds the reghover helper module.
func loadModule(L *lua.LState) int {
	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"classify": func(L *lua.LState) int {
			L.Push(lua.LNumber(registers.Classify(L.CheckString(1))))
			return 1
		},
		"arch_width": func(L *lua.LState) int {
			w, ok := registers.ArchWidth(L.CheckString(1))
			if !ok {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(lua.LNumber(w))
			return 1
		},
		"parse_hex": func(L *lua.LState) int {
			n, ok := hover.ParseHex(L.CheckString(1))
			if !ok {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(lua.LString(strconv.FormatUint(n, 10)))
			return 1
		},
		"signed": func(L *lua.LState) int {
			n, ok := hover.ParseHex(L.CheckString(1))
			width := L.OptInt(2, 8)
			if !ok || width < 1 || width > 8 {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(lua.LString(strconv.FormatInt(signExtend(n, width), 10)))
			return 1
		},
	})
	L.Push(mod)
	return 1
}

// signExtend interprets the low width bytes of n as a signed integer.
func signExtend(n uint64, width int) int64 {
	shift := uint(64 - 8*width)
	return int64(n<<shift) >> shift
}
