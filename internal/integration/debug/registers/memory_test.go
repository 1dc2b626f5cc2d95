package registers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/reghover/internal/integration/debug"
	"github.com/dshills/reghover/internal/integration/debug/dap"
)

// gdbCharLiteral renders b the way gdb's x/c prints it.
func gdbCharLiteral(b byte) string {
	switch b {
	case '\\':
		return `'\\'`
	case '\'':
		return `'\''`
	case '\n':
		return `'\n'`
	case '\t':
		return `'\t'`
	case 0x1b:
		return `'\033'`
	}
	if b >= 32 && b <= 126 {
		return "'" + string(rune(b)) + "'"
	}
	if b%2 == 0 {
		return fmt.Sprintf(`'\%03o'`, b)
	}
	return fmt.Sprintf(`'\x%02x'`, b)
}

func TestParseWindowCharAllBytes(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 256; i++ {
		if i%8 == 0 {
			fmt.Fprintf(&sb, "\n0x%x <buf+%d>:", 0x402000+i, i)
		}
		fmt.Fprintf(&sb, "\t%d %s", int8(i), gdbCharLiteral(byte(i)))
	}

	w, ok := ParseWindow(sb.String(), ModeChar)
	require.True(t, ok)
	require.Len(t, w.Cells, 256)

	for i, cell := range w.Cells {
		b := byte(i)
		assert.Equal(t, b, cell.Byte, "byte %d", i)
		if b >= 32 && b <= 126 {
			assert.Equal(t, string(rune(b)), cell.Text, "byte %d", i)
		} else {
			assert.Equal(t, fmt.Sprintf(" /x%02X ", b), cell.Text, "byte %d", i)
		}
	}
}

func TestParseWindowChar(t *testing.T) {
	raw := "0x402000 <msg>:\t72 'H'\t105 'i'\t1 '\\001'\t10 '\\n'"

	w, ok := ParseWindow(raw, ModeChar)
	require.True(t, ok)
	assert.Equal(t, "Hi /x01  /x0A ", w.String())
	assert.Equal(t, []byte{'H', 'i', 1, '\n'}, w.Bytes())
}

func TestParseWindowHex(t *testing.T) {
	raw := "0x7fffffffe3b0:\t0x48\t0x65\t0x6c\t0x0\n0x7fffffffe3b4 <buf+4>:\t0xff"

	w, ok := ParseWindow(raw, ModeHex)
	require.True(t, ok)
	assert.Equal(t, "48 65 6C 00 FF", w.String())
}

func TestParseWindowCannotAccess(t *testing.T) {
	for _, raw := range []string{
		"Cannot access memory at address 0x0",
		"0x0:\t0x01\nCannot access memory at address 0x1",
		"warning: cannot access memory at address 0xdead 'A'",
	} {
		w, ok := ParseWindow(raw, ModeChar)
		assert.False(t, ok, raw)
		assert.True(t, w.Empty())
		assert.Empty(t, w.String())
	}
}

func TestWindowLines(t *testing.T) {
	var raw strings.Builder
	raw.WriteString("0x1000:")
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&raw, "\t0x%x", i)
	}

	w, ok := ParseWindow(raw.String(), ModeHex)
	require.True(t, ok)

	lines := w.Lines(16)
	require.Len(t, lines, 3)
	assert.Len(t, strings.Fields(lines[0]), 16)
	assert.Len(t, strings.Fields(lines[1]), 16)
	assert.Len(t, strings.Fields(lines[2]), 8)
	assert.True(t, strings.HasPrefix(lines[1], "10 11"))

	assert.Nil(t, Window{}.Lines(16))
	assert.Equal(t, []string{w.String()}, w.Lines(0))
}

func TestDecodeLiteral(t *testing.T) {
	tests := map[string][]byte{
		"A":      {'A'},
		`\n`:     {'\n'},
		`\\`:     {'\\'},
		`\'`:     {'\''},
		`\000`:   {0},
		`\377`:   {0xff},
		`\x7f`:   {0x7f},
		`\e`:     {27},
		`\q`:     {'q'},
		"\u00e9": {0xc3, 0xa9},
	}
	for in, want := range tests {
		assert.Equal(t, want, decodeLiteral(in), in)
	}
}

func TestAddressOf(t *testing.T) {
	assert.Equal(t, "0x401000", AddressOf("0x401000 <_start+5>"))
	assert.Equal(t, "0x2A", AddressOf("  0x2A "))
	assert.Equal(t, "", AddressOf(""))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("hex")
	require.NoError(t, err)
	assert.Equal(t, ModeHex, m)

	m, err = ParseMode("C")
	require.NoError(t, err)
	assert.Equal(t, ModeChar, m)
	assert.Equal(t, "character bytes", m.Label())

	_, err = ParseMode("float")
	assert.Error(t, err)
}

// fakeCommander records raw backend commands.
type fakeCommander struct {
	commands []string
	reply    string
	result   debug.Result
}

func (f *fakeCommander) SendBackendCommand(_ context.Context, raw string) (*dap.EvaluateResponseBody, debug.Result) {
	f.commands = append(f.commands, raw)
	if !f.result.OK() {
		return nil, f.result
	}
	return &dap.EvaluateResponseBody{Result: f.reply}, debug.OK
}

func TestInspectorSendsExamineCommand(t *testing.T) {
	fc := &fakeCommander{reply: "0x2a:\t0x01\t0x02"}
	in := NewInspector(NewGDBBackend(fc), nil)

	w, res := in.Inspect(context.Background(), ModeHex, 2, "0x2a <sym>")
	require.True(t, res.OK(), res.String())
	assert.Equal(t, []string{"x/2xb 0x2a"}, fc.commands)
	assert.Equal(t, "01 02", w.String())
}

func TestInspectorMemoryUnavailable(t *testing.T) {
	fc := &fakeCommander{reply: "Cannot access memory at address 0x2a"}
	in := NewInspector(NewGDBBackend(fc), nil)

	w, res := in.Inspect(context.Background(), ModeChar, 16, "0x2a")
	assert.Equal(t, debug.Degraded(debug.KindMemoryUnavailable), res)
	assert.Equal(t, "", w.String())
}

// unmappedSession is a cppdbg session whose evaluate requests fail the way
// gdb rejects an unmapped address.
type unmappedSession struct{}

func (unmappedSession) ID() string   { return "s1" }
func (unmappedSession) Type() string { return "cppdbg" }

func (unmappedSession) CustomRequest(context.Context, string, interface{}) (json.RawMessage, error) {
	return nil, &dap.ResponseError{Command: "evaluate", Message: "Cannot access memory at address 0x2a"}
}

type countingNotifier struct{ warnings int }

func (n *countingNotifier) Warn(string)   { n.warnings++ }
func (n *countingNotifier) Status(string) {}

func TestInspectorUnmappedAddressThroughGateway(t *testing.T) {
	reg := debug.NewRegistry()
	reg.Add(unmappedSession{})
	n := &countingNotifier{}
	in := NewInspector(NewGDBBackend(debug.NewGateway(reg, debug.WithNotifier(n))), nil)

	w, res := in.Inspect(context.Background(), ModeHex, 32, "0x2a")
	assert.Equal(t, debug.Degraded(debug.KindMemoryUnavailable), res)
	assert.True(t, w.Empty())
	assert.Zero(t, n.warnings)
}

func TestInspectorBackendFailures(t *testing.T) {
	for _, r := range []debug.Result{
		debug.Degraded(debug.KindUnsupportedBackend),
		debug.Degraded(debug.KindNoActiveSession),
		debug.Failed(debug.KindAdapterRequestFailure, fmt.Errorf("boom")),
	} {
		fc := &fakeCommander{result: r}
		in := NewInspector(NewGDBBackend(fc), nil)

		w, res := in.Inspect(context.Background(), ModeHex, 4, "0x10")
		assert.Equal(t, r, res)
		assert.True(t, w.Empty())
	}
}

func TestInspectorRejectsBadInput(t *testing.T) {
	fc := &fakeCommander{reply: "0x0:\t0x1"}
	in := NewInspector(NewGDBBackend(fc), nil)

	_, res := in.Inspect(context.Background(), ModeHex, 0, "0x10")
	assert.ErrorIs(t, res.Err, ErrInvalidLength)

	_, res = in.Inspect(context.Background(), ModeHex, 4, "   ")
	assert.ErrorIs(t, res.Err, ErrEmptyAddress)

	assert.Empty(t, fc.commands)
}

func TestParseInfoRegisters(t *testing.T) {
	text := "rax            0x1c                28\n" +
		"rip            0x401000            0x401000 <_start>\n" +
		"eflags         0x246               [ IF ZF PF ]\n" +
		"\n"

	assert.Equal(t, map[string]string{
		"rax":    "0x1c",
		"rip":    "0x401000",
		"eflags": "0x246",
	}, ParseInfoRegisters(text))
}

func TestGDBBackendListRegisters(t *testing.T) {
	fc := &fakeCommander{reply: "rbx 0x5 5"}
	regs, res := NewGDBBackend(fc).ListRegisters(context.Background())

	require.True(t, res.OK())
	assert.Equal(t, map[string]string{"rbx": "0x5"}, regs)
	assert.Equal(t, []string{"info registers"}, fc.commands)
}
