package registers

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dshills/reghover/internal/integration/debug"
)

// Mode is a gdb examine format for memory windows.
type Mode string

const (
	// ModeHex shows each byte as two hex digits.
	ModeHex Mode = "xb"
	// ModeChar shows printable bytes as characters and escapes the rest.
	ModeChar Mode = "c"
)

// DefaultModes is the display mode cycle, in order.
var DefaultModes = []Mode{ModeHex, ModeChar}

// Label returns a human-readable mode name.
func (m Mode) Label() string {
	switch m {
	case ModeHex:
		return "hex bytes"
	case ModeChar:
		return "character bytes"
	default:
		return string(m)
	}
}

// IsChar reports whether the mode renders character literals.
func (m Mode) IsChar() bool {
	return strings.HasSuffix(string(m), "c")
}

// ParseMode parses a mode name or gdb format letter.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "xb", "x", "hex":
		return ModeHex, nil
	case "c", "char", "chars":
		return ModeChar, nil
	}
	return "", fmt.Errorf("unknown memory mode %q", s)
}

// MemoryBackend reads a raw memory dump in a backend's text format.
type MemoryBackend interface {
	ReadMemory(ctx context.Context, addr string, length int, mode Mode) (string, debug.Result)
}

// RegisterLister lists register values straight from the backend.
type RegisterLister interface {
	ListRegisters(ctx context.Context) (map[string]string, debug.Result)
}

// Cell is one displayed byte of a memory window.
type Cell struct {
	Byte byte
	Text string
}

// Window is a formatted memory window.
type Window struct {
	Mode   Mode
	Cells []Cell
}

// Empty reports whether the window holds no bytes.
func (w Window) Empty() bool {
	return len(w.Cells) == 0
}

// Bytes returns the decoded byte values.
func (w Window) Bytes() []byte {
	out := make([]byte, len(w.Cells))
	for i, t := range w.Cells {
		out[i] = t.Byte
	}
	return out
}

// String renders the whole window on one line.
func (w Window) String() string {
	return w.join(w.Cells)
}

// Lines renders the window in rows of width cells.
func (w Window) Lines(width int) []string {
	if w.Empty() {
		return nil
	}
	if width <= 0 {
		return []string{w.String()}
	}

	lines := make([]string, 0, (len(w.Cells)+width-1)/width)
	for start := 0; start < len(w.Cells); start += width {
		end := start + width
		if end > len(w.Cells) {
			end = len(w.Cells)
		}
		lines = append(lines, w.join(w.Cells[start:end]))
	}
	return lines
}

func (w Window) join(cells []Cell) string {
	var sb strings.Builder
	for i, t := range cells {
		if i > 0 && !w.Mode.IsChar() {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.Text)
	}
	return sb.String()
}

// Inspector reads formatted memory windows through a backend.
type Inspector struct {
	backend MemoryBackend
	logger  debug.Logger
}

// NewInspector creates an inspector over backend.
func NewInspector(backend MemoryBackend, logger debug.Logger) *Inspector {
	if logger == nil {
		logger = debug.NopLogger
	}
	return &Inspector{backend: backend, logger: logger}
}

// Inspect reads length units at addr and formats them for mode. The window
// is empty whenever the result is not OK.
func (i *Inspector) Inspect(ctx context.Context, mode Mode, length int, addr string) (Window, debug.Result) {
	addr = AddressOf(addr)
	switch {
	case length <= 0:
		return Window{Mode: mode}, debug.Result{Status: debug.StatusDegraded, Kind: debug.KindMemoryUnavailable, Err: ErrInvalidLength}
	case addr == "":
		return Window{Mode: mode}, debug.Result{Status: debug.StatusDegraded, Kind: debug.KindMemoryUnavailable, Err: ErrEmptyAddress}
	}

	raw, res := i.backend.ReadMemory(ctx, addr, length, mode)
	if !res.OK() {
		return Window{Mode: mode}, res
	}

	w, ok := ParseWindow(raw, mode)
	if !ok {
		i.logger.Debug("memory at %s is not accessible", addr)
		return w, debug.Degraded(debug.KindMemoryUnavailable)
	}
	return w, debug.OK
}

// AddressOf returns the address expression in a register value, dropping
// any symbol annotation: "0x401000 <_start+5>" becomes "0x401000".
func AddressOf(value string) string {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

var (
	// "0x401000 <_start+16>:" at the start of each dump line
	addressPrefix = regexp.MustCompile(`0x[0-9a-fA-F]+(?:\s*<[^>\n]*>)?:`)
	hexByte       = regexp.MustCompile(`0x[0-9a-fA-F]+`)
	charLiteral   = regexp.MustCompile(`'(\\[0-7]{1,3}|\\x[0-9a-fA-F]{1,2}|\\.|[^'\\])'`)
)

// ParseWindow formats a raw examine dump. It returns false when the
// backend reported the memory as inaccessible.
func ParseWindow(raw string, mode Mode) (Window, bool) {
	w := Window{Mode: mode}
	if debug.CannotAccessMemory(raw) {
		return w, false
	}

	text := addressPrefix.ReplaceAllString(raw, " ")

	if mode.IsChar() {
		for _, m := range charLiteral.FindAllStringSubmatch(text, -1) {
			for _, b := range decodeLiteral(m[1]) {
				w.Cells = append(w.Cells, charCell(b))
			}
		}
		return w, true
	}

	for _, m := range hexByte.FindAllString(text, -1) {
		v, err := strconv.ParseUint(m[2:], 16, 64)
		if err != nil {
			continue
		}
		b := byte(v)
		w.Cells = append(w.Cells, Cell{Byte: b, Text: fmt.Sprintf("%02X", b)})
	}
	return w, true
}

func charCell(b byte) Cell {
	if b >= 32 && b <= 126 {
		return Cell{Byte: b, Text: string(rune(b))}
	}
	return Cell{Byte: b, Text: fmt.Sprintf(" /x%02X ", b)}
}

var simpleEscapes = map[byte]byte{
	'a': 7, 'b': 8, 't': 9, 'n': 10, 'v': 11, 'f': 12, 'r': 13, 'e': 27,
	'\\': '\\', '\'': '\'', '"': '"', '?': '?',
}

// decodeLiteral decodes the body of a C character literal as printed by
// gdb. A plain multi-byte character decodes to its UTF-8 bytes.
func decodeLiteral(lit string) []byte {
	if lit == "" || lit[0] != '\\' {
		return []byte(lit)
	}
	if len(lit) == 1 {
		return []byte{'\\'}
	}

	esc := lit[1:]
	switch {
	case esc[0] >= '0' && esc[0] <= '7':
		v, err := strconv.ParseUint(esc, 8, 16)
		if err != nil {
			return nil
		}
		return []byte{byte(v)}
	case esc[0] == 'x' && len(esc) > 1:
		v, err := strconv.ParseUint(esc[1:], 16, 8)
		if err != nil {
			return nil
		}
		return []byte{byte(v)}
	}
	if b, ok := simpleEscapes[esc[0]]; ok {
		return []byte{b}
	}
	return []byte{esc[0]}
}
