package registers

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/dshills/reghover/internal/integration/debug"
	"github.com/dshills/reghover/internal/integration/debug/dap"
)

// BackendCommander runs raw debugger commands. *debug.Gateway implements it.
type BackendCommander interface {
	SendBackendCommand(ctx context.Context, raw string) (*dap.EvaluateResponseBody, debug.Result)
}

// GDBBackend reads memory and registers with gdb console commands.
type GDBBackend struct {
	commander BackendCommander
}

// NewGDBBackend creates a backend that issues gdb commands through commander.
func NewGDBBackend(commander BackendCommander) *GDBBackend {
	return &GDBBackend{commander: commander}
}

// ExamineCommand returns the gdb command reading length units at addr.
func ExamineCommand(addr string, length int, mode Mode) string {
	return fmt.Sprintf("x/%d%s %s", length, mode, addr)
}

// ReadMemory implements MemoryBackend.
func (g *GDBBackend) ReadMemory(ctx context.Context, addr string, length int, mode Mode) (string, debug.Result) {
	body, res := g.commander.SendBackendCommand(ctx, ExamineCommand(addr, length, mode))
	if !res.OK() {
		return "", res
	}
	return body.Result, debug.OK
}

// ListRegisters implements RegisterLister using "info registers".
func (g *GDBBackend) ListRegisters(ctx context.Context) (map[string]string, debug.Result) {
	body, res := g.commander.SendBackendCommand(ctx, "info registers")
	if !res.OK() {
		return nil, res
	}
	return ParseInfoRegisters(body.Result), debug.OK
}

// ParseInfoRegisters parses gdb "info registers" output. Each line holds a
// name, the raw value and gdb's natural rendering:
//
//	rax            0x1c                28
//	rip            0x401000            0x401000 <_start>
func ParseInfoRegisters(text string) map[string]string {
	values := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		values[strings.ToLower(fields[0])] = fields[1]
	}
	return values
}
