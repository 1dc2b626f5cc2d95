package app

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func runScript(t *testing.T, ta *testApp, script string) string {
	t.Helper()
	out := &syncBuffer{}
	repl := NewREPL(ta.Application, strings.NewReader(script), out)
	if err := repl.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return out.String()
}

func TestREPLHoverSession(t *testing.T) {
	ta := newTestApp(t, false, map[string]string{"start.asm": startAsm})

	script := strings.Join([]string{
		"open " + ta.path("start.asm"),
		"hover 2 10",
		"hover 1 1",
		"# comment",
		"",
		"quit",
		"hover 2 10",
	}, "\n")
	out := runScript(t, ta, script)

	want := []string{
		"start.asm: 4 lines",
		"[8] **RAX**",
		"no register at 1:1",
	}
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
	if strings.Count(out, "**RAX**") != 1 {
		t.Errorf("commands after quit should not run:\n%s", out)
	}
}

func TestREPLInspectNeedsHover(t *testing.T) {
	ta := newTestApp(t, false, map[string]string{"start.asm": startAsm})

	runScript(t, ta, "inspect\nmode\n")
	if got := ta.Console().LastStatus(); got != "Hover a register to change the display mode" {
		t.Errorf("LastStatus() = %q", got)
	}
	if ta.Controller().State().Inspecting {
		t.Error("inspect without a hover should be a no-op")
	}

	runScript(t, ta, "open "+ta.path("start.asm")+"\nhover 2 10\ninspect\n")
	if !ta.Controller().State().Inspecting {
		t.Error("inspect after a hover should turn inspection on")
	}

	runScript(t, ta, "select\ninspect\n")
	if !ta.Controller().State().Inspecting {
		t.Error("inspect after select should leave inspection unchanged")
	}
}

func TestREPLErrors(t *testing.T) {
	ta := newTestApp(t, false, map[string]string{"main.go": "package main\n"})

	out := runScript(t, ta, strings.Join([]string{
		"bogus",
		"hover 1",
		"hover 1 1",
		"open " + ta.path("main.go"),
		"raw threads",
		"raw evaluate {not json}",
		"x 0x1000",
		"regs backend",
		"stop",
	}, "\n"))

	want := []string{
		`error: unknown command: "bogus"`,
		"error: usage: hover <line> <col>",
		"error: no active document",
		"main.go: not an assembly file",
		"error: no active debug session",
		"error: arguments are not valid JSON",
		"_not inspectable_",
		"error: the active session does not accept backend commands",
		"error: no debug session started",
	}
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
}

func TestREPLExecute(t *testing.T) {
	ta := newTestApp(t, false, nil)
	repl := NewREPL(ta.Application, strings.NewReader(""), &syncBuffer{})

	tests := []struct {
		line string
		want error
	}{
		{"q", ErrQuit},
		{"exit", ErrQuit},
		{"  ", nil},
		{"nope", ErrUnknownCommand},
		{"open", ErrUsage},
		{"x", ErrUsage},
		{"x 0x10 zero", ErrUsage},
		{"start a b", ErrUsage},
		{"regs a b", ErrUsage},
		{"raw", ErrUsage},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			err := repl.Execute(context.Background(), tt.line)
			if tt.want == nil {
				if err != nil {
					t.Errorf("Execute(%q) error = %v", tt.line, err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Execute(%q) error = %v, want %v", tt.line, err, tt.want)
			}
		})
	}
}

func TestREPLHelpAndStatus(t *testing.T) {
	ta := newTestApp(t, false, nil)
	out := runScript(t, ta, "help\nstatus\nprofiles\nregs\n")

	for _, w := range []string{
		"hover <line> <col>",
		"raw <command> [json] [| path]",
		"session:   none",
		"document:  none",
		"cache:     0 registers",
		"no launch profiles",
		"no registers",
	} {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
}

func TestREPLContextCancel(t *testing.T) {
	ta := newTestApp(t, false, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repl := NewREPL(ta.Application, blockingReader{}, &syncBuffer{})
	if err := repl.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

// blockingReader never returns data.
type blockingReader struct{}

func (blockingReader) Read([]byte) (int, error) {
	select {}
}
