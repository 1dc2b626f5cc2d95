package app

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"golang.org/x/term"

	"github.com/dshills/reghover/internal/hover"
	"github.com/dshills/reghover/internal/integration/debug/registers"
)

// Prompt is the interactive prompt.
const Prompt = "reghover> "

// command is one REPL command.
type command struct {
	usage string
	help  string
	run   func(ctx context.Context, args []string) error
}

// REPL reads commands and runs them against the application.
type REPL struct {
	app *Application
	in  io.Reader
	out io.Writer

	commands map[string]command
	aliases  map[string]string

	// interactive is set when reading from a terminal.
	interactive bool
}

// NewREPL creates a command loop reading from in and writing to out.
func NewREPL(app *Application, in io.Reader, out io.Writer) *REPL {
	r := &REPL{
		app: app,
		in:  in,
		out: out,
		aliases: map[string]string{
			"h":    "hover",
			"i":    "inspect",
			"m":    "mode",
			"q":    "quit",
			"exit": "quit",
			"?":    "help",
		},
	}
	r.registerCommands()
	return r
}

func (r *REPL) registerCommands() {
	r.commands = map[string]command{
		"open":     {"open <file>", "open a source file and make it active", r.cmdOpen},
		"hover":    {"hover <line> <col>", "hover the register at a 1-based position", r.cmdHover},
		"select":   {"select", "move the selection, ending the active hover", r.cmdSelect},
		"inspect":  {"inspect", "toggle memory inspection for the active hover", r.cmdInspect},
		"mode":     {"mode", "cycle the memory display mode", r.cmdMode},
		"refresh":  {"refresh", "rebuild the register cache", r.cmdRefresh},
		"regs":     {"regs [backend]", "list cached registers, or ask the backend", r.cmdRegs},
		"x":        {"x <addr> [len] [mode]", "examine memory", r.cmdExamine},
		"raw":      {"raw <command> [json] [| path]", "send a DAP request", r.cmdRaw},
		"start":    {"start [profile]", "start a debug session", r.cmdStart},
		"stop":     {"stop", "stop the active debug session", r.cmdStop},
		"profiles": {"profiles", "list launch profiles", r.cmdProfiles},
		"status":   {"status", "show session, hover and metrics", r.cmdStatus},
		"watch":    {"watch", "live register view", r.cmdWatch},
		"help":     {"help", "list commands", r.cmdHelp},
		"quit":     {"quit", "exit", r.cmdQuit},
	}
}

// Run reads commands until quit, end of input or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	if f, ok := r.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return r.runTerminal(ctx, f)
	}
	return r.loop(ctx, bufio.NewScanner(r.in))
}

// lineReader abstracts bufio.Scanner and term.Terminal.
type lineReader interface {
	Scan() bool
	Text() string
	Err() error
}

// terminalReader adapts term.Terminal to lineReader.
type terminalReader struct {
	t    *term.Terminal
	line string
	err  error
}

func (tr *terminalReader) Scan() bool {
	tr.line, tr.err = tr.t.ReadLine()
	return tr.err == nil
}

func (tr *terminalReader) Text() string { return tr.line }

func (tr *terminalReader) Err() error {
	if errors.Is(tr.err, io.EOF) {
		return nil
	}
	return tr.err
}

func (r *REPL) runTerminal(ctx context.Context, f *os.File) error {
	state, err := term.MakeRaw(int(f.Fd()))
	if err != nil {
		return r.loop(ctx, bufio.NewScanner(r.in))
	}
	defer term.Restore(int(f.Fd()), state)

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{f, r.out}, Prompt)
	if w, h, err := term.GetSize(int(f.Fd())); err == nil {
		_ = t.SetSize(w, h)
	}

	// The terminal translates newlines while in raw mode.
	prev := r.out
	r.out = t
	r.app.console.SetOutput(t)
	defer func() {
		r.out = prev
		r.app.console.SetOutput(prev)
	}()

	r.interactive = true
	return r.loop(ctx, &terminalReader{t: t})
}

func (r *REPL) loop(ctx context.Context, lines lineReader) error {
	next := make(chan string)
	resume := make(chan struct{})
	go func() {
		defer close(next)
		for lines.Scan() {
			select {
			case next <- lines.Text():
			case <-ctx.Done():
				return
			}
			select {
			case <-resume:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-next:
			if !ok {
				return lines.Err()
			}
			err := r.Execute(ctx, line)
			if errors.Is(err, ErrQuit) {
				return nil
			}
			if err != nil {
				fmt.Fprintf(r.out, "error: %v\n", err)
			}
			select {
			case resume <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Execute runs one command line.
func (r *REPL) Execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return nil
	}

	name := fields[0]
	if alias, ok := r.aliases[name]; ok {
		name = alias
	}
	cmd, ok := r.commands[name]
	if !ok {
		return fmt.Errorf("%w: %q (try help)", ErrUnknownCommand, fields[0])
	}

	if name == "raw" {
		// raw keeps its JSON argument intact.
		rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))
		return cmd.run(ctx, []string{rest})
	}
	return cmd.run(ctx, fields[1:])
}

func (r *REPL) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

func (r *REPL) cmdOpen(_ context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("open <file>")
	}
	doc, err := r.app.documents.Open(args[0])
	if err != nil {
		return err
	}
	if !r.app.controller.Accepts(doc.HoverDocument()) {
		r.printf("%s: not an assembly file, hovers are disabled\n", doc.Name)
		return nil
	}
	r.printf("%s: %d lines\n", doc.Name, doc.LineCount())
	return nil
}

func (r *REPL) cmdHover(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usageError("hover <line> <col>")
	}
	line, err1 := strconv.Atoi(args[0])
	col, err2 := strconv.Atoi(args[1])
	if err1 != nil || err2 != nil || line < 1 || col < 1 {
		return usageError("hover <line> <col> (1-based)")
	}

	res, err := r.app.HoverAt(ctx, line-1, col-1)
	if err != nil {
		return err
	}
	if res == nil {
		r.printf("no register at %d:%d\n", line, col)
		return nil
	}
	r.printf("%s\n", res.Markdown)
	if !res.Refresh.OK() {
		r.app.logger.Debug("hover refresh: %s", res.Refresh)
	}
	return nil
}

func (r *REPL) cmdSelect(context.Context, []string) error {
	r.app.controller.SelectionChanged()
	return nil
}

func (r *REPL) cmdInspect(context.Context, []string) error {
	r.app.controller.ToggleInspect()
	return nil
}

func (r *REPL) cmdMode(context.Context, []string) error {
	r.app.controller.NextMode()
	return nil
}

func (r *REPL) cmdRefresh(ctx context.Context, _ []string) error {
	ctx, cancel := r.app.requestContext(ctx)
	defer cancel()

	res := r.app.Refresh(ctx)
	r.printf("refresh: %s, %d registers\n", res, r.app.controller.Cache().Len())
	return nil
}

func (r *REPL) cmdRegs(ctx context.Context, args []string) error {
	var values map[string]string
	switch {
	case len(args) == 0:
		values = r.app.controller.Cache().Snapshot()
	case len(args) == 1 && args[0] == "backend":
		if !r.app.gateway.SupportsBackendCommands() {
			return errors.New("the active session does not accept backend commands")
		}
		regs, result := r.app.BackendRegisters(ctx)
		if !result.OK() {
			return fmt.Errorf("info registers: %s", result)
		}
		values = regs
	default:
		return usageError("regs [backend]")
	}

	if len(values) == 0 {
		r.printf("no registers\n")
		return nil
	}
	for _, row := range RegisterRows(values, nil) {
		r.printf("%s\n", row.Text)
	}
	return nil
}

func (r *REPL) cmdExamine(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 3 {
		return usageError("x <addr> [len] [mode]")
	}
	settings := r.app.Settings()

	addr := args[0]
	if value, ok := r.app.controller.Cache().Get(addr); ok {
		addr = value
	}

	length := settings.Inspect.Length
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return usageError("x <addr> [len] [mode]")
		}
		length = n
	}

	mode := r.app.controller.Mode()
	if len(args) > 2 {
		m, err := registers.ParseMode(args[2])
		if err != nil {
			return err
		}
		mode = m
	}

	window, res := r.app.Examine(ctx, addr, length, mode)
	if !res.OK() {
		r.printf("%s\n", hover.NotInspectable)
		r.app.logger.Debug("examine %s: %s", addr, res)
		return nil
	}
	r.printf("%s\n", mode.Label())
	for _, line := range window.Lines(settings.Inspect.RowWidth) {
		r.printf("  %s\n", line)
	}
	return nil
}

// cmdRaw sends a request: raw <command> [json args] [| gjson path].
func (r *REPL) cmdRaw(ctx context.Context, args []string) error {
	rest := ""
	if len(args) > 0 {
		rest = args[0]
	}

	var path string
	if i := strings.LastIndex(rest, "|"); i >= 0 {
		rest, path = strings.TrimSpace(rest[:i]), strings.TrimSpace(rest[i+1:])
	}
	command, body, _ := strings.Cut(rest, " ")
	if command == "" {
		return usageError("raw <command> [json] [| path]")
	}

	var reqArgs any
	if body = strings.TrimSpace(body); body != "" {
		if !gjson.Valid(body) {
			return fmt.Errorf("arguments are not valid JSON: %s", body)
		}
		reqArgs = json.RawMessage(body)
	}

	resp, err := r.app.Request(ctx, command, reqArgs)
	if err != nil {
		return err
	}
	if path != "" {
		resp = []byte(gjson.GetBytes(resp, path).Raw)
	}
	if len(resp) == 0 {
		r.printf("null\n")
		return nil
	}

	out := pretty.Pretty(resp)
	if r.interactive {
		out = pretty.Color(out, nil)
	}
	r.printf("%s", out)
	return nil
}

func (r *REPL) cmdStart(ctx context.Context, args []string) error {
	if len(args) > 1 {
		return usageError("start [profile]")
	}
	name := ""
	if len(args) == 1 {
		name = args[0]
	}

	session, err := r.app.StartSession(ctx, name)
	if err != nil {
		return err
	}
	r.printf("session %s started (%s)\n", session.ID(), session.Type())
	return nil
}

func (r *REPL) cmdStop(ctx context.Context, _ []string) error {
	return r.app.StopSession(ctx)
}

func (r *REPL) cmdProfiles(context.Context, []string) error {
	names := r.app.sessions.Profiles()
	if len(names) == 0 {
		r.printf("no launch profiles\n")
		return nil
	}
	def := r.app.Settings().Debug.Profile
	for _, n := range names {
		marker := " "
		if n == def {
			marker = "*"
		}
		r.printf("%s %s\n", marker, n)
	}
	return nil
}

func (r *REPL) cmdStatus(context.Context, []string) error {
	r.printf("%s", r.app.Status())
	return nil
}

func (r *REPL) cmdWatch(ctx context.Context, _ []string) error {
	if !r.interactive {
		return errors.New("watch needs a terminal")
	}
	return RunWatch(ctx, r.app)
}

func (r *REPL) cmdHelp(context.Context, []string) error {
	names := make([]string, 0, len(r.commands))
	for n := range r.commands {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, n := range names {
		c := r.commands[n]
		r.printf("  %-32s %s\n", c.usage, c.help)
	}
	return nil
}

func (r *REPL) cmdQuit(context.Context, []string) error {
	return ErrQuit
}

// Status describes the session, hover state and metrics.
func (app *Application) Status() string {
	var sb strings.Builder

	if s := app.registry.ActiveSession(); s != nil {
		profile, _ := app.sessions.ProfileOf(s.ID())
		fmt.Fprintf(&sb, "session:   %s (%s, profile %q)\n", s.ID(), s.Type(), profile)
		fmt.Fprintf(&sb, "backend:   %v\n", app.gateway.SupportsBackendCommands())
	} else {
		sb.WriteString("session:   none\n")
	}

	if doc := app.documents.Active(); doc != nil {
		fmt.Fprintf(&sb, "document:  %s (%s)\n", doc.Path, orDash(doc.LanguageID))
	} else {
		sb.WriteString("document:  none\n")
	}

	state := app.controller.State()
	fmt.Fprintf(&sb, "hover:     active=%v inspecting=%v mode=%s\n",
		state.HoverActive, state.Inspecting, app.controller.Mode().Label())
	fmt.Fprintf(&sb, "cache:     %d registers\n", app.controller.Cache().Len())

	m := app.metrics.Snapshot()
	fmt.Fprintf(&sb, "hovers:    %d\n", m.HoverCount)
	fmt.Fprintf(&sb, "refreshes: %d (avg %v, max %v, %.0f%% failed)\n",
		m.RefreshCount, m.AvgRefresh(), time.Duration(m.MaxRefreshNs), m.FailureRate())
	fmt.Fprintf(&sb, "memory:    %d reads, %d failed\n", m.MemoryReads, m.MemoryFailed)
	for _, f := range m.Failures {
		fmt.Fprintf(&sb, "  %-24s %d\n", f.Kind, f.Count)
	}
	return sb.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
