// Package hover implements the register hover: it resolves the register
// under the cursor, refreshes the register cache from the debug session and
// renders width, value and an optional memory window as Markdown.
package hover

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dshills/reghover/internal/integration/debug"
	"github.com/dshills/reghover/internal/integration/debug/registers"
)

// Gateway is what the controller needs from the debug gateway.
// *debug.Gateway implements it.
type Gateway interface {
	HasActiveSession() bool
	ActiveSessionID() string
	CustomRequest(ctx context.Context, command string, args interface{}) (json.RawMessage, error)
}

// MemoryInspector reads formatted memory windows.
// *registers.Inspector implements it.
type MemoryInspector interface {
	Inspect(ctx context.Context, mode registers.Mode, length int, addr string) (registers.Window, debug.Result)
}

// ContextSetter receives context key changes for command enablement.
type ContextSetter interface {
	SetContext(key string, value bool)
}

// Position is a 0-based line and byte column in a document.
type Position struct {
	Line      int
	Character int
}

// Document is the text a hover is requested in.
type Document struct {
	// Path is the file path, used for extension gating.
	Path string

	// LanguageID is the editor language id, used for language gating.
	LanguageID string

	// Text is the document content.
	Text string
}

// Result is a rendered hover.
type Result struct {
	// Markdown is the hover content.
	Markdown string

	// Token is the register under the cursor.
	Token registers.Token

	// Refresh is the outcome of the cache refresh for this hover.
	Refresh debug.Result

	// RefreshTime is how long the cache refresh took.
	RefreshTime time.Duration

	// Inspected reports whether a memory read was made.
	Inspected bool

	// Memory is the outcome of the memory read.
	Memory debug.Result
}

// Config configures a Controller.
type Config struct {
	// Modes is the display mode cycle.
	Modes []registers.Mode

	// Length is the number of units read for a memory window.
	Length int

	// RowWidth is the number of tokens per memory row.
	RowWidth int

	// Languages are the accepted language ids.
	Languages []string

	// Extensions are the accepted file extensions.
	Extensions []string

	// GroupDigits groups decimal digits by locale.
	GroupDigits bool

	// Locale overrides the system locale for digit grouping.
	Locale string

	// ShowArchWidth adds the architectural width when it differs from
	// the name-derived width.
	ShowArchWidth bool

	// MaxDepth and MaxNodes bound each cache refresh.
	MaxDepth int
	MaxNodes int
}

// DefaultConfig returns the default controller configuration.
func DefaultConfig() Config {
	return Config{
		Modes:      append([]registers.Mode(nil), registers.DefaultModes...),
		Length:     32,
		RowWidth:   16,
		Languages:  []string{"asm", "nasm", "x86asm", "assembly", "asm-intel-x86-generic"},
		Extensions: []string{".asm", ".s", ".S", ".nasm", ".inc"},
		MaxDepth:   registers.DefaultMaxDepth,
		MaxNodes:   registers.DefaultMaxNodes,
	}
}

// sessionContext is the state owned for one debug session. The empty id
// holds the state while no debugger is attached.
type sessionContext struct {
	id      string
	state   InspectState
	cache   *registers.Cache
	builder *registers.Builder
}

// Controller is the hover state machine.
type Controller struct {
	gateway   Gateway
	inspector MemoryInspector

	config   Config
	decimal  *DecimalFormatter
	notifier debug.Notifier
	logger   debug.Logger
	setter   ContextSetter
	hooks    []Hook

	mu       sync.Mutex
	sessions map[string]*sessionContext
}

// Option configures a Controller.
type Option func(*Controller)

// WithConfig sets the controller configuration.
func WithConfig(cfg Config) Option {
	return func(c *Controller) {
		c.config = cfg
	}
}

// WithNotifier sets where status messages are shown.
func WithNotifier(n debug.Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithLogger sets the controller logger.
func WithLogger(l debug.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithContextSetter sets the receiver of hover-active changes.
func WithContextSetter(s ContextSetter) Option {
	return func(c *Controller) {
		c.setter = s
	}
}

// WithHook adds a render hook.
func WithHook(h Hook) Option {
	return func(c *Controller) {
		if h != nil {
			c.hooks = append(c.hooks, h)
		}
	}
}

// NewController creates a hover controller.
func NewController(gateway Gateway, inspector MemoryInspector, opts ...Option) *Controller {
	c := &Controller{
		gateway:   gateway,
		inspector: inspector,
		config:    DefaultConfig(),
		notifier:  debug.NopNotifier,
		logger:    debug.NopLogger,
		sessions:  make(map[string]*sessionContext),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.config = normalize(c.config)
	c.decimal = NewDecimalFormatter(c.config.GroupDigits, c.config.Locale)
	return c
}

func normalize(cfg Config) Config {
	if len(cfg.Modes) == 0 {
		cfg.Modes = append([]registers.Mode(nil), registers.DefaultModes...)
	}
	if cfg.RowWidth <= 0 {
		cfg.RowWidth = 16
	}
	if cfg.Length <= 0 {
		cfg.Length = 32
	}
	return cfg
}

// SetConfig replaces the configuration. Refresh limits apply to sessions
// first seen afterwards; a mode index past the new cycle resets to the
// first mode.
func (c *Controller) SetConfig(cfg Config) {
	cfg = normalize(cfg)
	decimal := NewDecimalFormatter(cfg.GroupDigits, cfg.Locale)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.config = cfg
	c.decimal = decimal
	for _, sc := range c.sessions {
		if sc.state.ModeIndex >= len(cfg.Modes) {
			sc.state.ModeIndex = 0
		}
	}
}

// SetHooks replaces the render hooks.
func (c *Controller) SetHooks(hooks ...Hook) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.hooks = nil
	for _, h := range hooks {
		if h != nil {
			c.hooks = append(c.hooks, h)
		}
	}
}

// current returns the context of the active session, creating it on first
// use. Caller must hold c.mu.
func (c *Controller) current() *sessionContext {
	id := c.gateway.ActiveSessionID()
	sc, ok := c.sessions[id]
	if !ok {
		cache := registers.NewCache()
		sc = &sessionContext{
			id:    id,
			cache: cache,
			builder: registers.NewBuilder(c.gateway, cache,
				registers.WithMaxDepth(c.config.MaxDepth),
				registers.WithMaxNodes(c.config.MaxNodes),
				registers.WithBuilderLogger(c.logger)),
		}
		c.sessions[id] = sc
	}
	return sc
}

func (c *Controller) setContext(active bool) {
	if c.setter != nil {
		c.setter.SetContext(ContextKey, active)
	}
}

// SelectionChanged clears HoverActive.
func (c *Controller) SelectionChanged() {
	c.mu.Lock()
	c.current().state.HoverActive = false
	c.mu.Unlock()

	c.setContext(false)
}

// ToggleInspect flips memory inspection. It is a no-op returning false
// when no hover is active.
func (c *Controller) ToggleInspect() bool {
	c.mu.Lock()
	sc := c.current()
	ok := sc.state.toggleInspect()
	inspecting := sc.state.Inspecting
	c.mu.Unlock()

	if !ok {
		c.notifier.Status("Hover a register to toggle memory inspection")
		return false
	}
	if inspecting {
		c.notifier.Status("Memory inspection on")
	} else {
		c.notifier.Status("Memory inspection off")
	}
	return true
}

// NextMode advances the display mode. It is a no-op returning false when
// no hover is active.
func (c *Controller) NextMode() bool {
	c.mu.Lock()
	sc := c.current()
	ok := sc.state.nextMode(len(c.config.Modes))
	mode := sc.state.mode(c.config.Modes)
	c.mu.Unlock()

	if !ok {
		c.notifier.Status("Hover a register to change the display mode")
		return false
	}
	c.notifier.Status("Display mode: " + mode.Label())
	return true
}

// State returns the inspect state of the active session.
func (c *Controller) State() InspectState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current().state
}

// Mode returns the current display mode of the active session.
func (c *Controller) Mode() registers.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current().state.mode(c.config.Modes)
}

// Cache returns the register cache of the active session.
func (c *Controller) Cache() *registers.Cache {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current().cache
}

// Refresh rebuilds the register cache of the active session.
func (c *Controller) Refresh(ctx context.Context) debug.Result {
	c.mu.Lock()
	builder := c.current().builder
	c.mu.Unlock()
	return builder.Refresh(ctx)
}

// SessionEnded drops the state kept for a session.
func (c *Controller) SessionEnded(id string) {
	c.mu.Lock()
	delete(c.sessions, id)
	c.mu.Unlock()
}

// Accepts reports whether hovers are offered for doc.
func (c *Controller) Accepts(doc Document) bool {
	c.mu.Lock()
	cfg := c.config
	c.mu.Unlock()

	if doc.LanguageID != "" {
		for _, l := range cfg.Languages {
			if strings.EqualFold(l, doc.LanguageID) {
				return true
			}
		}
		return false
	}
	if doc.Path != "" {
		ext := filepath.Ext(doc.Path)
		for _, e := range cfg.Extensions {
			if strings.EqualFold(e, ext) {
				return true
			}
		}
		return false
	}
	return true
}

// Hover resolves the register at pos. It returns nil when the document is
// not assembly or no register is under the cursor. Failures only reduce
// what is rendered.
func (c *Controller) Hover(ctx context.Context, doc Document, pos Position) *Result {
	if !c.Accepts(doc) {
		return nil
	}

	lines := strings.Split(doc.Text, "\n")
	if pos.Line < 0 || pos.Line >= len(lines) {
		return nil
	}
	tok, ok := registers.FindAt(strings.TrimSuffix(lines[pos.Line], "\r"), pos.Character)
	if !ok {
		return nil
	}

	c.mu.Lock()
	sc := c.current()
	sc.state.HoverActive = true
	state := sc.state
	cfg, decimal := c.config, c.decimal
	hooks := append([]Hook(nil), c.hooks...)
	c.mu.Unlock()
	c.setContext(true)

	out := &Result{Token: tok}
	start := time.Now()
	out.Refresh = sc.builder.Refresh(ctx)
	out.RefreshTime = time.Since(start)

	info := Info{
		Name:     tok.Name,
		Width:    registers.Classify(tok.Name),
		Attached: c.gateway.HasActiveSession(),
	}
	if w, ok := registers.ArchWidth(tok.Name); ok {
		info.ArchWidth = w
	}
	info.Value, info.HasValue = sc.cache.Get(tok.Name)
	info.Decimal = decimal.Format(info.Value)

	if info.Attached && state.Inspecting && info.HasValue {
		mode := state.mode(cfg.Modes)
		info.Inspecting = true
		info.Mode = mode.Label()

		var window registers.Window
		out.Inspected = true
		window, out.Memory = c.inspector.Inspect(ctx, mode, cfg.Length, info.Value)
		info.Memory = window.Lines(cfg.RowWidth)
	}

	out.Markdown = c.render(info, cfg, hooks)
	return out
}
