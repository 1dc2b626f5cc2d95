package app

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/dshills/reghover/internal/hover"
	"github.com/dshills/reghover/internal/integration/debug"
)

var (
	_ debug.Notifier      = (*Console)(nil)
	_ hover.ContextSetter = (*Console)(nil)
)

// Console shows warnings and status messages on an output stream and
// holds the context keys commands are enabled by.
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	context map[string]bool
	status  string
}

// NewConsole creates a console writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{
		out:     out,
		context: make(map[string]bool),
	}
}

// SetOutput changes where the console writes.
func (c *Console) SetOutput(out io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.out = out
}

// Warn implements debug.Notifier.
func (c *Console) Warn(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "warning: %s\n", msg)
}

// Status implements debug.Notifier.
func (c *Console) Status(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = msg
	fmt.Fprintf(c.out, "-- %s\n", msg)
}

// Printf writes command output.
func (c *Console) Printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// LastStatus returns the most recent status message.
func (c *Console) LastStatus() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// SetContext implements hover.ContextSetter.
func (c *Console) SetContext(key string, value bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.context[key] = value
}

// Context returns the value of a context key.
func (c *Console) Context(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.context[key]
}

// ContextKeys returns the keys currently set to true, sorted.
func (c *Console) ContextKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var keys []string
	for k, v := range c.context {
		if v {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
