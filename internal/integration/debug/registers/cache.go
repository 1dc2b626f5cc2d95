package registers

import (
	"sort"
	"strings"
	"sync"
)

// Cache holds the last register snapshot read from the debugger, keyed by
// lowercase register name. A snapshot is replaced whole, never patched.
type Cache struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{values: make(map[string]string)}
}

// Get returns the cached value for a register name.
func (c *Cache) Get(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[strings.ToLower(name)]
	return v, ok
}

// Len returns the number of cached registers.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}

// Names returns the cached register names in sorted order.
func (c *Cache) Names() []string {
	c.mu.RLock()
	names := make([]string, 0, len(c.values))
	for name := range c.values {
		names = append(names, name)
	}
	c.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Snapshot returns a copy of the cached values.
func (c *Cache) Snapshot() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]string, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Reset empties the cache.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.values = make(map[string]string)
	c.mu.Unlock()
}

// Replace swaps in a new snapshot. The cache takes ownership of values.
func (c *Cache) Replace(values map[string]string) {
	if values == nil {
		values = make(map[string]string)
	}
	c.mu.Lock()
	c.values = values
	c.mu.Unlock()
}
