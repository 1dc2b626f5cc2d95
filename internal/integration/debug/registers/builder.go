package registers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/dshills/reghover/internal/integration/debug"
	"github.com/dshills/reghover/internal/integration/debug/dap"
)

// Default traversal limits for a single refresh.
const (
	DefaultMaxDepth = 32
	DefaultMaxNodes = 4096
)

// SessionGateway is what the builder needs from the debug gateway.
// *debug.Gateway implements it.
type SessionGateway interface {
	HasActiveSession() bool
	CustomRequest(ctx context.Context, command string, args interface{}) (json.RawMessage, error)
}

// Builder refreshes a Cache from the top stack frame of the first thread.
type Builder struct {
	gateway SessionGateway
	cache   *Cache
	logger  debug.Logger

	maxDepth int
	maxNodes int

	// serializes refreshes
	mu sync.Mutex
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithMaxDepth limits how deep nested variables are expanded.
func WithMaxDepth(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.maxDepth = n
		}
	}
}

// WithMaxNodes limits how many variables a refresh may visit.
func WithMaxNodes(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.maxNodes = n
		}
	}
}

// WithBuilderLogger sets the builder logger.
func WithBuilderLogger(l debug.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder creates a builder that fills cache through gateway.
func NewBuilder(gateway SessionGateway, cache *Cache, opts ...BuilderOption) *Builder {
	b := &Builder{
		gateway:  gateway,
		cache:    cache,
		logger:   debug.NopLogger,
		maxDepth: DefaultMaxDepth,
		maxNodes: DefaultMaxNodes,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Cache returns the cache the builder fills.
func (b *Builder) Cache() *Cache {
	return b.cache
}

// Refresh rebuilds the cache from the debugger. On success the cache holds
// exactly one snapshot; on any failure it is left empty.
func (b *Builder) Refresh(ctx context.Context) debug.Result {
	b.mu.Lock()
	defer b.mu.Unlock()

	values, res := b.collect(ctx)
	if !res.OK() {
		b.cache.Reset()
		if res.Status == debug.StatusError {
			b.logger.Warn("register refresh failed: %s", res)
		} else {
			b.logger.Debug("register refresh skipped: %s", res)
		}
		return res
	}

	b.cache.Replace(values)
	b.logger.Debug("registers updated: %d values", len(values))
	return debug.OK
}

// node is a pending entry of the traversal: a scope or variable that is
// either a leaf (ref == 0) or has children behind ref.
type node struct {
	name  string
	value string
	ref   int64
	depth int
}

func (b *Builder) collect(ctx context.Context) (map[string]string, debug.Result) {
	if !b.gateway.HasActiveSession() {
		return nil, debug.Degraded(debug.KindNoActiveSession)
	}

	body, err := b.gateway.CustomRequest(ctx, "threads", nil)
	if err != nil {
		return nil, debug.ResultFromError(err)
	}
	threadID := gjson.GetBytes(body, "threads.0.id").Int()
	if threadID == 0 {
		return nil, debug.Degraded(debug.KindNoThreadsAvailable)
	}

	body, err = b.gateway.CustomRequest(ctx, "stackTrace", dap.StackTraceArguments{ThreadID: int(threadID)})
	if err != nil {
		return nil, debug.ResultFromError(err)
	}
	frames := gjson.GetBytes(body, "stackFrames")
	if len(frames.Array()) == 0 {
		return nil, debug.Degraded(debug.KindEmptyStackTrace)
	}
	frameID := frames.Get("0.id").Int()

	body, err = b.gateway.CustomRequest(ctx, "scopes", dap.ScopesArguments{FrameID: int(frameID)})
	if err != nil {
		return nil, debug.ResultFromError(err)
	}

	var stack []node
	scopes := gjson.GetBytes(body, "scopes").Array()
	for i := len(scopes) - 1; i >= 0; i-- {
		ref := scopes[i].Get("variablesReference").Int()
		if ref <= 0 {
			continue
		}
		stack = append(stack, node{name: scopes[i].Get("name").String(), ref: ref, depth: 1})
	}

	values := make(map[string]string)
	visited := make(map[int64]bool)
	visits := 0

	// Depth-first, in adapter order, so a later duplicate name wins the
	// same way a recursive walk would.
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n.ref <= 0 {
			values[strings.ToLower(n.name)] = n.value
			continue
		}
		if visited[n.ref] {
			continue
		}
		visited[n.ref] = true

		if n.depth > b.maxDepth {
			return nil, debug.Failed(debug.KindAdapterRequestFailure,
				fmt.Errorf("%w: %q at depth %d", ErrTreeTooDeep, n.name, n.depth))
		}

		body, err := b.gateway.CustomRequest(ctx, "variables", dap.VariablesArguments{VariablesReference: int(n.ref)})
		if err != nil {
			return nil, debug.ResultFromError(err)
		}

		vars := gjson.GetBytes(body, "variables").Array()
		visits += len(vars)
		if visits > b.maxNodes {
			return nil, debug.Failed(debug.KindAdapterRequestFailure,
				fmt.Errorf("%w: more than %d variables", ErrTooManyNodes, b.maxNodes))
		}

		for i := len(vars) - 1; i >= 0; i-- {
			stack = append(stack, node{
				name:  vars[i].Get("name").String(),
				value: vars[i].Get("value").String(),
				ref:   vars[i].Get("variablesReference").Int(),
				depth: n.depth + 1,
			})
		}
	}

	return values, debug.OK
}
