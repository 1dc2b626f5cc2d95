package app

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/reghover/internal/integration/debug"
)

// Metrics tracks hover and refresh activity for the status command.
type Metrics struct {
	hoverCount atomic.Uint64

	// Refresh timing
	refreshCount   atomic.Uint64
	refreshTotalNs atomic.Int64
	refreshMinNs   atomic.Int64
	refreshMaxNs   atomic.Int64
	lastRefreshNs  atomic.Int64

	memoryReads  atomic.Uint64
	memoryFailed atomic.Uint64

	mu       sync.Mutex
	failures map[debug.FailureKind]uint64

	startTime time.Time
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	m := &Metrics{
		failures:  make(map[debug.FailureKind]uint64),
		startTime: time.Now(),
	}
	// Initialize min to max int64 so the first refresh will be smaller
	m.refreshMinNs.Store(1<<63 - 1)
	return m
}

// RecordHover records one rendered hover.
func (m *Metrics) RecordHover() {
	m.hoverCount.Add(1)
}

// RecordRefresh records a cache refresh and its outcome.
func (m *Metrics) RecordRefresh(duration time.Duration, result debug.Result) {
	ns := duration.Nanoseconds()

	m.refreshCount.Add(1)
	m.refreshTotalNs.Add(ns)
	m.lastRefreshNs.Store(ns)

	for {
		old := m.refreshMinNs.Load()
		if ns >= old || m.refreshMinNs.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := m.refreshMaxNs.Load()
		if ns <= old || m.refreshMaxNs.CompareAndSwap(old, ns) {
			break
		}
	}

	if !result.OK() {
		m.recordFailure(result.Kind)
	}
}

// RecordMemory records a memory read outcome.
func (m *Metrics) RecordMemory(result debug.Result) {
	m.memoryReads.Add(1)
	if !result.OK() {
		m.memoryFailed.Add(1)
		m.recordFailure(result.Kind)
	}
}

func (m *Metrics) recordFailure(kind debug.FailureKind) {
	m.mu.Lock()
	m.failures[kind]++
	m.mu.Unlock()
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	refreshCount := m.refreshCount.Load()

	var avgRefreshNs int64
	if refreshCount > 0 {
		avgRefreshNs = m.refreshTotalNs.Load() / int64(refreshCount)
	}

	minRefreshNs := m.refreshMinNs.Load()
	if minRefreshNs == 1<<63-1 {
		minRefreshNs = 0
	}

	m.mu.Lock()
	failures := make([]FailureCount, 0, len(m.failures))
	for kind, n := range m.failures {
		failures = append(failures, FailureCount{Kind: kind, Count: n})
	}
	m.mu.Unlock()
	sort.Slice(failures, func(i, j int) bool { return failures[i].Kind < failures[j].Kind })

	return MetricsSnapshot{
		Uptime:       time.Since(m.startTime),
		HoverCount:   m.hoverCount.Load(),
		RefreshCount: refreshCount,
		AvgRefreshNs: avgRefreshNs,
		MinRefreshNs: minRefreshNs,
		MaxRefreshNs: m.refreshMaxNs.Load(),
		LastRefresh:  time.Duration(m.lastRefreshNs.Load()),
		MemoryReads:  m.memoryReads.Load(),
		MemoryFailed: m.memoryFailed.Load(),
		Failures:     failures,
	}
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.hoverCount.Store(0)
	m.refreshCount.Store(0)
	m.refreshTotalNs.Store(0)
	m.refreshMinNs.Store(1<<63 - 1)
	m.refreshMaxNs.Store(0)
	m.lastRefreshNs.Store(0)
	m.memoryReads.Store(0)
	m.memoryFailed.Store(0)

	m.mu.Lock()
	m.failures = make(map[debug.FailureKind]uint64)
	m.startTime = time.Now()
	m.mu.Unlock()
}

// FailureCount is the number of failures of one kind.
type FailureCount struct {
	Kind  debug.FailureKind
	Count uint64
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	Uptime       time.Duration
	HoverCount   uint64
	RefreshCount uint64
	AvgRefreshNs int64
	MinRefreshNs int64
	MaxRefreshNs int64
	LastRefresh  time.Duration
	MemoryReads  uint64
	MemoryFailed uint64
	Failures     []FailureCount
}

// AvgRefresh returns the average refresh duration.
func (s MetricsSnapshot) AvgRefresh() time.Duration {
	return time.Duration(s.AvgRefreshNs)
}

// FailureRate returns the percentage of refreshes that failed.
func (s MetricsSnapshot) FailureRate() float64 {
	if s.RefreshCount == 0 {
		return 0
	}
	var failed uint64
	for _, f := range s.Failures {
		failed += f.Count
	}
	failed -= s.MemoryFailed
	return float64(failed) / float64(s.RefreshCount) * 100
}

// Timer provides a simple way to measure elapsed time.
type Timer struct {
	start time.Time
}

// StartTimer creates a new timer.
func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Elapsed returns the elapsed time since the timer started.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
