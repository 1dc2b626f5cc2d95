package app

import (
	"errors"
	"testing"
	"time"

	"github.com/dshills/reghover/internal/integration/debug"
)

func TestMetricsEmpty(t *testing.T) {
	s := NewMetrics().Snapshot()

	if s.RefreshCount != 0 || s.MinRefreshNs != 0 || s.AvgRefreshNs != 0 {
		t.Errorf("empty snapshot = %+v", s)
	}
	if s.FailureRate() != 0 {
		t.Errorf("FailureRate() = %v, want 0", s.FailureRate())
	}
}

func TestMetricsRefresh(t *testing.T) {
	m := NewMetrics()
	m.RecordHover()
	m.RecordRefresh(2*time.Millisecond, debug.OK)
	m.RecordRefresh(4*time.Millisecond, debug.Degraded(debug.KindNoThreadsAvailable))
	m.RecordRefresh(6*time.Millisecond, debug.Failed(debug.KindAdapterRequestFailure, errors.New("boom")))
	m.RecordRefresh(8*time.Millisecond, debug.OK)

	s := m.Snapshot()
	if s.HoverCount != 1 {
		t.Errorf("HoverCount = %d, want 1", s.HoverCount)
	}
	if s.RefreshCount != 4 {
		t.Errorf("RefreshCount = %d, want 4", s.RefreshCount)
	}
	if s.MinRefreshNs != (2 * time.Millisecond).Nanoseconds() {
		t.Errorf("MinRefreshNs = %d", s.MinRefreshNs)
	}
	if s.MaxRefreshNs != (8 * time.Millisecond).Nanoseconds() {
		t.Errorf("MaxRefreshNs = %d", s.MaxRefreshNs)
	}
	if s.AvgRefresh() != 5*time.Millisecond {
		t.Errorf("AvgRefresh() = %v, want 5ms", s.AvgRefresh())
	}
	if s.LastRefresh != 8*time.Millisecond {
		t.Errorf("LastRefresh = %v", s.LastRefresh)
	}
	if s.FailureRate() != 50 {
		t.Errorf("FailureRate() = %v, want 50", s.FailureRate())
	}

	want := []FailureCount{
		{Kind: debug.KindNoThreadsAvailable, Count: 1},
		{Kind: debug.KindAdapterRequestFailure, Count: 1},
	}
	if len(s.Failures) != len(want) {
		t.Fatalf("Failures = %+v", s.Failures)
	}
	for i := range want {
		if s.Failures[i] != want[i] {
			t.Errorf("Failures[%d] = %+v, want %+v", i, s.Failures[i], want[i])
		}
	}
}

func TestMetricsMemory(t *testing.T) {
	m := NewMetrics()
	m.RecordRefresh(time.Millisecond, debug.OK)
	m.RecordMemory(debug.OK)
	m.RecordMemory(debug.Degraded(debug.KindMemoryUnavailable))

	s := m.Snapshot()
	if s.MemoryReads != 2 || s.MemoryFailed != 1 {
		t.Errorf("memory = %d/%d, want 2/1", s.MemoryReads, s.MemoryFailed)
	}
	if s.FailureRate() != 0 {
		t.Errorf("memory failures should not count against refreshes, got %v", s.FailureRate())
	}
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()
	m.RecordHover()
	m.RecordRefresh(time.Millisecond, debug.Degraded(debug.KindNoActiveSession))
	m.Reset()

	s := m.Snapshot()
	if s.HoverCount != 0 || s.RefreshCount != 0 || len(s.Failures) != 0 || s.MinRefreshNs != 0 {
		t.Errorf("snapshot after Reset = %+v", s)
	}
}
