package infra

import (
	"sync/atomic"
	"time"

	"crypto_search/internal/domain"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Refresh loop counters
	cyclesTotal     atomic.Uint64
	publishesTotal  atomic.Uint64
	unchangedTotal  atomic.Uint64
	discardedTotal  atomic.Uint64
	skippedTicks    atomic.Uint64
	networkFailures atomic.Uint64
	parseFailures   atomic.Uint64
	emptyResults    atomic.Uint64
	otherFailures   atomic.Uint64

	// Fetch latency tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	activeConnections atomic.Int32
	snapshotSize      atomic.Int32
}

// RecordCycle records a completed fetch cycle with its latency.
func (m *Metrics) RecordCycle(latency time.Duration) {
	m.cyclesTotal.Add(1)
	m.latencySumNs.Add(latency.Nanoseconds())
	m.latencyCount.Add(1)
}

// RecordPublish records a snapshot replacement.
func (m *Metrics) RecordPublish(size int) {
	m.publishesTotal.Add(1)
	m.snapshotSize.Store(int32(size))
}

// RecordUnchanged records a cycle rejected by the diff-gate.
func (m *Metrics) RecordUnchanged() {
	m.unchangedTotal.Add(1)
}

// RecordDiscarded records a cycle result dropped because it was stale or the loop had stopped.
func (m *Metrics) RecordDiscarded() {
	m.discardedTotal.Add(1)
}

// RecordSkippedTick records a tick skipped while another cycle was in flight.
func (m *Metrics) RecordSkippedTick() {
	m.skippedTicks.Add(1)
}

// RecordError records a failed cycle by error kind.
func (m *Metrics) RecordError(err error) {
	switch domain.Kind(err) {
	case domain.KindNetwork:
		m.networkFailures.Add(1)
	case domain.KindParse:
		m.parseFailures.Add(1)
	case domain.KindEmpty:
		m.emptyResults.Add(1)
	default:
		m.otherFailures.Add(1)
	}
}

// IncrementConnections increments active connections by 1.
func (m *Metrics) IncrementConnections() {
	m.activeConnections.Add(1)
}

// DecrementConnections decrements active connections by 1.
func (m *Metrics) DecrementConnections() {
	m.activeConnections.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	CyclesTotal       uint64    `json:"cycles_total"`
	PublishesTotal    uint64    `json:"publishes_total"`
	UnchangedTotal    uint64    `json:"unchanged_total"`
	DiscardedTotal    uint64    `json:"discarded_total"`
	SkippedTicks      uint64    `json:"skipped_ticks"`
	NetworkFailures   uint64    `json:"network_failures"`
	ParseFailures     uint64    `json:"parse_failures"`
	EmptyResults      uint64    `json:"empty_results"`
	OtherFailures     uint64    `json:"other_failures"`
	AvgFetchLatencyNs int64     `json:"avg_fetch_latency_ns"`
	ActiveConnections int32     `json:"active_connections"`
	SnapshotSize      int32     `json:"snapshot_size"`
	Timestamp         time.Time `json:"timestamp"`
}

// ErrorsTotal sums failures of every kind.
func (s MetricsSnapshot) ErrorsTotal() uint64 {
	return s.NetworkFailures + s.ParseFailures + s.EmptyResults + s.OtherFailures
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		CyclesTotal:       m.cyclesTotal.Load(),
		PublishesTotal:    m.publishesTotal.Load(),
		UnchangedTotal:    m.unchangedTotal.Load(),
		DiscardedTotal:    m.discardedTotal.Load(),
		SkippedTicks:      m.skippedTicks.Load(),
		NetworkFailures:   m.networkFailures.Load(),
		ParseFailures:     m.parseFailures.Load(),
		EmptyResults:      m.emptyResults.Load(),
		OtherFailures:     m.otherFailures.Load(),
		AvgFetchLatencyNs: avgLatency,
		ActiveConnections: m.activeConnections.Load(),
		SnapshotSize:      m.snapshotSize.Load(),
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.cyclesTotal.Store(0)
	m.publishesTotal.Store(0)
	m.unchangedTotal.Store(0)
	m.discardedTotal.Store(0)
	m.skippedTicks.Store(0)
	m.networkFailures.Store(0)
	m.parseFailures.Store(0)
	m.emptyResults.Store(0)
	m.otherFailures.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.activeConnections.Store(0)
	m.snapshotSize.Store(0)
}
