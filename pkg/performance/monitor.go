// Package performance tracks per-operation timing and memory for a
// calculation and flushes the aggregates to the datastore.
package performance

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/seismo-tools/hazengine/pkg/models/domain"
	"github.com/seismo-tools/hazengine/pkg/models/store"
)

// Sink persists aggregated performance rows
type Sink interface {
	AddPerformance(ctx context.Context, rows []store.PerformanceRow) error
}

type aggregate struct {
	timeSec  float64
	timeSq   float64
	minSec   float64
	maxSec   float64
	memoryMB float64
	counts   int64
}

// Monitor collects operation statistics for one calculation. It is
// safe for concurrent use by task goroutines.
type Monitor struct {
	jobID int64
	sink  Sink

	mu  sync.Mutex
	ops map[string]*aggregate
}

// NewMonitor creates a monitor bound to a calculation id. The sink may
// be nil, in which case Flush is a no-op (useful in tests).
func NewMonitor(jobID int64, sink Sink) *Monitor {
	return &Monitor{
		jobID: jobID,
		sink:  sink,
		ops:   make(map[string]*aggregate),
	}
}

// Operation starts a timer for the named operation; call Stop on the
// returned handle to record it.
func (m *Monitor) Operation(name string) *Timer {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return &Timer{
		monitor:    m,
		name:       name,
		started:    time.Now(),
		startAlloc: ms.HeapAlloc,
	}
}

// Timed runs fn under a timer for the named operation
func (m *Monitor) Timed(name string, fn func() error) error {
	t := m.Operation(name)
	defer t.Stop()
	return fn()
}

func (m *Monitor) record(name string, elapsed time.Duration, allocDelta float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	agg, ok := m.ops[name]
	if !ok {
		agg = &aggregate{}
		m.ops[name] = agg
	}
	sec := elapsed.Seconds()
	agg.timeSec += sec
	agg.timeSq += sec * sec
	if agg.counts == 0 || sec < agg.minSec {
		agg.minSec = sec
	}
	if sec > agg.maxSec {
		agg.maxSec = sec
	}
	if allocDelta > 0 {
		agg.memoryMB += allocDelta
	}
	agg.counts++
}

// Stats returns the aggregated operations sorted by descending time
func (m *Monitor) Stats() []domain.OperationStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.OperationStats, 0, len(m.ops))
	for name, agg := range m.ops {
		out = append(out, domain.OperationStats{
			Operation: name,
			TimeSec:   agg.timeSec,
			MemoryMB:  agg.memoryMB,
			Counts:    agg.counts,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TimeSec > out[j].TimeSec })
	return out
}

// Slowest returns at most n operations by descending time
func (m *Monitor) Slowest(n int) []domain.OperationStats {
	stats := m.Stats()
	if len(stats) > n {
		stats = stats[:n]
	}
	return stats
}

// Flush persists the aggregates collected so far
func (m *Monitor) Flush(ctx context.Context) error {
	if m.sink == nil {
		return nil
	}
	m.mu.Lock()
	rows := make([]store.PerformanceRow, 0, len(m.ops))
	for name, agg := range m.ops {
		rows = append(rows, store.PerformanceRow{
			JobID:     m.jobID,
			Operation: name,
			TimeSec:   agg.timeSec,
			TimeSq:    agg.timeSq,
			TimeMin:   agg.minSec,
			TimeMax:   agg.maxSec,
			MemoryMB:  agg.memoryMB,
			Counts:    agg.counts,
		})
	}
	m.mu.Unlock()
	sort.Slice(rows, func(i, j int) bool { return rows[i].TimeSec > rows[j].TimeSec })
	return m.sink.AddPerformance(ctx, rows)
}

// Timer measures a single operation run
type Timer struct {
	monitor    *Monitor
	name       string
	started    time.Time
	startAlloc uint64
}

// Stop records the elapsed time and heap growth since Operation
func (t *Timer) Stop() {
	elapsed := time.Since(t.started)
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	var deltaMB float64
	if ms.HeapAlloc > t.startAlloc {
		deltaMB = float64(ms.HeapAlloc-t.startAlloc) / (1 << 20)
	}
	t.monitor.record(t.name, elapsed, deltaMB)
}
