// Package profiler - Runtime and per-stage latency tracking for the service.
package profiler

import (
	"runtime"
	"sync"
	"time"
)

// maxSamples bounds the per-operation sliding window.
const maxSamples = 600

// Profiler tracks operation latencies and counters for the stats endpoint.
//
// It is thread-safe; the classifier records per-stage timings from request
// goroutines while the stats handler reads snapshots.
type Profiler struct {
	mu         sync.RWMutex
	startTime  time.Time
	operations map[string]*timeTracker
	counters   map[string]int64
}

// timeTracker tracks operation timing statistics over a sliding window.
type timeTracker struct {
	durations []time.Duration
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	count     int64
}

// New creates a new profiler.
func New() *Profiler {
	return &Profiler{
		startTime:  time.Now(),
		operations: make(map[string]*timeTracker),
		counters:   make(map[string]int64),
	}
}

// StartOperation begins timing an operation.
//
// Arguments:
//   - name: The name of the operation to track.
//
// Returns:
//   - func(): A function to call when the operation completes.
func (p *Profiler) StartOperation(name string) func() {
	start := time.Now()
	return func() {
		p.recordOperationTime(name, time.Since(start))
	}
}

// IncrCounter increments a named counter.
func (p *Profiler) IncrCounter(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counters[name]++
}

func (p *Profiler) recordOperationTime(name string, duration time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, exists := p.operations[name]
	if !exists {
		tracker = &timeTracker{
			minTime: duration,
			maxTime: duration,
		}
		p.operations[name] = tracker
	}

	tracker.durations = append(tracker.durations, duration)
	if len(tracker.durations) > maxSamples {
		tracker.totalTime -= tracker.durations[0]
		tracker.durations = tracker.durations[1:]
	}

	tracker.totalTime += duration
	tracker.count++

	if duration < tracker.minTime {
		tracker.minTime = duration
	}
	if duration > tracker.maxTime {
		tracker.maxTime = duration
	}
}

// OperationStats summarizes the timing of a single operation.
type OperationStats struct {
	// The total number of recorded completions.
	Count int64 `json:"count"`
	// Average latency over the sliding window, in milliseconds.
	AvgMs float64 `json:"avg_ms"`
	// Minimum recorded latency, in milliseconds.
	MinMs float64 `json:"min_ms"`
	// Maximum recorded latency, in milliseconds.
	MaxMs float64 `json:"max_ms"`
}

// MemoryStats summarizes the Go runtime's memory usage.
type MemoryStats struct {
	HeapAlloc   uint64 `json:"heap_alloc"`
	HeapSys     uint64 `json:"heap_sys"`
	HeapObjects uint64 `json:"heap_objects"`
	GCCycles    uint32 `json:"gc_cycles"`
}

// Snapshot is a point-in-time view of the profiler's statistics.
type Snapshot struct {
	// Service uptime in seconds.
	UptimeSeconds float64 `json:"uptime_seconds"`
	// The number of live goroutines.
	Goroutines int `json:"goroutines"`
	// Go runtime memory usage.
	Memory MemoryStats `json:"memory"`
	// Per-operation latency statistics, keyed by operation name.
	Operations map[string]OperationStats `json:"operations"`
	// Named counters.
	Counters map[string]int64 `json:"counters"`
}

// Stats returns the current statistics as a snapshot.
//
// Returns:
//   - Snapshot: The current statistics.
func (p *Profiler) Stats() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	ops := make(map[string]OperationStats, len(p.operations))
	for name, tracker := range p.operations {
		stats := OperationStats{
			Count: tracker.count,
			MinMs: float64(tracker.minTime.Nanoseconds()) / 1e6,
			MaxMs: float64(tracker.maxTime.Nanoseconds()) / 1e6,
		}
		if len(tracker.durations) > 0 {
			avg := tracker.totalTime / time.Duration(len(tracker.durations))
			stats.AvgMs = float64(avg.Nanoseconds()) / 1e6
		}
		ops[name] = stats
	}

	counters := make(map[string]int64, len(p.counters))
	for name, value := range p.counters {
		counters[name] = value
	}

	return Snapshot{
		UptimeSeconds: time.Since(p.startTime).Seconds(),
		Goroutines:    runtime.NumGoroutine(),
		Memory: MemoryStats{
			HeapAlloc:   mem.HeapAlloc,
			HeapSys:     mem.HeapSys,
			HeapObjects: mem.HeapObjects,
			GCCycles:    mem.NumGC,
		},
		Operations: ops,
		Counters:   counters,
	}
}
