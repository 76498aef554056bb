package profiler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartOperation(t *testing.T) {
	p := New()

	stop := p.StartOperation("inference")
	time.Sleep(2 * time.Millisecond)
	stop()

	stats := p.Stats()
	op, ok := stats.Operations["inference"]
	require.True(t, ok)
	assert.Equal(t, int64(1), op.Count)
	assert.Greater(t, op.AvgMs, 0.0)
	assert.GreaterOrEqual(t, op.MaxMs, op.MinMs)
}

func TestIncrCounter(t *testing.T) {
	p := New()

	for i := 0; i < 3; i++ {
		p.IncrCounter("requests")
	}
	p.IncrCounter("errors")

	stats := p.Stats()
	assert.Equal(t, int64(3), stats.Counters["requests"])
	assert.Equal(t, int64(1), stats.Counters["errors"])
}

func TestStats_Empty(t *testing.T) {
	p := New()

	stats := p.Stats()
	assert.Empty(t, stats.Operations)
	assert.Empty(t, stats.Counters)
	assert.GreaterOrEqual(t, stats.UptimeSeconds, 0.0)
	assert.Greater(t, stats.Goroutines, 0)
}

func TestConcurrentRecording(t *testing.T) {
	p := New()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				stop := p.StartOperation("preprocess")
				stop()
				p.IncrCounter("requests")
			}
		}()
	}
	wg.Wait()

	stats := p.Stats()
	assert.Equal(t, int64(800), stats.Operations["preprocess"].Count)
	assert.Equal(t, int64(800), stats.Counters["requests"])
}

func TestSlidingWindow(t *testing.T) {
	p := New()

	for i := 0; i < maxSamples+100; i++ {
		p.recordOperationTime("inference", time.Millisecond)
	}

	stats := p.Stats()
	op := stats.Operations["inference"]
	assert.Equal(t, int64(maxSamples+100), op.Count)
	assert.InDelta(t, 1.0, op.AvgMs, 0.01)
}
