package pipeline

import (
	"testing"
	"time"

	"github.com/fxlv/trireme/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitterCoverageAndSentinel(t *testing.T) {
	q := NewQueues(QueueCapacities{Split: 1024})
	settings := &Settings{MinToken: 0, MaxToken: 237, Split: 1}

	done := make(chan struct{})
	go func() {
		RunSplitter(q, settings, nil)
		close(done)
	}()

	var lo, hi int64
	first := true
	var count int64
	for {
		item := <-q.SplitQ
		if item.EndOfStream {
			break
		}
		if first {
			lo = item.Value.Lo
			first = false
		} else {
			assert.Equal(t, hi, item.Value.Lo, "no gap between consecutive splits")
		}
		hi = item.Value.Hi
		count++
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("splitter did not exit after emitting sentinel")
	}

	assert.Equal(t, int64(0), lo)
	assert.Equal(t, int64(237), hi)
	assert.EqualValues(t, count, q.Counters.Splits.Load())
}

func TestSplitterExitsOnKillWithoutSentinel(t *testing.T) {
	q := NewQueues(QueueCapacities{Split: 1})
	settings := &Settings{MinToken: 0, MaxToken: 1_000_000, Split: 1}

	done := make(chan struct{})
	go func() {
		RunSplitter(q, settings, nil)
		close(done)
	}()

	// Drain one split from the one-slot queue; the splitter refills it and
	// blocks on the following send. Kill it mid-send and confirm it exits
	// promptly.
	<-q.SplitQ
	q.Kill.Set()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("splitter did not exit promptly after kill")
	}

	// No sentinel should have been queued behind the kill.
	select {
	case item := <-q.SplitQ:
		require.False(t, item.EndOfStream, "splitter must not emit a sentinel after observing kill mid-send")
	default:
	}
}

func TestSplitterRecordsSplitMetricPerEmission(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := metrics.NewCollector()

	q := NewQueues(QueueCapacities{Split: 1024})
	settings := &Settings{MinToken: 0, MaxToken: 237, Split: 1}

	done := make(chan struct{})
	go func() {
		RunSplitter(q, settings, collector)
		close(done)
	}()

	var count float64
	for {
		item := <-q.SplitQ
		if item.EndOfStream {
			break
		}
		count++
	}
	<-done

	assert.Equal(t, count, testutil.ToFloat64(collector.SplitsTotal()))
}
