package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollector(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()

	collector := NewCollector()

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.splitsTotal)
	assert.NotNil(t, collector.resultsTotal)
	assert.NotNil(t, collector.rowsMutatedTotal)
	assert.NotNil(t, collector.workersActive)
	assert.NotNil(t, collector.queryLatency)
}

func TestRecordSplit(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	assert.NotPanics(t, func() {
		for i := 0; i < 5; i++ {
			collector.RecordSplit()
		}
	})
}

func TestRecordResult(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	for _, latency := range []float64{0.0, 0.001, 0.1, 1.0, 5.0} {
		assert.NotPanics(t, func() {
			collector.RecordResult(latency)
		}, "RecordResult should not panic with latency %f", latency)
	}
}

func TestRecordMutation(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	assert.NotPanics(t, func() {
		for i := 0; i < 3; i++ {
			collector.RecordMutation(0.05)
		}
	})
}

func TestSetWorkersActive(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	for _, n := range []int{0, 1, 10, 100} {
		assert.NotPanics(t, func() {
			collector.SetWorkersActive(n)
		})
	}
}

func TestConcurrentMetricUpdates(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	done := make(chan bool, 100)
	for i := 0; i < 100; i++ {
		go func() {
			collector.RecordSplit()
			collector.RecordResult(0.1)
			collector.SetWorkersActive(5)
			done <- true
		}()
	}
	for i := 0; i < 100; i++ {
		<-done
	}
}

func TestNewServerExposesMetricsEndpoint(t *testing.T) {
	srv := NewServer(0)
	assert.NotNil(t, srv.Handler)
	assert.Equal(t, ":0", srv.Addr)
}

func TestCollectorIsolation(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()

	collector1 := NewCollector()
	require.NotNil(t, collector1)

	assert.Panics(t, func() {
		NewCollector()
	}, "creating a second collector should panic due to duplicate registration")
}
