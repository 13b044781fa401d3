package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTimerObserveDuration(t *testing.T) {
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_duration_seconds",
		Help:    "Test duration histogram",
		Buckets: prometheus.DefBuckets,
	})

	timer := NewTimer()
	time.Sleep(10 * time.Millisecond)
	timer.ObserveDuration(h)

	assert.GreaterOrEqual(t, timer.Duration(), 10*time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(h))
}

func TestCountersRegistered(t *testing.T) {
	before := testutil.ToFloat64(CheckoutsTotal.WithLabelValues("recorded"))
	CheckoutsTotal.WithLabelValues("recorded").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(CheckoutsTotal.WithLabelValues("recorded")))
}
