package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestJobMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewJobMetrics(reg)

	m.IncSuccess("low-stock-scan")
	m.IncSuccess("low-stock-scan")
	m.IncFailure("")
	m.ObserveDuration("low-stock-scan", 250*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.success.WithLabelValues("low-stock-scan")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failure.WithLabelValues("unknown")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestNilRegistererIsNoop(t *testing.T) {
	m := NewJobMetrics(nil)
	assert.NotPanics(t, func() {
		m.IncSuccess("x")
		m.IncFailure("x")
		m.ObserveDuration("x", time.Second)
	})

	var nilMetrics *JobMetrics
	assert.NotPanics(t, func() { nilMetrics.IncSuccess("x") })
}
