package monitoring

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecordOnPrivateRegistry(t *testing.T) {
	m := NewMetrics()
	m.IncPlaybooks("post")
	m.IncPlaybooks("post")
	m.IncAlert("kpi_drop", "critical")
	m.AddVariants("insert", 5)
	m.AddVariants("update", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PlaybooksGenerated.WithLabelValues("post")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlertsCreated.WithLabelValues("kpi_drop", "critical")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.VariantsGenerated.WithLabelValues("insert")))

	// A second instance must not collide with the first
	assert.NotPanics(t, func() { NewMetrics() })
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncPlaybooks("post")
		m.IncVerdict(true)
		m.IncAlert("viral_spike", "info")
		m.ObserveRequest("GET", "/x", "200", 0.1)
	})
}
