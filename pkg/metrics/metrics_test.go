package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector_IndependentRegistries(t *testing.T) {
	a := NewCollectorWithRegistry("battery", prometheus.NewRegistry())
	b := NewCollectorWithRegistry("battery", prometheus.NewRegistry())

	a.RecordAPIRequest("/api/impact", "POST", "200")
	a.RecordAPIRequest("/api/impact", "POST", "200")
	b.RecordAPIRequest("/api/impact", "POST", "200")

	assert.Equal(t, 2.0, testutil.ToFloat64(a.APIRequestsTotal.WithLabelValues("/api/impact", "POST", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.APIRequestsTotal.WithLabelValues("/api/impact", "POST", "200")))
}

func TestCollector_RecordSimulation(t *testing.T) {
	c := NewCollectorWithRegistry("battery", prometheus.NewRegistry())

	c.RecordSimulation("poor", 1000, 180, true)
	c.RecordSimulation("excellent", 1000, 0, false)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.SimulationsTotal.WithLabelValues("poor")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.SimulationsTotal.WithLabelValues("excellent")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.EOLCycle))
}

func TestCollector_UpdateDBConnectionPool(t *testing.T) {
	c := NewCollectorWithRegistry("battery", prometheus.NewRegistry())
	c.UpdateDBConnectionPool(3, 2, 5)

	assert.Equal(t, 3.0, testutil.ToFloat64(c.DBConnectionPool.WithLabelValues("in_use")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.DBConnectionPool.WithLabelValues("idle")))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.DBConnectionPool.WithLabelValues("total")))
}
