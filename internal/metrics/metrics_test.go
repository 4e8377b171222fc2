package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistration(t *testing.T) {
	metrics := []prometheus.Collector{
		ConnectionsCurrent,
		ConnectionsTotal,
		AcceptErrors,
		Disconnects,
		MessagesReceived,
		MessagesDiscarded,
		Deliveries,
		FanoutDuration,
	}

	for _, metric := range metrics {
		desc := make(chan *prometheus.Desc, 1)
		metric.Describe(desc)
		close(desc)

		require.NotNil(t, <-desc, "metric should have a valid descriptor")
	}
}

func TestCounterVecLabels(t *testing.T) {
	before := testutil.ToFloat64(Deliveries.WithLabelValues("failed"))
	Deliveries.WithLabelValues("failed").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(Deliveries.WithLabelValues("failed")))

	before = testutil.ToFloat64(Disconnects.WithLabelValues("reset"))
	Disconnects.WithLabelValues("reset").Add(2)
	assert.Equal(t, before+2, testutil.ToFloat64(Disconnects.WithLabelValues("reset")))
}

func TestGauge(t *testing.T) {
	before := testutil.ToFloat64(ConnectionsCurrent)
	ConnectionsCurrent.Inc()
	ConnectionsCurrent.Inc()
	ConnectionsCurrent.Dec()
	assert.Equal(t, before+1, testutil.ToFloat64(ConnectionsCurrent))
	ConnectionsCurrent.Dec()
}
