package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Connection Metrics
var (
	// ConnectionsCurrent tracks peers currently registered for fan-out
	ConnectionsCurrent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_connections_current",
			Help: "Number of peers currently registered in the relay",
		},
	)

	// ConnectionsTotal tracks accepted connections since start
	ConnectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_connections_total",
			Help: "Total accepted TCP connections",
		},
	)

	// AcceptErrors tracks transient Accept failures
	AcceptErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_accept_errors_total",
			Help: "Total transient accept errors",
		},
	)

	// Disconnects tracks how peers left, by reason (eof, reset, closed, error)
	Disconnects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_disconnects_total",
			Help: "Total peer disconnects by reason",
		},
		[]string{"reason"},
	)
)

// Message Metrics
var (
	// MessagesReceived tracks non-blank messages accepted for fan-out
	MessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_messages_received_total",
			Help: "Total non-blank messages received from peers",
		},
	)

	// MessagesDiscarded tracks blank or whitespace-only messages
	MessagesDiscarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_messages_discarded_total",
			Help: "Total blank messages dropped without fan-out",
		},
	)

	// Deliveries tracks per-recipient sends by status (ok, failed)
	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_deliveries_total",
			Help: "Total per-recipient deliveries by status",
		},
		[]string{"status"},
	)

	// FanoutDuration tracks how long one broadcast takes to reach every recipient
	FanoutDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relay_fanout_duration_seconds",
			Help:    "Broadcast fan-out duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
	)
)
