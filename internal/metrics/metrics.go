package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrderTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "design_orders_transitions_total",
		Help: "Total number of successful design order transitions.",
	},
		[]string{"action"},
	)

	OperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "design_orders_operation_errors_total",
		Help: "Total number of rejected or failed design order operations by error code.",
	},
		[]string{"action", "code"},
	)

	EscrowReleasedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "design_orders_escrow_released_total",
		Help: "Total number of escrow holds paid out to sellers.",
	})

	EscrowSweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "design_orders_escrow_sweep_duration_seconds",
		Help:    "Duration of a single escrow sweep pass.",
		Buckets: prometheus.DefBuckets,
	})

	NotificationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "design_orders_notification_failures_total",
		Help: "Total number of notifications that could not be delivered.",
	},
		[]string{"channel"},
	)

	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "design_orders_ws_connected_clients",
		Help: "Current number of connected WebSocket clients.",
	})
)
