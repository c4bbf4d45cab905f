// Package metrics declares the process-wide prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chess_connections_active",
		Help: "Currently open websocket connections.",
	})
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chess_sessions_active",
		Help: "Sessions currently held in the registry.",
	})
	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chess_sessions_created_total",
		Help: "Sessions created since process start.",
	})
	SessionsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chess_sessions_swept_total",
		Help: "Abandoned sessions deleted by the grace-period sweep.",
	})
	MovesApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chess_moves_applied_total",
		Help: "Moves accepted by the rule engine.",
	})
	MovesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chess_moves_rejected_total",
		Help: "Moves rejected as invalid.",
	})
)
