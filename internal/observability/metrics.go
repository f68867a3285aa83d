// Package observability provides the Prometheus metrics and the structured
// logger used across the simulation server.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the simulation server. Construct it
// exactly once per process; promauto registers on the default registry.
type Metrics struct {
	// Simulation
	TicksTotal    prometheus.Counter
	TradesTotal   *prometheus.CounterVec
	TradesIgnored prometheus.Counter
	Participants  prometheus.Gauge

	// Synchronization
	BroadcastsTotal  prometheus.Counter
	ConnectedClients prometheus.Gauge
	MessagesDropped  prometheus.Counter
}

// NewMetrics creates and registers all metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		TicksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pitsim_ticks_total",
			Help: "Drift cycles completed",
		}),

		TradesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pitsim_trades_total",
			Help: "Trades executed",
		}, []string{"asset", "side"}),

		TradesIgnored: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pitsim_trades_ignored_total",
			Help: "Trades dropped for unknown asset or side",
		}),

		Participants: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pitsim_participants",
			Help: "Participants currently tracked by the engine",
		}),

		BroadcastsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pitsim_broadcasts_total",
			Help: "Snapshot broadcasts emitted by the engine",
		}),

		ConnectedClients: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pitsim_connected_clients",
			Help: "WebSocket clients currently connected",
		}),

		MessagesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pitsim_client_messages_dropped_total",
			Help: "Outbound frames dropped because a client's send buffer was full",
		}),
	}
}
