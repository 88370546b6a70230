// Package metrics exposes Prometheus collectors for the gateway and the
// messaging core. Collectors are registered on the default registry and
// served from /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GatewayConnections tracks currently open WebSocket connections.
	GatewayConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "quad",
		Subsystem: "gateway",
		Name:      "connections",
		Help:      "Number of open WebSocket connections.",
	})

	// EventsDispatched counts fan-out events by event name.
	EventsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quad",
		Subsystem: "gateway",
		Name:      "events_dispatched_total",
		Help:      "Fan-out events dispatched, by event name.",
	}, []string{"event"})

	// EventsDropped counts events dropped because a client send buffer
	// was full.
	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quad",
		Subsystem: "gateway",
		Name:      "events_dropped_total",
		Help:      "Events dropped due to full client send buffers.",
	})

	// MessagesSent counts messages accepted by the message store.
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quad",
		Subsystem: "messages",
		Name:      "sent_total",
		Help:      "Messages persisted by the message store.",
	})
)
