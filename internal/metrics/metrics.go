package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "relay"

// Metrics holds the relay collectors on a dedicated registry.
type Metrics struct {
	registry *prometheus.Registry

	upstreamState      prometheus.Gauge
	upstreamConnects   prometheus.Counter
	upstreamReconnects prometheus.Counter
	framesReceived     prometheus.Counter
	parseErrors        prometheus.Counter
	commandsSent       *prometheus.CounterVec
	tradesDispatched   prometheus.Counter
	eventsDropped      prometheus.Counter
	clients            prometheus.Gauge
	activeSymbols      prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		upstreamState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "upstream_state",
			Help:      "Current upstream connection state (0=disconnected 1=connecting 2=connected 3=reconnecting 4=shutting_down 5=terminated)",
		}),
		upstreamConnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_connects_total",
			Help:      "Total number of successful upstream connections",
		}),
		upstreamReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_reconnects_total",
			Help:      "Total number of upstream reconnect attempts",
		}),
		framesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_frames_total",
			Help:      "Total number of frames received from the provider",
		}),
		parseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_parse_errors_total",
			Help:      "Total number of provider frames that failed to decode",
		}),
		commandsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_sent_total",
			Help:      "Total number of commands written to the provider",
		}, []string{"type"}),
		tradesDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_dispatched_total",
			Help:      "Total number of trade events pushed to client queues",
		}),
		eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Total number of events evicted from full client queues",
		}),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "clients",
			Help:      "Number of registered downstream clients",
		}),
		activeSymbols: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_symbols",
			Help:      "Number of symbols with at least one subscriber",
		}),
	}

	m.registry.MustRegister(
		m.upstreamState,
		m.upstreamConnects,
		m.upstreamReconnects,
		m.framesReceived,
		m.parseErrors,
		m.commandsSent,
		m.tradesDispatched,
		m.eventsDropped,
		m.clients,
		m.activeSymbols,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SetUpstreamState records the connector state as its numeric value.
func (m *Metrics) SetUpstreamState(state int) {
	if m == nil {
		return
	}
	m.upstreamState.Set(float64(state))
}

// IncUpstreamConnects counts a successful upstream dial.
func (m *Metrics) IncUpstreamConnects() {
	if m == nil {
		return
	}
	m.upstreamConnects.Inc()
}

// IncUpstreamReconnects counts a lost or failed upstream connection.
func (m *Metrics) IncUpstreamReconnects() {
	if m == nil {
		return
	}
	m.upstreamReconnects.Inc()
}

// IncFramesReceived counts one frame read from the provider.
func (m *Metrics) IncFramesReceived() {
	if m == nil {
		return
	}
	m.framesReceived.Inc()
}

// IncParseErrors counts a provider frame that failed to decode.
func (m *Metrics) IncParseErrors() {
	if m == nil {
		return
	}
	m.parseErrors.Inc()
}

// IncCommandsSent counts a command written upstream, labelled by type.
func (m *Metrics) IncCommandsSent(cmdType string) {
	if m == nil {
		return
	}
	m.commandsSent.WithLabelValues(cmdType).Inc()
}

// AddTradesDispatched adds n events delivered to client queues.
func (m *Metrics) AddTradesDispatched(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.tradesDispatched.Add(float64(n))
}

// IncEventsDropped counts an event evicted from a full client queue.
func (m *Metrics) IncEventsDropped() {
	if m == nil {
		return
	}
	m.eventsDropped.Inc()
}

// SetClients records the number of registered downstream clients.
func (m *Metrics) SetClients(n int) {
	if m == nil {
		return
	}
	m.clients.Set(float64(n))
}

// SetActiveSymbols records the number of symbols with at least one subscriber.
func (m *Metrics) SetActiveSymbols(n int) {
	if m == nil {
		return
	}
	m.activeSymbols.Set(float64(n))
}
