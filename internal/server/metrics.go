package server

import "github.com/prometheus/client_golang/prometheus"

// metrics holds the service collectors on a private registry so several
// servers can coexist in one process.
type metrics struct {
	registry        *prometheus.Registry
	connections     prometheus.Gauge
	messages        *prometheus.CounterVec
	compileDuration prometheus.Histogram
	steps           prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{registry: prometheus.NewRegistry()}
	m.connections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cog_ws_connections",
		Help: "Open execution websocket connections",
	})
	m.messages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cog_ws_messages_total",
			Help: "Client frames received, by message type",
		},
		[]string{"type"},
	)
	m.compileDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "cog_compile_duration_seconds",
		Help: "Time spent compiling submitted programs",
	})
	m.steps = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cog_steps_total",
		Help: "Instructions executed on behalf of clients",
	})
	m.registry.MustRegister(m.connections, m.messages, m.compileDuration, m.steps)
	return m
}
