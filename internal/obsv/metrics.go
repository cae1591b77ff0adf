// Package obsv exports Prometheus metrics for the broker: Message
// Dispatcher decision outcomes, AI Generator latency, and live-visitor
// counts. Grounded on 88lin-divinesense's ai/metrics/prometheus.go
// PrometheusExporter shape (a registry-holding struct of *Vec metric
// fields, built once at startup and threaded through the components that
// record against it), generalized from its AI/tool-call/cache vocabulary
// to this broker's dispatch/AI/presence vocabulary.
package obsv

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus collector this process exports.
type Metrics struct {
	registry *prometheus.Registry

	DispatchDecisions *prometheus.CounterVec
	AILatency         *prometheus.HistogramVec
	AITokensUsed      *prometheus.CounterVec
	AIModelFallbacks  *prometheus.CounterVec
	LiveVisitors      prometheus.Gauge
	LiveAgents        prometheus.Gauge
	CannedMatches     *prometheus.CounterVec
}

// New builds a Metrics registered against a fresh prometheus.Registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		DispatchDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "supportchat",
				Subsystem: "dispatcher",
				Name:      "decisions_total",
				Help:      "Number of Message Dispatcher decisions by outcome.",
			},
			[]string{"outcome"},
		),
		AILatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "supportchat",
				Subsystem: "ai",
				Name:      "generate_latency_seconds",
				Help:      "AI Generator call latency in seconds.",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 30},
			},
			[]string{"model", "status"},
		),
		AITokensUsed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "supportchat",
				Subsystem: "ai",
				Name:      "tokens_total",
				Help:      "Total tokens reported by the AI provider.",
			},
			[]string{"model"},
		),
		AIModelFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "supportchat",
				Subsystem: "ai",
				Name:      "model_fallbacks_total",
				Help:      "Number of times a model was pruned after a not-found response.",
			},
			[]string{"model"},
		),
		LiveVisitors: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "supportchat",
				Subsystem: "presence",
				Name:      "live_visitors",
				Help:      "Current number of connected visitor sessions.",
			},
		),
		LiveAgents: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "supportchat",
				Subsystem: "presence",
				Name:      "live_agents",
				Help:      "Current number of connected, authenticated agents.",
			},
		),
		CannedMatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "supportchat",
				Subsystem: "matcher",
				Name:      "canned_response_matches_total",
				Help:      "Number of inbound messages resolved by the canned-response matcher.",
			},
			[]string{"matched"},
		),
	}

	registry.MustRegister(
		m.DispatchDecisions,
		m.AILatency,
		m.AITokensUsed,
		m.AIModelFallbacks,
		m.LiveVisitors,
		m.LiveAgents,
		m.CannedMatches,
	)
	return m
}

// Handler returns the HTTP handler to mount at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IncDispatchDecision implements dispatcher.DecisionRecorder.
func (m *Metrics) IncDispatchDecision(outcome string) {
	m.DispatchDecisions.WithLabelValues(outcome).Inc()
}

// ObserveAILatency implements ai.MetricsRecorder.
func (m *Metrics) ObserveAILatency(model, status string, seconds float64) {
	m.AILatency.WithLabelValues(model, status).Observe(seconds)
}

// AddAITokens implements ai.MetricsRecorder.
func (m *Metrics) AddAITokens(model string, tokens int) {
	m.AITokensUsed.WithLabelValues(model).Add(float64(tokens))
}

// IncAIModelFallback implements ai.MetricsRecorder.
func (m *Metrics) IncAIModelFallback(model string) {
	m.AIModelFallbacks.WithLabelValues(model).Inc()
}

// SetLiveVisitors implements presence.PresenceGauges.
func (m *Metrics) SetLiveVisitors(n int) {
	m.LiveVisitors.Set(float64(n))
}

// SetLiveAgents implements presence.PresenceGauges.
func (m *Metrics) SetLiveAgents(n int) {
	m.LiveAgents.Set(float64(n))
}

// IncCannedMatch implements dispatcher.DecisionRecorder.
func (m *Metrics) IncCannedMatch(matched bool) {
	label := "miss"
	if matched {
		label = "hit"
	}
	m.CannedMatches.WithLabelValues(label).Inc()
}
