package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig configures NewMetrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Metrics collects Prometheus counters and histograms for the
// checkpoint/rollback engine's five metric families: turns, tool calls,
// checkpoint creation, rollbacks, and reverse-handler outcomes.
type Metrics struct {
	registry *prometheus.Registry

	turnsTotal     *prometheus.CounterVec
	turnDuration   *prometheus.HistogramVec
	toolCalls      *prometheus.CounterVec
	toolDuration   *prometheus.HistogramVec
	checkpoints    *prometheus.CounterVec
	rollbacks      *prometheus.CounterVec
	reverseOutcome *prometheus.CounterVec
}

// NewMetrics builds a Metrics instance, or returns (nil, nil) when
// disabled so callers can skip instrumentation with a single nil check.
func NewMetrics(cfg *MetricsConfig) (*Metrics, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_turns_total",
			Help: "Total orchestrator turns run, by outcome.",
		}, []string{"outcome"}),
		turnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "engine_turn_duration_seconds",
			Help:    "Orchestrator turn duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_tool_calls_total",
			Help: "Total tool forward invocations, by tool and outcome.",
		}, []string{"tool", "outcome"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "engine_tool_duration_seconds",
			Help:    "Tool forward invocation duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool"}),
		checkpoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_checkpoints_total",
			Help: "Total checkpoints created, by kind (manual/auto).",
		}, []string{"kind"}),
		rollbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_rollbacks_total",
			Help: "Total rollback operations, by outcome.",
		}, []string{"outcome"}),
		reverseOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_tool_reverse_total",
			Help: "Total reverse-handler invocations during rollback, by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(m.turnsTotal, m.turnDuration, m.toolCalls, m.toolDuration,
		m.checkpoints, m.rollbacks, m.reverseOutcome)
	return m, nil
}

// Handler returns an http.Handler exposing the registry in Prometheus
// exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveTurn(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(outcome).Inc()
	m.turnDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Metrics) ObserveTool(tool, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

func (m *Metrics) ObserveCheckpoint(auto bool) {
	if m == nil {
		return
	}
	kind := "manual"
	if auto {
		kind = "auto"
	}
	m.checkpoints.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveRollback(outcome string) {
	if m == nil {
		return
	}
	m.rollbacks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveReverseOutcome(outcome string) {
	if m == nil {
		return
	}
	m.reverseOutcome.WithLabelValues(outcome).Inc()
}
