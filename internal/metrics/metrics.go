// Package metrics holds the Prometheus collectors for command dispatch and
// outbound HTTP requests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "relaybot"

// Metrics groups every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Lines           *prometheus.CounterVec
	Commands        *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
	HTTPResponses   *prometheus.CounterVec
	HTTPErrors      *prometheus.CounterVec
}

// New creates the collectors and registers them, plus Go runtime metrics, on
// a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		Lines: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "router",
				Name:      "lines_total",
				Help:      "Command lines handled, by result (dispatched, rejected)",
			},
			[]string{"result"},
		),
		Commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "router",
				Name:      "commands_total",
				Help:      "Sub-commands dispatched, by command and outcome",
			},
			[]string{"command", "outcome"},
		),
		CommandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "router",
				Name:      "command_duration_seconds",
				Help:      "Handler execution time",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"command"},
		),
		HTTPResponses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "responses_total",
				Help:      "HTTP responses parsed, by status code",
			},
			[]string{"status"},
		),
		HTTPErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "errors_total",
				Help:      "HTTP requests that failed before a response was parsed",
			},
			[]string{"stage"},
		),
	}

	m.registry.MustRegister(
		m.Lines,
		m.Commands,
		m.CommandDuration,
		m.HTTPResponses,
		m.HTTPErrors,
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

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveLine counts one handled command line.
func (m *Metrics) ObserveLine(result string) {
	if m == nil {
		return
	}
	m.Lines.WithLabelValues(result).Inc()
}

// ObserveCommand counts one dispatched sub-command.
func (m *Metrics) ObserveCommand(command, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(command, outcome).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(took.Seconds())
}

// ObserveHTTPResponse counts one parsed response.
func (m *Metrics) ObserveHTTPResponse(status int) {
	if m == nil {
		return
	}
	m.HTTPResponses.WithLabelValues(strconv.Itoa(status)).Inc()
}

// ObserveHTTPError counts one request that failed at stage.
func (m *Metrics) ObserveHTTPError(stage string) {
	if m == nil {
		return
	}
	m.HTTPErrors.WithLabelValues(stage).Inc()
}
