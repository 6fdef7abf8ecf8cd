// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// This package adapts the generic metrics.Backend interface to Prometheus by:
//
//   - Using client_golang CounterVec and SummaryVec collectors.
//   - Mapping the common extraction labels (table, step, status) onto
//     Prometheus labels.
//   - Pushing collected metrics to a Prometheus Pushgateway instance instead
//     of exposing an HTTP scrape endpoint; extraction runs are short-lived,
//     so scraping would miss them.
//
// The package intentionally contains all Prometheus-specific dependencies so
// that the rest of the project remains decoupled from Prometheus and can swap
// to alternative backends (e.g. Datadog) without changes to the core.
package prompush

import (
	"fmt"

	"saptab/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	stepCounter  *prometheus.CounterVec // "extract_step_total"
	stepDuration *prometheus.SummaryVec // "extract_step_duration_seconds"
	rowCounter   *prometheus.CounterVec // "extract_rows_total"
	callCounter  *prometheus.CounterVec // "extract_calls_total"
}

// NewBackend constructs a Prometheus Pushgateway backend.
// jobName is the Pushgateway "job" grouping key; gatewayURL the base URL of
// the Pushgateway server.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "saptab"
	}

	reg := prometheus.NewRegistry()

	stepCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extract_step_total",
			Help: "Total number of extraction step executions, partitioned by table, step, and status.",
		},
		[]string{"table", "step", "status"},
	)
	stepDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "extract_step_duration_seconds",
			Help:       "Duration of extraction steps in seconds, partitioned by table, step, and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"table", "step", "status"},
	)
	rowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extract_rows_total",
			Help: "Row-level counts per table and kind (assembled, persisted).",
		},
		[]string{"table", "kind"},
	)
	callCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extract_calls_total",
			Help: "Remote table reads issued against the source system.",
		},
		[]string{"table"},
	)

	for _, c := range []prometheus.Collector{stepCounter, stepDuration, rowCounter, callCounter} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register collector: %w", err)
		}
	}

	return &Backend{
		gatewayURL:   gatewayURL,
		jobName:      jobName,
		reg:          reg,
		stepCounter:  stepCounter,
		stepDuration: stepDuration,
		rowCounter:   rowCounter,
		callCounter:  callCounter,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "extract_step_total":
		b.stepCounter.WithLabelValues(labels["table"], labels["step"], labels["status"]).Add(delta)
	case "extract_rows_total":
		b.rowCounter.WithLabelValues(labels["table"], labels["kind"]).Add(delta)
	case "extract_calls_total":
		b.callCounter.WithLabelValues(labels["table"]).Add(delta)
	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != "extract_step_duration_seconds" {
		return
	}
	b.stepDuration.WithLabelValues(labels["table"], labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
