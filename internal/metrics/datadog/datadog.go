// Package datadog implements a Datadog backend for the metrics package.
//
// It adapts the generic metrics.Backend interface to Datadog's DogStatsD
// protocol using the official statsd client library, translating metric
// labels into Datadog tags. The rest of the project depends only on the
// metrics.Backend abstraction and can swap backends without other changes.
package datadog

import (
	"fmt"

	"saptab/internal/metrics"

	"github.com/DataDog/datadog-go/v5/statsd"
)

// Config holds Datadog backend configuration.
type Config struct {
	// Addr is the DogStatsD address, e.g. "127.0.0.1:8125" or "unix:///path/to/socket".
	Addr string

	// Namespace is an optional prefix added to all metric names, e.g. "saptab.".
	Namespace string

	// GlobalTags are tags applied to all metrics emitted by this backend,
	// e.g. []string{"env:prod","service:saptab"}.
	GlobalTags []string
}

// Backend is a Datadog implementation of metrics.Backend. The same instance
// is intended to be installed globally via metrics.SetBackend.
type Backend struct {
	client *statsd.Client
}

// NewBackend constructs a Datadog metrics backend. Addr is required.
func NewBackend(cfg Config) (*Backend, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("datadog: Addr is required")
	}

	// Client options are set at construction; the v5 client exposes no
	// settable fields.
	opts := []statsd.Option{}
	if cfg.Namespace != "" {
		opts = append(opts, statsd.WithNamespace(cfg.Namespace))
	}
	if len(cfg.GlobalTags) > 0 {
		opts = append(opts, statsd.WithTags(cfg.GlobalTags))
	}

	c, err := statsd.New(cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("datadog: create client: %w", err)
	}
	return &Backend{client: c}, nil
}

// IncCounter implements metrics.Backend.IncCounter using a Datadog Count
// metric. DogStatsD Count expects an int64; fractional deltas are rounded.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if b.client == nil {
		return
	}
	b.client.Count(name, int64(delta), labelsToTags(labels), 1)
}

// ObserveHistogram implements metrics.Backend.ObserveHistogram using a
// Datadog Histogram metric.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if b.client == nil {
		return
	}
	b.client.Histogram(name, value, labelsToTags(labels), 1)
}

// Flush implements metrics.Backend.Flush. For the statsd client, Close() is
// the closest equivalent and is typically used at process shutdown to flush
// buffered data.
func (b *Backend) Flush() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}

// labelsToTags converts a map of labels into Datadog tag strings "key:value".
func labelsToTags(lbls metrics.Labels) []string {
	if len(lbls) == 0 {
		return nil
	}
	out := make([]string, 0, len(lbls))
	for k, v := range lbls {
		out = append(out, fmt.Sprintf("%s:%s", k, v))
	}
	return out
}
