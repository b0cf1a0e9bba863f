// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics exposes Prometheus collectors for session activity. A
// Collector implements session.Observer and serves its own registry, so
// tests and multiple servers never collide on the default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "flavia"

// Collector holds every metric the service records.
type Collector struct {
	registry *prometheus.Registry

	events    *prometheus.CounterVec
	documents *prometheus.CounterVec
	sentences prometheus.Histogram
	exports   *prometheus.CounterVec
	sessions  prometheus.Gauge
}

// New creates a Collector with its own registry. Process and Go runtime
// collectors are registered alongside the service metrics.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "UI events handled, by kind and reconciler outcome.",
			},
			[]string{"kind", "outcome"},
		),
		documents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "documents_processed_total",
				Help:      "Upload processing attempts, by result.",
			},
			[]string{"result"},
		),
		sentences: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "document_sentences",
				Help:      "Sentences per processed document.",
				Buckets:   prometheus.ExponentialBuckets(10, 2, 10),
			},
		),
		exports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exports_total",
				Help:      "Summary downloads, by format and whether they were empty.",
			},
			[]string{"format", "empty"},
		),
		sessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_sessions",
				Help:      "Sessions currently open.",
			},
		),
	}
	c.registry.MustRegister(
		c.events, c.documents, c.sentences, c.exports, c.sessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// EventApplied counts one reconciled event.
func (c *Collector) EventApplied(kind, outcome string) {
	c.events.WithLabelValues(kind, outcome).Inc()
}

// DocumentProcessed records a processing attempt and, on success, the size
// of the resulting document.
func (c *Collector) DocumentProcessed(sentences int, err error) {
	if err != nil {
		c.documents.WithLabelValues("failed").Inc()
		return
	}
	c.documents.WithLabelValues("ok").Inc()
	c.sentences.Observe(float64(sentences))
}

// SessionsChanged moves the active session gauge by delta.
func (c *Collector) SessionsChanged(delta int) {
	c.sessions.Add(float64(delta))
}

// ExportServed counts one download.
func (c *Collector) ExportServed(format string, empty bool) {
	label := "false"
	if empty {
		label = "true"
	}
	c.exports.WithLabelValues(format, label).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
