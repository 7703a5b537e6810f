// Package metrics exposes Prometheus instrumentation for report building.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Skipped event kinds.
const (
	KindMessage = "message"
	KindReason  = "reason"
)

// Metrics holds the insights collectors.
type Metrics struct {
	ReportsBuilt   *prometheus.CounterVec
	ReportDuration prometheus.Histogram
	Classification *prometheus.CounterVec
	EventsSkipped  *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests to
// avoid duplicate registration on the default registry.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ReportsBuilt: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "insights_reports_built_total",
			Help: "Reports built, by reason view",
		}, []string{"view"}),
		ReportDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "insights_report_duration_seconds",
			Help:    "Time to fetch data and build a report",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 20.0},
		}),
		Classification: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "insights_classification_total",
			Help: "Reason clustering outcomes (grouped, fallback, skipped)",
		}, []string{"outcome"}),
		EventsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "insights_events_skipped_total",
			Help: "Events dropped for unusable timestamps or reasons",
		}, []string{"kind"}),
		gatherer: reg,
	}
}

// ObserveClassification counts one clustering outcome.
func (m *Metrics) ObserveClassification(outcome string) {
	m.Classification.WithLabelValues(outcome).Inc()
}

// RecordReport records a finished report.
func (m *Metrics) RecordReport(view string, took time.Duration, skippedMessages, skippedReasons int) {
	m.ReportsBuilt.WithLabelValues(view).Inc()
	m.ReportDuration.Observe(took.Seconds())
	if skippedMessages > 0 {
		m.EventsSkipped.WithLabelValues(KindMessage).Add(float64(skippedMessages))
	}
	if skippedReasons > 0 {
		m.EventsSkipped.WithLabelValues(KindReason).Add(float64(skippedReasons))
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
