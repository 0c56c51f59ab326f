package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hazard_risk"

// Metrics holds the Prometheus counters, histograms, and gauges for the risk engine.
type Metrics struct {
	// Image analysis metrics.
	AnalysesTotal    *prometheus.CounterVec   // labels: hazard, outcome={verified,no_data,quota_exceeded,api_error,decode_error}
	AnalysisDuration *prometheus.HistogramVec // labels: hazard
	AIEnrichment     *prometheus.CounterVec   // labels: outcome
	AIEnabled        prometheus.Gauge

	// Hazard event feed metrics.
	EventFetches   *prometheus.CounterVec // labels: hazard, source={usgs,gdacs,synthetic}, outcome={success,error}
	EventsReturned prometheus.Histogram

	// Summary publishing metrics.
	SummariesPublished *prometheus.CounterVec // labels: outcome={success,error}
}

// NewMetrics creates and registers all engine metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.AnalysesTotal,
		m.AnalysisDuration,
		m.AIEnrichment,
		m.AIEnabled,
		m.EventFetches,
		m.EventsReturned,
		m.SummariesPublished,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		AnalysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Image analyses by hazard and outcome.",
		}, []string{"hazard", "outcome"}),
		AnalysisDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "End-to-end duration of an image analysis including AI enrichment.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"hazard"}),
		AIEnrichment: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_enrichment_total",
			Help:      "AI enrichment attempts by outcome.",
		}, []string{"outcome"}),
		AIEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ai_enabled",
			Help:      "1 when a generative model key is configured, 0 otherwise.",
		}),
		EventFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_fetches_total",
			Help:      "Hazard event fetches by hazard, source, and outcome.",
		}, []string{"hazard", "source", "outcome"}),
		EventsReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "events_returned",
			Help:      "Number of hazard events returned per fetch after filtering.",
			Buckets:   []float64{0, 1, 5, 10, 20, 30, 40, 50},
		}),
		SummariesPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_published_total",
			Help:      "Analysis summaries written to Kafka by outcome.",
		}, []string{"outcome"}),
	}
}
