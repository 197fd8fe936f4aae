package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// fusion service.
type Metrics struct {
	RunsTotal     *prometheus.CounterVec // labels: outcome={completed,failed,cancelled}
	RunDuration   prometheus.Histogram
	FusionRunning prometheus.Gauge

	// Scene assembly metrics.
	SourcesLoaded    *prometheus.CounterVec // labels: source, status={available,placeholder}
	DataAvailability prometheus.Gauge

	// Region extraction and publishing metrics.
	RegionsExtracted *prometheus.CounterVec // labels: target
	RegionsPublished prometheus.Counter
	PublishErrors    prometheus.Counter

	// Render cache metrics.
	RenderCache *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all fusion metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prospect_fusion",
			Name:      "runs_total",
			Help:      "Completed fusion runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "prospect_fusion",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete load-fuse-extract cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		FusionRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "prospect_fusion",
			Name:      "running",
			Help:      "1 while a fusion run is in progress, 0 otherwise.",
		}),
		SourcesLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prospect_fusion",
			Name:      "sources_loaded_total",
			Help:      "Scene layers assembled, by source and availability status.",
		}, []string{"source", "status"}),
		DataAvailability: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "prospect_fusion",
			Name:      "data_availability",
			Help:      "Fraction of catalog sources backed by real data in the last run.",
		}),
		RegionsExtracted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prospect_fusion",
			Name:      "regions_extracted_total",
			Help:      "Region records extracted, by target.",
		}, []string{"target"}),
		RegionsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "prospect_fusion",
			Name:      "regions_published_total",
			Help:      "Region records written to the sink topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "prospect_fusion",
			Name:      "publish_errors_total",
			Help:      "Failed attempts to publish region records.",
		}),
		RenderCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prospect_fusion",
			Name:      "render_cache_total",
			Help:      "Surface render cache lookups by result.",
		}, []string{"result"}),
	}

	prometheus.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.FusionRunning,
		m.SourcesLoaded,
		m.DataAvailability,
		m.RegionsExtracted,
		m.RegionsPublished,
		m.PublishErrors,
		m.RenderCache,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RunsTotal:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "prospect_fusion", Name: "runs_total"}, []string{"outcome"}),
		RunDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "prospect_fusion", Name: "run_duration_seconds"}),
		FusionRunning:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "prospect_fusion", Name: "running"}),
		SourcesLoaded:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "prospect_fusion", Name: "sources_loaded_total"}, []string{"source", "status"}),
		DataAvailability: prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "prospect_fusion", Name: "data_availability"}),
		RegionsExtracted: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "prospect_fusion", Name: "regions_extracted_total"}, []string{"target"}),
		RegionsPublished: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "prospect_fusion", Name: "regions_published_total"}),
		PublishErrors:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "prospect_fusion", Name: "publish_errors_total"}),
		RenderCache:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "prospect_fusion", Name: "render_cache_total"}, []string{"result"}),
	}
}
