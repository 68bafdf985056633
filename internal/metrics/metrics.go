// Package metrics provides Prometheus metrics for the harvester.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "captainnews"

// Metrics owns a private registry so tests and multiple instances do not clash.
type Metrics struct {
	registry *prometheus.Registry

	// FetchTotal counts feed fetches by source and outcome.
	FetchTotal *prometheus.CounterVec
	// FetchDuration measures feed fetch + extraction time.
	FetchDuration *prometheus.HistogramVec
	// CategoryArticles tracks the article count of the latest run per category.
	CategoryArticles *prometheus.GaugeVec
	// CacheLookups counts read-path lookups by hit/miss.
	CacheLookups *prometheus.CounterVec
	// RefreshTotal counts cache rebuilds by trigger and outcome.
	RefreshTotal *prometheus.CounterVec
	// RefreshDuration measures cache rebuild time.
	RefreshDuration *prometheus.HistogramVec
	// LastRefresh is the unix time of the last successful rebuild.
	LastRefresh prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		FetchTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "feed_fetch_total",
				Help:      "Total number of feed fetches",
			},
			[]string{"source", "status"},
		),
		FetchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "feed_fetch_duration_seconds",
				Help:      "Duration of feed fetches in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
			},
			[]string{"source"},
		),
		CategoryArticles: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "category_articles",
				Help:      "Articles kept per category in the latest aggregation",
			},
			[]string{"category"},
		),
		CacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Total number of cache lookups on the read path",
			},
			[]string{"result"},
		),
		RefreshTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_refresh_total",
				Help:      "Total number of cache rebuilds",
			},
			[]string{"trigger", "status"},
		),
		RefreshDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cache_refresh_duration_seconds",
				Help:      "Duration of cache rebuilds in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"trigger"},
		),
		LastRefresh: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "cache_last_refresh_timestamp_seconds",
				Help:      "Unix time of the last successful cache rebuild",
			},
		),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveFetch records one feed outcome.
func (m *Metrics) ObserveFetch(source string, ok bool, elapsed time.Duration) {
	m.FetchTotal.WithLabelValues(source, status(ok)).Inc()
	m.FetchDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// ObserveCategory records the kept article count of a category.
func (m *Metrics) ObserveCategory(category string, articles int) {
	m.CategoryArticles.WithLabelValues(category).Set(float64(articles))
}

// ObserveLookup records a read-path cache lookup.
func (m *Metrics) ObserveLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveRefresh records a cache rebuild.
func (m *Metrics) ObserveRefresh(trigger string, ok bool, elapsed time.Duration) {
	m.RefreshTotal.WithLabelValues(trigger, status(ok)).Inc()
	m.RefreshDuration.WithLabelValues(trigger).Observe(elapsed.Seconds())
	if ok {
		m.LastRefresh.Set(float64(time.Now().Unix()))
	}
}

func status(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
