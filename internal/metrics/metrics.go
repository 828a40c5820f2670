// Package metrics exposes the portal's Prometheus instruments.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// PrometheusMetrics records upstream fetches and listing activity.
type PrometheusMetrics struct {
	gatherer        prometheus.Gatherer
	fetchDuration   *prometheus.HistogramVec
	fetchErrors     *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	staleDiscarded  prometheus.Counter
	activeSessions  prometheus.Gauge
	seedFetchedTime prometheus.Gauge
}

// NewPrometheusMetrics registers the instruments on registry. A nil registry
// uses the default registerer and gatherer.
func NewPrometheusMetrics(registry *prometheus.Registry) *PrometheusMetrics {
	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if registry != nil {
		registerer = registry
		gatherer = registry
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		gatherer: gatherer,
		fetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webtools_fetch_duration_seconds",
				Help:    "Duration of upstream API fetches in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"resource", "outcome"},
		),
		fetchErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webtools_fetch_errors_total",
				Help: "Total number of failed upstream API fetches by error kind",
			},
			[]string{"resource", "kind"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webtools_page_cache_lookups_total",
				Help: "Page cache lookups by result",
			},
			[]string{"result"},
		),
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webtools_listing_transitions_total",
				Help: "Listing state machine transitions by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		staleDiscarded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "webtools_listing_stale_responses_total",
				Help: "Responses discarded because the selected tag changed while they were in flight",
			},
		),
		activeSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "webtools_active_sessions",
				Help: "Current number of visitor sessions",
			},
		),
		seedFetchedTime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "webtools_seed_fetched_timestamp_seconds",
				Help: "Unix time of the last successful seed prefetch",
			},
		),
	}
}

// ObserveFetch records one upstream fetch. An empty kind means success.
func (p *PrometheusMetrics) ObserveFetch(resource string, duration time.Duration, kind string) {
	outcome := OutcomeSuccess
	if kind != "" {
		outcome = OutcomeError
		p.fetchErrors.WithLabelValues(resource, kind).Inc()
	}
	p.fetchDuration.WithLabelValues(resource, outcome).Observe(duration.Seconds())
}

// ObserveCacheLookup records a page cache hit or miss.
func (p *PrometheusMetrics) ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveTransition records a listing operation outcome.
func (p *PrometheusMetrics) ObserveTransition(operation string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	p.transitions.WithLabelValues(operation, outcome).Inc()
}

// ObserveStale records a discarded stale response.
func (p *PrometheusMetrics) ObserveStale() {
	p.staleDiscarded.Inc()
}

// SetActiveSessions sets the session gauge.
func (p *PrometheusMetrics) SetActiveSessions(count int) {
	p.activeSessions.Set(float64(count))
}

// SetSeedFetched records when the seed was last refreshed.
func (p *PrometheusMetrics) SetSeedFetched(t time.Time) {
	p.seedFetchedTime.Set(float64(t.Unix()))
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}
