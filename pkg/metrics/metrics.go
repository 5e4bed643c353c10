// Package metrics provides Prometheus metrics for the price aggregator.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// FeedReadsTotal is a counter of raw feed reads, by outcome.
	FeedReadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_reads_total",
			Help: "Total number of feed reads, labelled by source handle, feed type and status",
		},
		[]string{"handle", "type", "status"},
	)

	// SourceExclusionsTotal is a counter of sources excluded from an aggregation round.
	SourceExclusionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_exclusions_total",
			Help: "Total number of per-source exclusions, labelled by handle and reason",
		},
		[]string{"handle", "reason"},
	)

	// AggregationDuration is a histogram of aggregation durations.
	AggregationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aggregation_duration_seconds",
			Help:    "Duration of price aggregation operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// QuorumFailuresTotal is a counter of aggregations aborted for lack of quorum.
	QuorumFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quorum_failures_total",
			Help: "Total number of aggregations that failed because too few sources responded",
		},
		[]string{"pair"},
	)

	// RegisteredSources is a gauge of the current source registry size.
	RegisteredSources = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "registered_sources",
			Help: "Number of sources currently registered",
		},
	)

	// RegisteredPairs is a gauge of the current asset pair registry size.
	RegisteredPairs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "registered_pairs",
			Help: "Number of asset pairs currently registered",
		},
	)

	// HTTPRequestsTotal is a counter of total HTTP requests.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"endpoint", "status"},
	)

	// HTTPRequestDuration is a histogram of HTTP request latencies.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"endpoint"},
	)
)

// Init initializes the Prometheus metrics registry.
func Init() {
	prometheus.MustRegister(
		FeedReadsTotal,
		SourceExclusionsTotal,
		AggregationDuration,
		QuorumFailuresTotal,
		RegisteredSources,
		RegisteredPairs,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	)
}

// ServeHTTP serves Prometheus metrics on the specified address.
func ServeHTTP(addr string) error {
	http.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:         addr,
		Handler:      http.DefaultServeMux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server.ListenAndServe()
}

// RecordFeedRead records the outcome of a single feed read.
func RecordFeedRead(handle, feedType, status string) {
	FeedReadsTotal.WithLabelValues(handle, feedType, status).Inc()
}

// RecordSourceExclusion records a source excluded from an aggregation round.
func RecordSourceExclusion(handle, reason string) {
	SourceExclusionsTotal.WithLabelValues(handle, reason).Inc()
}

// RecordAggregation records a price aggregation operation.
func RecordAggregation(method string, duration time.Duration) {
	AggregationDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordQuorumFailure records an aggregation that failed quorum.
func RecordQuorumFailure(pair string) {
	QuorumFailuresTotal.WithLabelValues(pair).Inc()
}

// SetRegisteredSources records the current source registry size.
func SetRegisteredSources(n int) {
	RegisteredSources.Set(float64(n))
}

// SetRegisteredPairs records the current pair registry size.
func SetRegisteredPairs(n int) {
	RegisteredPairs.Set(float64(n))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}
