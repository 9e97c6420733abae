// Package metrics exposes serving metrics to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ressKim-io/ReviewSense/api-service/internal/domain/entity"
)

// Collector records request, cache, rate-limit and classifier metrics
type Collector struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	cacheLookups    *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
	batchesTotal    *prometheus.CounterVec
	batchSize       prometheus.Histogram
	batchDuration   prometheus.Histogram
}

// NewCollector registers the serving metrics on reg
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of orchestrated requests by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Orchestrated request duration in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"endpoint"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Metrics cache lookups by key family and result",
			},
			[]string{"key", "result"},
		),
		rateLimited: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the rate limiter by tier",
			},
			[]string{"tier"},
		),
		batchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "classifier_batches_total",
				Help:      "Classifier invocations by status",
			},
			[]string{"status"},
		),
		batchSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "classifier_batch_size",
				Help:      "Number of texts per classifier invocation",
				Buckets:   prometheus.LinearBuckets(4, 4, 8),
			},
		),
		batchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "classifier_batch_duration_seconds",
				Help:      "Classifier invocation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}
}

// Record stores one request event
func (c *Collector) Record(event entity.RequestEvent) {
	c.requestsTotal.WithLabelValues(event.Endpoint, event.Outcome).Inc()
	c.requestDuration.WithLabelValues(event.Endpoint).Observe(event.Duration.Seconds())
}

// ObserveCacheLookup counts a cache hit or miss
func (c *Collector) ObserveCacheLookup(key string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(key, result).Inc()
}

// ObserveRejection counts a rate-limit rejection for tier
func (c *Collector) ObserveRejection(tier string) {
	c.rateLimited.WithLabelValues(tier).Inc()
}

// ObserveBatch records one classifier invocation
func (c *Collector) ObserveBatch(size int, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.batchesTotal.WithLabelValues(status).Inc()
	c.batchSize.Observe(float64(size))
	c.batchDuration.Observe(d.Seconds())
}
