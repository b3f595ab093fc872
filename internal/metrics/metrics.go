package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_api_requests_total",
			Help: "Requests sent to the todo backend, by method and status code",
		},
		[]string{"method", "code"},
	)
	APIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "todo_api_request_duration_seconds",
			Help:    "Latency of requests to the todo backend",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_cache_lookups_total",
			Help: "List cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)
	CacheInvalidations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "todo_cache_invalidations_total",
			Help: "List cache invalidations after mutations",
		},
	)
)

func init() {
	prometheus.MustRegister(APIRequests)
	prometheus.MustRegister(APIDuration)
	prometheus.MustRegister(CacheLookups)
	prometheus.MustRegister(CacheInvalidations)
}
