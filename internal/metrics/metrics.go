// Package metrics registers the Prometheus collectors of the service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var histogramBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

var (
	RequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bms",
		Subsystem: "api",
		Name:      "http_requests_total",
		Help:      "Count of processed HTTP requests",
	}, []string{"method", "route", "status"})

	RequestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bms",
		Subsystem: "api",
		Name:      "http_request_duration_seconds",
		Help:      "Latency distribution of HTTP handlers",
		Buckets:   histogramBuckets,
	}, []string{"method", "route", "status"})

	RateLimitHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bms",
		Subsystem: "api",
		Name:      "rate_limit_hits_total",
		Help:      "Number of rate-limited responses",
	}, []string{"route"})

	PolicyDenials = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bms",
		Subsystem: "policy",
		Name:      "denials_total",
		Help:      "Requests rejected by the access policy",
	}, []string{"route"})

	SchedulingConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bms",
		Subsystem: "scheduling",
		Name:      "conflicts_total",
		Help:      "Meeting writes rejected because a participant was busy",
	})
)

// Register adds every collector to reg. Collectors already registered
// are left in place.
func Register(reg prometheus.Registerer) {
	collectors := []prometheus.Collector{RequestTotal, RequestLatency, RateLimitHits, PolicyDenials, SchedulingConflicts}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				panic(err)
			}
		}
	}
}

func RecordRequest(method, route string, status int, duration time.Duration) {
	labels := prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	RequestTotal.With(labels).Inc()
	RequestLatency.With(labels).Observe(duration.Seconds())
}
