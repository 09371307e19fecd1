package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce       sync.Once
	requestsTotal      *prometheus.CounterVec
	latencySeconds     *prometheus.HistogramVec
	transitionsTotal   *prometheus.CounterVec
	failoversTotal     *prometheus.CounterVec
	auditDroppedTotal  prometheus.Counter
	descriptorCacheHit *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "session_api_requests_total",
			Help: "Total number of session API requests served.",
		}, []string{"method", "route", "status"})

		latencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "session_api_latency_seconds",
			Help:    "Latency distribution for session API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		transitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "session_transitions_total",
			Help: "Session lifecycle transitions by action and outcome.",
		}, []string{"action", "outcome"})

		failoversTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meeting_provider_failovers_total",
			Help: "Room creations that fell through to a non-primary provider.",
		}, []string{"provider"})

		auditDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audit_entries_dropped_total",
			Help: "Audit entries dropped because the sink buffer was full.",
		})

		descriptorCacheHit = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meeting_descriptor_cache_total",
			Help: "Meeting descriptor cache lookups by result.",
		}, []string{"result"})

		prometheus.MustRegister(requestsTotal, latencySeconds, transitionsTotal,
			failoversTotal, auditDroppedTotal, descriptorCacheHit)
	})
}

// Requests exposes the counter for API requests.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsTotal
}

// Latency exposes the latency histogram for API requests.
func Latency() *prometheus.HistogramVec {
	RegisterMetrics()
	return latencySeconds
}

// SessionTransitions exposes the lifecycle transition counter.
func SessionTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return transitionsTotal
}

// ProviderFailovers exposes the failover counter.
func ProviderFailovers() *prometheus.CounterVec {
	RegisterMetrics()
	return failoversTotal
}

// AuditDropped exposes the dropped audit entry counter.
func AuditDropped() prometheus.Counter {
	RegisterMetrics()
	return auditDroppedTotal
}

// DescriptorCache exposes the descriptor cache lookup counter.
func DescriptorCache() *prometheus.CounterVec {
	RegisterMetrics()
	return descriptorCacheHit
}
