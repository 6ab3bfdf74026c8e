package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "praxisnote_cache_hits_total",
		Help: "Cache hits by layer (result, embedding).",
	}, []string{"layer"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "praxisnote_cache_misses_total",
		Help: "Cache misses by layer (result, embedding).",
	}, []string{"layer"})

	RetrievalLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "praxisnote_retrieval_latency_seconds",
		Help:    "End-to-end retrieval latency (embed + search + rank).",
		Buckets: prometheus.DefBuckets,
	})

	SynthesisLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "praxisnote_synthesis_latency_seconds",
		Help:    "Generative synthesis latency including retries.",
		Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 30},
	})

	RemoteAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "praxisnote_remote_attempts_total",
		Help: "Remote call attempts by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	BreakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "praxisnote_breaker_transitions_total",
		Help: "Circuit breaker state transitions by endpoint and new state.",
	}, []string{"endpoint", "state"})

	RateLimitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "praxisnote_ratelimit_rejections_total",
		Help: "Requests rejected by the per-tenant rate limiter.",
	})
)
