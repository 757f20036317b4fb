package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline groups the counters published by the processing pipeline.
type Pipeline struct {
	ProviderCalls     prometheus.Counter
	ProviderFailures  prometheus.Counter
	CacheHits         prometheus.Counter
	NegativeCacheHits prometheus.Counter
	LegsProcessed     prometheus.Counter
	Runs              *prometheus.CounterVec
	RunDuration       prometheus.Histogram
}

func NewPipeline() *Pipeline {
	return &Pipeline{
		ProviderCalls: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kilomet_routing_provider_calls_total",
			Help: "Calls issued to the external routing provider.",
		}),
		ProviderFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kilomet_routing_provider_failures_total",
			Help: "Routing provider calls that returned an error.",
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kilomet_route_cache_hits_total",
			Help: "Distance lookups served from the route cache.",
		}),
		NegativeCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kilomet_route_cache_negative_hits_total",
			Help: "Distance lookups failed fast by the negative cache.",
		}),
		LegsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kilomet_legs_processed_total",
			Help: "Delivery legs resolved during processing runs.",
		}),
		Runs: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kilomet_processing_runs_total",
			Help: "Processing runs by terminal outcome.",
		}, []string{"outcome"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "kilomet_processing_run_duration_seconds",
			Help:    "Wall time of processing runs.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
}
