package f1data

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "f1vis",
		Subsystem: "provider",
		Name:      "requests_total",
		Help:      "Upstream provider requests by endpoint.",
	}, []string{"endpoint"})

	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "f1vis",
		Subsystem: "provider",
		Name:      "cache_hits_total",
		Help:      "Provider responses served from the on-disk cache.",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "f1vis",
		Subsystem: "provider",
		Name:      "cache_misses_total",
		Help:      "Provider requests that missed the on-disk cache.",
	})
)
