package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Domain-level Prometheus metrics. HTTP request metrics come from the
// fiberprometheus middleware; these cover the suggestion and presence cores.
var (
	SuggestionCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quad_suggestion_cache_hits_total",
		Help: "Number of suggestion rankings served from cache.",
	})

	SuggestionCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quad_suggestion_cache_misses_total",
		Help: "Number of suggestion rankings computed from the graph.",
	})

	CandidateLookupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quad_suggestion_candidate_lookup_failures_total",
		Help: "Number of candidates dropped from a ranking due to failed graph lookups.",
	})

	HeartbeatsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quad_presence_heartbeats_total",
		Help: "Number of presence heartbeats ingested.",
	}, []string{"source"})

	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quad_redis_errors_total",
		Help: "Number of Redis command errors.",
	}, []string{"command"})

	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quad_websocket_backpressure_drops_total",
		Help: "Messages dropped because a websocket client buffer was full or closed.",
	}, []string{"hub", "reason"})
)
