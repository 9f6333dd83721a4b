package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "finagent_build_info",
			Help: "Build information of the finance agent",
		},
		[]string{"version", "commit", "date"},
	)

	QueryAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finagent_query_attempts_total",
			Help: "Total number of query loop attempts by result",
		},
		[]string{"result"},
	)

	QueryLoopOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finagent_query_loop_outcomes_total",
			Help: "Total number of query loop invocations by outcome",
		},
		[]string{"outcome"},
	)

	QueryLoopDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "finagent_query_loop_duration_seconds",
			Help:    "Duration of query loop invocations",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 0.05s to ~102s
		},
	)

	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finagent_llm_requests_total",
			Help: "Total number of generation service requests",
		},
		[]string{"kind", "status"},
	)

	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "finagent_llm_request_duration_seconds",
			Help:    "Duration of generation service requests",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"kind"},
	)

	StoreQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finagent_store_queries_total",
			Help: "Total number of read-only store executions",
		},
		[]string{"driver", "status"},
	)

	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "finagent_store_query_duration_seconds",
			Help:    "Duration of read-only store executions",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
		},
		[]string{"driver"},
	)

	ChatRoutesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finagent_chat_routes_total",
			Help: "Total number of chat messages by route",
		},
		[]string{"route"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finagent_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "finagent_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		},
		[]string{"endpoint"},
	)
)
