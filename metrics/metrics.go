package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	ExternalCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "external_calls_total",
			Help: "Calls to third-party APIs by service and outcome",
		},
		[]string{"service", "outcome"},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Redis cache lookups by cache name and result",
		},
		[]string{"cache", "result"},
	)

	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limited_requests_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"group"},
	)

	NotificationsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Notifications sent by channel and status",
		},
		[]string{"channel", "status"},
	)

	ScheduledJobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduled_job_runs_total",
			Help: "Scheduled job executions by job and outcome",
		},
		[]string{"job", "outcome"},
	)
)
