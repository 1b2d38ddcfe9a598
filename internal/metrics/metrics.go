// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// UpstreamRequests counts provider API calls by capability and outcome
// (ok, error). Mock-mode calls are not upstream calls and are not counted.
var UpstreamRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "omnimarket_upstream_requests_total",
		Help: "Total upstream provider requests",
	},
	[]string{"provider", "capability", "outcome"},
)

// UpstreamRetries counts retry attempts against provider APIs. The first
// attempt of a call is not a retry.
var UpstreamRetries = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "omnimarket_upstream_retry_attempts_total",
		Help: "Total retry attempts against provider APIs",
	},
	[]string{"provider"},
)

// HTTPRequestDuration records handler latency by route template and status.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "omnimarket_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"route", "status"},
)

// SyncRuns counts sync executions per provider and result.
var SyncRuns = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "omnimarket_sync_runs_total",
		Help: "Total sync executions",
	},
	[]string{"provider", "outcome"},
)
