// Package metrics holds the process-wide Prometheus collectors. They are
// registered with the default registry at init and exposed by promhttp on
// /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snippethub_http_requests_total",
			Help: "HTTP requests by method, route pattern and status code.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snippethub_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	Registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snippethub_registrations_total",
			Help: "Accounts created, by role granted and method (password, github).",
		},
		[]string{"role", "method"},
	)

	Logins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snippethub_logins_total",
			Help: "Login attempts by method and outcome (success, failure).",
		},
		[]string{"method", "outcome"},
	)

	Votes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snippethub_votes_total",
			Help: "Vote toggles by resulting action (created, switched, retracted).",
		},
		[]string{"action"},
	)

	VoteRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snippethub_vote_retries_total",
		Help: "Vote transactions re-run after losing a concurrent insert.",
	})

	AuditFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snippethub_audit_failures_total",
		Help: "Audit entries that could not be written.",
	})
)
