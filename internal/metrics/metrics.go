// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "smartexpense"

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "HTTP requests by route pattern, method and status class.",
}, []string{"route", "method", "status"})

var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency by route pattern.",
	Buckets:   prometheus.DefBuckets,
}, []string{"route"})

var SessionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "session",
	Name:      "transitions_total",
	Help:      "Session state machine transitions.",
}, []string{"from", "to"})

var AuthFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "session",
	Name:      "auth_failures_total",
	Help:      "Rejected login, signup and verification attempts by reason.",
}, []string{"reason"})

var LedgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "operations_total",
	Help:      "Transactions added or deleted.",
}, []string{"op", "type"})

var LedgerSize = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "transactions",
	Help:      "Number of transactions in the ledger after the last write.",
})

var AdvisorRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "advisor",
	Name:      "requests_total",
	Help:      "AI tip requests by provider and outcome (ok, empty, error, offline, cached).",
}, []string{"provider", "outcome"})

var AdvisorLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "advisor",
	Name:      "latency_seconds",
	Help:      "Latency of AI provider calls.",
	Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
})

var Backups = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "backup",
	Name:      "total",
	Help:      "Backups by target and result.",
}, []string{"target", "result"})

var Exports = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "export",
	Name:      "total",
	Help:      "Exports by format and result.",
}, []string{"format", "result"})

var RateLimited = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "rate_limited_total",
	Help:      "Requests rejected by the auth rate limiter.",
})

// Result maps an error to the "ok"/"error" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
