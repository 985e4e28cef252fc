// Package metrics defines the Prometheus collectors exported at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts served requests by route pattern and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "globify_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration observes request latency by route pattern.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "globify_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RegistrationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "globify_registrations_total",
			Help: "Total number of accounts registered",
		},
	)

	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "globify_logins_total",
			Help: "Login attempts by result",
		},
		[]string{"result"},
	)

	VerificationMailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "globify_verification_mails_total",
			Help: "Verification mails by delivery result",
		},
		[]string{"result"},
	)

	EntryMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "globify_entry_mutations_total",
			Help: "Catalog entry mutations by category and operation",
		},
		[]string{"category", "op"},
	)
)

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, route, status string, d time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordLogin records a login attempt result such as "ok" or "invalid_credentials".
func RecordLogin(result string) {
	LoginsTotal.WithLabelValues(result).Inc()
}

// RecordVerificationMail records a delivery result: "sent", "failed" or "skipped".
func RecordVerificationMail(result string) {
	VerificationMailsTotal.WithLabelValues(result).Inc()
}

// RecordEntryMutation records a create, update, delete or share on a category.
func RecordEntryMutation(category, op string) {
	EntryMutationsTotal.WithLabelValues(category, op).Inc()
}
