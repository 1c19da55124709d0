// Package metrics holds the Prometheus collectors for the review service.
//
// Collectors are registered with the default registry on import and served
// from /metrics by the HTTP layer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReviewMutationsTotal counts review writes by operation and outcome.
	ReviewMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_review_mutations_total",
			Help: "Total number of review create, update and delete attempts",
		},
		[]string{"op", "result"},
	)

	// ReviewCommitDuration tracks how long a review plus aggregate commit takes.
	ReviewCommitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "course_review_commit_duration_seconds",
			Help:    "Duration of review commits including the aggregate write",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "op"},
	)

	// CommitRetriesTotal counts optimistic commits that lost a race and retried.
	CommitRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_review_commit_retries_total",
			Help: "Total number of optimistic commit retries",
		},
		[]string{"backend"},
	)

	// CourseReadsCollapsed counts course reads answered by an in-flight call.
	CourseReadsCollapsed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "course_reads_collapsed_total",
			Help: "Total number of course reads served by a shared in-flight lookup",
		},
	)

	// APIRequestsTotal counts HTTP requests by route pattern and status.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	// APIRequestDuration tracks HTTP latency by route pattern.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Result labels for ReviewMutationsTotal.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// RecordReviewMutation counts one review write attempt.
func RecordReviewMutation(op, result string) {
	ReviewMutationsTotal.WithLabelValues(op, result).Inc()
}

// RecordCommit observes a commit's duration.
func RecordCommit(backend, op string, duration time.Duration) {
	ReviewCommitDuration.WithLabelValues(backend, op).Observe(duration.Seconds())
}

// RecordCommitRetry counts one lost optimistic race.
func RecordCommitRetry(backend string) {
	CommitRetriesTotal.WithLabelValues(backend).Inc()
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
