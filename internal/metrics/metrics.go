// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RegistrationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "registrations_created_total",
		Help: "Registrations accepted and persisted.",
	})

	SubmissionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "registration_submissions_rejected_total",
		Help: "Submissions rejected before persistence, by reason.",
	}, []string{"reason"})

	StatusUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "registration_status_updates_total",
		Help: "Status updates applied, by new status.",
	}, []string{"status"})

	EventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "registration_events_processed_total",
		Help: "Lifecycle events handled by the audit consumer, by type and result.",
	}, []string{"type", "result"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests served.",
	}, []string{"method", "route", "code"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)
