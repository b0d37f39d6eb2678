// Package metrics defines Prometheus metrics for the API server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Webhook dispatch metrics
var (
	// WebhookDispatchTotal tracks dispatch outcomes per event type and status
	WebhookDispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_dispatch_total",
			Help: "Total number of webhook dispatches by event type and status",
		},
		[]string{"event_type", "status"},
	)

	// WebhookDispatchDuration tracks end-to-end dispatch duration per webhook
	WebhookDispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webhook_dispatch_duration_seconds",
			Help:    "End-to-end webhook dispatch duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"event_type"},
	)

	// WebhookReplaysBlocked tracks events dropped by the replay guard
	WebhookReplaysBlocked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webhook_replays_blocked_total",
			Help: "Total number of duplicate webhook events blocked by the replay guard",
		},
	)

	// WebhookSecretMismatches tracks inbound requests with unknown secrets
	WebhookSecretMismatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webhook_secret_mismatches_total",
			Help: "Total number of inbound webhook requests rejected for an unknown secret",
		},
	)
)

// Delivery provider metrics
var (
	// ProviderRequestsTotal tracks provider API calls by provider, operation and outcome
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_provider_requests_total",
			Help: "Total number of delivery provider API calls by provider, operation and outcome",
		},
		[]string{"provider", "operation", "outcome"},
	)

	// ProviderRequestDuration tracks provider API call duration
	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "delivery_provider_request_duration_seconds",
			Help:    "Delivery provider API call duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "operation"},
	)
)
