// Package metrics exposes Prometheus collectors for the classification
// service. The /metrics endpoint serves the default registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookRequests counts webhook invocations by outcome.
	WebhookRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mailsense_webhook_requests_total",
		Help: "Webhook invocations by outcome.",
	}, []string{"status"})

	// MessagesClassified counts messages run through the pipeline.
	MessagesClassified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mailsense_messages_classified_total",
		Help: "Messages classified by final status.",
	}, []string{"status"})

	// LabelsApplied counts Gmail labels applied to messages.
	LabelsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mailsense_labels_applied_total",
		Help: "Gmail labels applied to messages.",
	})

	// InferenceErrors counts failed zero-shot inference calls.
	InferenceErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mailsense_inference_errors_total",
		Help: "Failed zero-shot inference calls.",
	})

	// ProcessingDuration observes end-to-end pipeline latency.
	ProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mailsense_processing_duration_seconds",
		Help:    "End-to-end message processing latency.",
		Buckets: prometheus.DefBuckets,
	})
)
