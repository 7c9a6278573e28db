package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		WebhookRequests,
		WebhookDuration,
	)
}

var (
	// Count of webhook calls grouped by result and bounded reason.
	// result: ok|fail|ignored
	// reason: activated|unmatched|duplicate|amount_too_low|plan_missing|empty|bad_json|unauthorized|error
	WebhookRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_webhook_requests_total",
			Help: "Count of /dashboard/payment/webhook calls by result and reason.",
		},
		[]string{"result", "reason"},
	)

	// Latency of the webhook handler grouped by result.
	WebhookDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "billing_webhook_duration_seconds",
			Help:    "Duration of /dashboard/payment/webhook handler in seconds.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"result"},
	)
)
