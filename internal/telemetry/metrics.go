package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ProviderErrors  *prometheus.CounterVec
	WebhookEvents   *prometheus.CounterVec
	RequoteTotal    *prometheus.CounterVec
}

// NewMetrics creates and registers Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courierhub_requests_total",
				Help: "Total number of requests by operation, provider, and status",
			},
			[]string{"operation", "provider", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "courierhub_request_duration_seconds",
				Help:    "Request duration in seconds by operation and provider",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "provider"},
		),
		ProviderErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courierhub_provider_errors_total",
				Help: "Total provider API errors by provider and error type",
			},
			[]string{"provider", "error_type"},
		),
		WebhookEvents: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courierhub_webhook_events_total",
				Help: "Inbound webhook events by provider and event type",
			},
			[]string{"provider", "event_type"},
		),
		RequoteTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courierhub_requotes_total",
				Help: "Automatic re-quotations during order creation, by provider",
			},
			[]string{"provider"},
		),
	}
}

// RecordRequest records a request metric.
func (m *Metrics) RecordRequest(operation, provider, status string, duration float64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(operation, provider, status).Inc()
	m.RequestDuration.WithLabelValues(operation, provider).Observe(duration)
}

// RecordError records a provider error metric.
func (m *Metrics) RecordError(provider, errorType string) {
	if m == nil {
		return
	}
	m.ProviderErrors.WithLabelValues(provider, errorType).Inc()
}

// RecordWebhookEvent records an inbound webhook event.
func (m *Metrics) RecordWebhookEvent(provider, eventType string) {
	if m == nil {
		return
	}
	m.WebhookEvents.WithLabelValues(provider, eventType).Inc()
}

// RecordRequote records an automatic re-quotation.
func (m *Metrics) RecordRequote(provider string) {
	if m == nil {
		return
	}
	m.RequoteTotal.WithLabelValues(provider).Inc()
}
