package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics records outbound partner notification deliveries.
type WebhookMetrics struct {
	duration  *prometheus.HistogramVec
	delivered *prometheus.CounterVec
	failed    *prometheus.CounterVec
	skipped   *prometheus.CounterVec
}

// NewWebhookMetrics registers webhook delivery metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_delivery_duration_seconds",
		Help:    "Duration of outbound webhook POSTs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"event_type"})
	delivered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_delivered",
		Help: "Webhook deliveries acknowledged with a 2xx status.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_failed",
		Help: "Webhook deliveries that errored or returned a non-2xx status.",
	}, []string{"event_type"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_skipped",
		Help: "Events with no matching integration or webhook entry.",
	}, []string{"event_type"})
	reg.MustRegister(duration, delivered, failed, skipped)
	return &WebhookMetrics{
		duration:  duration,
		delivered: delivered,
		failed:    failed,
		skipped:   skipped,
	}
}

// ObserveDelivery records the POST duration for an event type.
func (w *WebhookMetrics) ObserveDelivery(eventType string, duration time.Duration) {
	if w == nil || w.duration == nil {
		return
	}
	w.duration.WithLabelValues(normalizeLabel(eventType)).Observe(duration.Seconds())
}

// IncDelivered increments the delivered counter.
func (w *WebhookMetrics) IncDelivered(eventType string) {
	if w == nil || w.delivered == nil {
		return
	}
	w.delivered.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncFailed increments the failed counter.
func (w *WebhookMetrics) IncFailed(eventType string) {
	if w == nil || w.failed == nil {
		return
	}
	w.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncSkipped increments the skipped counter.
func (w *WebhookMetrics) IncSkipped(eventType string) {
	if w == nil || w.skipped == nil {
		return
	}
	w.skipped.WithLabelValues(normalizeLabel(eventType)).Inc()
}
