package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics counts gateway events by outcome and collaborator calls that failed.
type WebhookMetrics struct {
	events        *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	collaborators *prometheus.CounterVec
}

// NewWebhookMetrics registers the webhook metrics on reg. A nil registerer
// yields a no-op recorder.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Gateway webhook events by type and processing status.",
	}, []string{"type", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_event_duration_seconds",
		Help:    "Time spent processing one gateway webhook event.",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})
	collaborators := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_collaborator_failures_total",
		Help: "Failed calls to post-payment collaborators.",
	}, []string{"collaborator"})
	reg.MustRegister(events, duration, collaborators)
	return &WebhookMetrics{
		events:        events,
		duration:      duration,
		collaborators: collaborators,
	}
}

func (w *WebhookMetrics) ObserveWebhookEvent(eventType, status string, elapsed time.Duration) {
	if w == nil || w.events == nil {
		return
	}
	eventType = normalizeLabel(eventType)
	w.events.WithLabelValues(eventType, normalizeLabel(status)).Inc()
	w.duration.WithLabelValues(eventType).Observe(elapsed.Seconds())
}

func (w *WebhookMetrics) IncCollaboratorFailure(collaborator string) {
	if w == nil || w.collaborators == nil {
		return
	}
	w.collaborators.WithLabelValues(normalizeLabel(collaborator)).Inc()
}
