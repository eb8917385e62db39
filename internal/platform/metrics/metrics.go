package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine-wide Prometheus metrics. Services treat it as
// optional; a nil *Metrics disables collection (unit tests pass nil).
type Metrics struct {
	ClaimsSubmitted prometheus.Counter
	ClaimsReviewed  *prometheus.CounterVec

	AccountActions *prometheus.CounterVec
	ListingActions *prometheus.CounterVec

	NotificationsEnqueued     prometheus.Counter
	NotificationsDispatched   prometheus.Counter
	NotificationsDeadLettered prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		ClaimsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hometrust_claims_submitted_total",
			Help: "Total number of trust claims submitted",
		}),
		ClaimsReviewed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hometrust_claims_reviewed_total",
			Help: "Total number of trust claim reviews by decision",
		}, []string{"decision"}),
		AccountActions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hometrust_account_moderation_actions_total",
			Help: "Total number of account moderation actions by action",
		}, []string{"action"}),
		ListingActions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hometrust_listing_moderation_actions_total",
			Help: "Total number of listing moderation actions by action",
		}, []string{"action"}),
		NotificationsEnqueued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hometrust_notifications_enqueued_total",
			Help: "Total number of notifications written to the outbox",
		}),
		NotificationsDispatched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hometrust_notifications_dispatched_total",
			Help: "Total number of notifications successfully published",
		}),
		NotificationsDeadLettered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hometrust_notifications_dead_lettered_total",
			Help: "Total number of notifications moved to the dead-letter queue",
		}),
	}
}

// IncClaimSubmitted records a claim submission.
func (m *Metrics) IncClaimSubmitted() {
	if m != nil {
		m.ClaimsSubmitted.Inc()
	}
}

// IncClaimReviewed records a review outcome.
func (m *Metrics) IncClaimReviewed(decision string) {
	if m != nil {
		m.ClaimsReviewed.WithLabelValues(decision).Inc()
	}
}

// IncAccountAction records an account moderation action.
func (m *Metrics) IncAccountAction(action string) {
	if m != nil {
		m.AccountActions.WithLabelValues(action).Inc()
	}
}

// IncListingAction records a listing moderation action.
func (m *Metrics) IncListingAction(action string) {
	if m != nil {
		m.ListingActions.WithLabelValues(action).Inc()
	}
}

// IncNotificationEnqueued records an outbox write.
func (m *Metrics) IncNotificationEnqueued() {
	if m != nil {
		m.NotificationsEnqueued.Inc()
	}
}

// IncNotificationDispatched records a successful publish.
func (m *Metrics) IncNotificationDispatched() {
	if m != nil {
		m.NotificationsDispatched.Inc()
	}
}

// IncNotificationDeadLettered records a notification that exhausted retries.
func (m *Metrics) IncNotificationDeadLettered() {
	if m != nil {
		m.NotificationsDeadLettered.Inc()
	}
}
