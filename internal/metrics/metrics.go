// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for access control and enrollment.
type Metrics struct {
	Decisions          *prometheus.CounterVec
	AdminSessionChecks *prometheus.CounterVec
	Enrollments        *prometheus.CounterVec
	CheckoutSessions   *prometheus.CounterVec
	EventPublishErrors prometheus.Counter
}

// New registers the collectors on reg.  Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "academy_policy_decisions_total",
			Help: "Entitlement decisions by principal kind, action, resource, outcome and reason",
		}, []string{"principal", "action", "resource", "outcome", "reason"}),
		AdminSessionChecks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "academy_admin_session_checks_total",
			Help: "Admin session validations by result",
		}, []string{"result"}),
		Enrollments: f.NewCounterVec(prometheus.CounterOpts{
			Name: "academy_enrollments_total",
			Help: "Enrollment attempts by initiator and result",
		}, []string{"initiator", "result"}),
		CheckoutSessions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "academy_checkout_sessions_total",
			Help: "Billing checkout operations by operation and result",
		}, []string{"operation", "result"}),
		EventPublishErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "academy_event_publish_errors_total",
			Help: "Domain events that could not be published to the broker",
		}),
	}
}

// Noop returns collectors registered on a throwaway registry.
func Noop() *Metrics { return New(prometheus.NewRegistry()) }
