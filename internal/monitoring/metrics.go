package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the geofence engine. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// Registry reconciliations by outcome
	Reconciliations *prometheus.CounterVec

	// Time spent talking to the registration service
	ReconcileLatency prometheus.Histogram

	// Transition signals by kind and outcome
	Transitions *prometheus.CounterVec

	// Location samples by source
	LocationSamples *prometheus.CounterVec

	// Manual checks by result
	Checks *prometheus.CounterVec

	// Effect sink deliveries by endpoint and outcome
	Deliveries *prometheus.CounterVec
}

// NewMetrics registers every engine metric on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Reconciliations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "geoalarm_registry_reconciliations_total",
			Help: "Registry reconciliations by outcome",
		}, []string{"outcome"}), // outcome: "registered", "unregistered", "failed"

		ReconcileLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "geoalarm_registry_reconcile_duration_seconds",
			Help:    "Duration of calls to the registration service",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),

		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "geoalarm_transitions_total",
			Help: "Transition signals by kind and outcome",
		}, []string{"kind", "outcome"}),

		LocationSamples: f.NewCounterVec(prometheus.CounterOpts{
			Name: "geoalarm_location_samples_total",
			Help: "Location samples by source",
		}, []string{"source"}), // source: "current", "last_known", "denied", "unavailable"

		Checks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "geoalarm_checks_total",
			Help: "Manual membership checks by result",
		}, []string{"result"}),

		Deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "geoalarm_effect_deliveries_total",
			Help: "Effect sink webhook deliveries by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),
	}
}

// IncReconciliation records a registry reconciliation outcome.
func (m *Metrics) IncReconciliation(outcome string) {
	if m != nil {
		m.Reconciliations.WithLabelValues(outcome).Inc()
	}
}

// ObserveReconcileLatency records a registration service round trip.
func (m *Metrics) ObserveReconcileLatency(d time.Duration) {
	if m != nil {
		m.ReconcileLatency.Observe(d.Seconds())
	}
}

// IncTransition records a transition signal.
func (m *Metrics) IncTransition(kind, outcome string) {
	if m != nil {
		m.Transitions.WithLabelValues(kind, outcome).Inc()
	}
}

// IncLocationSample records where a location sample came from.
func (m *Metrics) IncLocationSample(source string) {
	if m != nil {
		m.LocationSamples.WithLabelValues(source).Inc()
	}
}

// IncCheck records a manual check result.
func (m *Metrics) IncCheck(result string) {
	if m != nil {
		m.Checks.WithLabelValues(result).Inc()
	}
}

// IncDelivery records an effect sink delivery.
func (m *Metrics) IncDelivery(endpoint, outcome string) {
	if m != nil {
		m.Deliveries.WithLabelValues(endpoint, outcome).Inc()
	}
}
