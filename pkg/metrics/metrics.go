// Package metrics exposes Prometheus metrics for action dispatch, transitions and license issuance.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Action outcomes by config type and status (succeeded, failed, skipped)
	ActionOutcome *prometheus.CounterVec

	ActionLatency *prometheus.HistogramVec

	// Transition outcomes by destination stage and result (applied, rejected, unchanged)
	TransitionOutcome *prometheus.CounterVec

	// Payment completion batches by purpose and result (committed, rolled_back, empty)
	PaymentCompletion *prometheus.CounterVec

	LicenseNumbersIssued *prometheus.CounterVec
}

// New registers every metric on registerer. A nil registerer uses the default registry.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registerer)

	return &Metrics{
		ActionOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "regflow_action_outcomes_total",
			Help: "Dispatched actions by config type and status",
		}, []string{"config_type", "status"}),

		ActionLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "regflow_action_duration_seconds",
			Help:    "Duration of action execution by config type",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"config_type"}),

		TransitionOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "regflow_transitions_total",
			Help: "Stage transitions by destination stage and result",
		}, []string{"stage", "result"}),

		PaymentCompletion: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "regflow_payment_completions_total",
			Help: "Payment completion batches by purpose and result",
		}, []string{"purpose", "result"}),

		LicenseNumbersIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "regflow_license_numbers_issued_total",
			Help: "License numbers issued by sequence key",
		}, []string{"sequence_key"}),
	}
}

// ObserveAction records the outcome and duration of one action.
func (m *Metrics) ObserveAction(configType, status string, d time.Duration) {
	if m != nil {
		m.ActionOutcome.WithLabelValues(configType, status).Inc()
		m.ActionLatency.WithLabelValues(configType).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementTransition(stage, result string) {
	if m != nil {
		m.TransitionOutcome.WithLabelValues(stage, result).Inc()
	}
}

func (m *Metrics) IncrementPaymentCompletion(purpose, result string) {
	if m != nil {
		m.PaymentCompletion.WithLabelValues(purpose, result).Inc()
	}
}

func (m *Metrics) IncrementLicenseNumber(sequenceKey string) {
	if m != nil {
		m.LicenseNumbersIssued.WithLabelValues(sequenceKey).Inc()
	}
}
