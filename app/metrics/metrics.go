package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "holestpay"

// Metrics groups the service counters. A nil *Metrics is a valid no-op.
type Metrics struct {
	LockAcquisitions  *prometheus.CounterVec
	LockWaitSeconds   prometheus.Histogram
	LocksSwept        prometheus.Counter
	ProviderMessages  *prometheus.CounterVec
	SignatureMismatch *prometheus.CounterVec
	ReconcileOutcomes *prometheus.CounterVec
	OrderSyncs        *prometheus.CounterVec
	EventsPublished   *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		LockAcquisitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lock_acquisitions_total",
				Help:      "Order lock acquisition attempts by result",
			},
			[]string{"result"},
		),
		LockWaitSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "lock_wait_seconds",
				Help:      "Time spent acquiring order locks",
				Buckets:   []float64{0.01, 0.1, 0.5, 1, 2, 4, 8, 16, 32},
			},
		),
		LocksSwept: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "locks_swept_total",
				Help:      "Stale order lock rows removed",
			},
		),
		ProviderMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_messages_total",
				Help:      "Inbound provider messages by channel, topic and result",
			},
			[]string{"channel", "topic", "result"},
		),
		SignatureMismatch: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signature_mismatches_total",
				Help:      "Webhooks whose verificationhash did not match, by topic",
			},
			[]string{"topic"},
		),
		ReconcileOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconcile_outcomes_total",
				Help:      "Status reconciliation outcomes",
			},
			[]string{"outcome"},
		),
		OrderSyncs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "order_syncs_total",
				Help:      "Outbound order sync attempts by result",
			},
			[]string{"result"},
		),
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "order_events_published_total",
				Help:      "Order events handed to the event publisher by result",
			},
			[]string{"result"},
		),
	}
}

func (m *Metrics) ObserveLock(result string, waitSeconds float64) {
	if m == nil {
		return
	}
	m.LockAcquisitions.WithLabelValues(result).Inc()
	m.LockWaitSeconds.Observe(waitSeconds)
}

func (m *Metrics) AddSwept(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.LocksSwept.Add(float64(n))
}

func (m *Metrics) ObserveProviderMessage(channel, topic, result string) {
	if m == nil {
		return
	}
	m.ProviderMessages.WithLabelValues(channel, topic, result).Inc()
}

func (m *Metrics) ObserveSignatureMismatch(topic string) {
	if m == nil {
		return
	}
	m.SignatureMismatch.WithLabelValues(topic).Inc()
}

func (m *Metrics) ObserveReconcile(outcome string) {
	if m == nil {
		return
	}
	m.ReconcileOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveOrderSync(result string) {
	if m == nil {
		return
	}
	m.OrderSyncs.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveEventPublished(result string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(result).Inc()
}
