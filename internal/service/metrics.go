package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the payment lifecycle collectors.
type Metrics struct {
	capturesTotal  *prometheus.CounterVec
	refundsTotal   prometheus.Counter
	releasesTotal  prometheus.Counter
	escrowBacklog  prometheus.Gauge
	notifyDegraded prometheus.Counter
}

// NewMetrics registers the lifecycle collectors on the given registerer.
// A nil registerer uses the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		capturesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ethioshop",
				Subsystem: "payment",
				Name:      "captures_total",
				Help:      "Payment capture attempts by method and outcome.",
			},
			[]string{"method", "outcome"},
		),
		refundsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "ethioshop",
				Subsystem: "payment",
				Name:      "refunds_total",
				Help:      "Completed refund transitions.",
			},
		),
		releasesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "ethioshop",
				Subsystem: "escrow",
				Name:      "releases_total",
				Help:      "Completed escrow releases.",
			},
		),
		escrowBacklog: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "ethioshop",
				Subsystem: "escrow",
				Name:      "held_past_window",
				Help:      "Delivered paid orders whose escrow is held past the release window.",
			},
		),
		notifyDegraded: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "ethioshop",
				Subsystem: "notify",
				Name:      "degraded_total",
				Help:      "Committed transitions whose notification emit failed.",
			},
		),
	}
}

// ObserveCapture records one capture attempt.
func (m *Metrics) ObserveCapture(method, outcome string) {
	if m == nil {
		return
	}
	m.capturesTotal.WithLabelValues(method, outcome).Inc()
}

// ObserveRefund records one completed refund.
func (m *Metrics) ObserveRefund() {
	if m == nil {
		return
	}
	m.refundsTotal.Inc()
}

// ObserveRelease records one completed escrow release.
func (m *Metrics) ObserveRelease() {
	if m == nil {
		return
	}
	m.releasesTotal.Inc()
}

// SetEscrowBacklog records the current overdue escrow count.
func (m *Metrics) SetEscrowBacklog(n int) {
	if m == nil {
		return
	}
	m.escrowBacklog.Set(float64(n))
}

// ObserveNotifyDegraded records one failed notification emit on a
// committed transition.
func (m *Metrics) ObserveNotifyDegraded() {
	if m == nil {
		return
	}
	m.notifyDegraded.Inc()
}
