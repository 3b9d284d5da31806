package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics tracks gateway callback reconciliation and refunds.
type PaymentMetrics struct {
	reconcile      *prometheus.CounterVec
	refunds        prometheus.Counter
	gatewayLatency *prometheus.HistogramVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	reconcile := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_payment_reconcile_total",
		Help: "Gateway callbacks reconciled, by source and outcome.",
	}, []string{"source", "outcome"})
	refunds := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_payment_refunds_total",
		Help: "Refunds recorded against successful transactions.",
	})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_payment_gateway_request_seconds",
		Help:    "Latency of outbound gateway API calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(reconcile, refunds, latency)
	return &PaymentMetrics{
		reconcile:      reconcile,
		refunds:        refunds,
		gatewayLatency: latency,
	}
}

func (p *PaymentMetrics) ObserveReconcile(source, outcome string) {
	if p == nil || p.reconcile == nil {
		return
	}
	p.reconcile.WithLabelValues(normalizeLabel(source), normalizeLabel(outcome)).Inc()
}

func (p *PaymentMetrics) IncRefund() {
	if p == nil || p.refunds == nil {
		return
	}
	p.refunds.Inc()
}

func (p *PaymentMetrics) ObserveGatewayCall(operation string, duration time.Duration) {
	if p == nil || p.gatewayLatency == nil {
		return
	}
	p.gatewayLatency.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}
