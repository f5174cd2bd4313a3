// Package metrics exposes prometheus counters for the payment engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
)

type Metrics struct {
	WebhooksTotal      *prometheus.CounterVec
	ApprovalsTotal     *prometheus.CounterVec
	DisbursementsTotal *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		WebhooksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lokapasar_payment_webhooks_total",
			Help: "Gateway payment notifications by outcome.",
		}, []string{"outcome"}),
		ApprovalsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lokapasar_manual_approvals_total",
			Help: "Manual transaction approvals by outcome.",
		}, []string{"outcome"}),
		DisbursementsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lokapasar_fee_disbursements_total",
			Help: "Platform fee disbursement attempts by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) RecordWebhook(outcome string) {
	if m == nil {
		return
	}
	m.WebhooksTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordApproval(outcome string) {
	if m == nil {
		return
	}
	m.ApprovalsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordDisbursement(outcome string) {
	if m == nil {
		return
	}
	m.DisbursementsTotal.WithLabelValues(outcome).Inc()
}

var Module = fx.Module("metrics",
	fx.Provide(New),
)
