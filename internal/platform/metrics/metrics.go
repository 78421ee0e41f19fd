package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "keyline_webhook_deliveries_total",
		Help: "Webhook notifications by final state.",
	}, []string{"state"})

	KeyRenewals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "keyline_key_renewals_total",
		Help: "Renewal attempts by result.",
	}, []string{"result"})

	JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "keyline_job_runs_total",
		Help: "Job invocations by name and status.",
	}, []string{"job", "status"})

	PurchaserBalance = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "keyline_purchaser_balance_usd_cents",
		Help: "Operator purchaser wallet balance in US cents, per network.",
	}, []string{"network"})
)
