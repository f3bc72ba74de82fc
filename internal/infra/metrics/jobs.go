package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		renewalRemindersTotal,
		subscriptionsExpiredTotal,
		reconcilerOrdersTotal,
	)
}

var (
	renewalRemindersTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_renewal_reminders_total",
			Help: "Renewal reminder emails enqueued by the daily worker.",
		},
	)

	subscriptionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_subscriptions_expired_total",
			Help: "Entitlements flipped to expired by the daily sweep.",
		},
	)

	reconcilerOrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_reconciler_orders_total",
			Help: "Stale pending orders re-checked by the reconciler, by outcome.",
		},
		[]string{"outcome"},
	)
)

func AddRenewalReminders(n int)     { renewalRemindersTotal.Add(float64(n)) }
func AddSubscriptionsExpired(n int) { subscriptionsExpiredTotal.Add(float64(n)) }
func IncReconciledOrder(outcome string) {
	reconcilerOrdersTotal.WithLabelValues(norm(outcome)).Inc()
}
