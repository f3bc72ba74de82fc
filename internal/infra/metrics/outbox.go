package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(outboxEmailsTotal)
}

var outboxEmailsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "billing_outbox_emails_total",
		Help: "Outbox deliveries by kind and outcome (sent/failed/dead).",
	},
	[]string{"kind", "outcome"},
)

func IncOutboxEmail(kind, outcome string) {
	outboxEmailsTotal.WithLabelValues(norm(kind), norm(outcome)).Inc()
}
