package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(webhookEventsTotal)
}

var webhookEventsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "billing_webhook_events_total",
		Help: "Inbound gateway callbacks by source and processing outcome.",
	},
	[]string{"source", "status"},
)

func IncWebhookEvent(source, status string) {
	webhookEventsTotal.WithLabelValues(norm(source), norm(status)).Inc()
}
