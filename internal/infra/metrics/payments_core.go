package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		ordersTotal,
		paymentsRevenueTotal,
	)
}

var (
	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_orders_total",
			Help: "Orders by gateway and terminal status (completed/failed/refunded/cancelled), plus created.",
		},
		[]string{"gateway", "status"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_revenue_total",
			Help: "The total monetary value of completed orders in minor units, labeled by currency.",
		},
		[]string{"currency"},
	)
)

func IncOrder(gateway, status string) {
	ordersTotal.WithLabelValues(norm(gateway), norm(status)).Inc()
}

func AddRevenue(currency string, amount int64) {
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(float64(amount))
}
