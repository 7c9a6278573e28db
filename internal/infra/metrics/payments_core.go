package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		payRequestsTotal,
		payStatusTotal,
		paymentsRevenueTotal,
	)
}

var (
	// result: created|rate_limited|plan_not_found|error
	payRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_pay_requests_total",
			Help: "Payment requests by result.",
		},
		[]string{"result"},
	)

	// result: pending|resolved|error
	payStatusTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_pay_status_total",
			Help: "Payment status lookups by result.",
		},
		[]string{"result"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_payments_revenue_total",
			Help: "The total monetary value of reconciled payments, labeled by currency.",
		},
		[]string{"currency"},
	)
)

func IncPayRequest(result string) {
	payRequestsTotal.WithLabelValues(norm(result)).Inc()
}

func IncPayStatus(result string) {
	payStatusTotal.WithLabelValues(norm(result)).Inc()
}

func AddPaymentRevenue(currency string, amount float64) {
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(amount)
}
