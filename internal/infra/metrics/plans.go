package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		planActivationsTotal,
		plansConfigured,
	)
}

var (
	planActivationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_plan_activations_total",
			Help: "Custom plans activated or extended by a reconciled payment.",
		},
		[]string{"plan"},
	)

	plansConfigured = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "billing_plans_configured",
			Help: "Number of custom plans currently configured.",
		},
	)
)

func IncPlanActivated(planID string) {
	planActivationsTotal.WithLabelValues(norm(planID)).Inc()
}

func SetPlansConfigured(n int) {
	plansConfigured.Set(float64(n))
}
