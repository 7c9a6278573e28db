package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(dashboardCommandTotal) }

var dashboardCommandTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "billing_dashboard_command_total",
		Help: "Tracks attempts to use dashboard endpoints.",
	},
	[]string{"command", "status"}, // status: 'authorized', 'unauthorized'
)

func IncDashboardCommand(command, status string) {
	dashboardCommandTotal.WithLabelValues(norm(command), norm(status)).Inc()
}
