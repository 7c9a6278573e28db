package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobRunsTotal, aliasesSweptTotal) }

var (
	jobRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_job_runs_total",
			Help: "Background job runs, labeled by job and status.",
		},
		[]string{"job", "status"}, // status: 'ok', 'error'
	)

	aliasesSweptTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_payment_aliases_swept_total",
			Help: "Expired payment aliases removed by the sweeper.",
		},
	)
)

func IncJobRun(job, status string) {
	jobRunsTotal.WithLabelValues(norm(job), norm(status)).Inc()
}

func AddAliasesSwept(n int) {
	aliasesSweptTotal.Add(float64(n))
}
