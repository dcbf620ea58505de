package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(maintenanceRowsTotal, maintenanceRunsTotal) }

var (
	maintenanceRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_maintenance_rows_total",
			Help: "Rows touched by maintenance sweeps, labeled by job.",
		},
		[]string{"job"}, // purge_codes | deactivate_users
	)

	maintenanceRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_maintenance_runs_total",
			Help: "Maintenance sweeps by status.",
		},
		[]string{"status"}, // ok | error
	)
)

func AddMaintenanceRows(job string, n int64) {
	if n <= 0 {
		return
	}
	maintenanceRowsTotal.WithLabelValues(norm(job)).Add(float64(n))
}

func IncMaintenanceRun(status string) {
	maintenanceRunsTotal.WithLabelValues(norm(status)).Inc()
}
