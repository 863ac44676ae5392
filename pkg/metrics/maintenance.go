package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MaintenanceMetrics records cron job runs and the rows they touched.
type MaintenanceMetrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	rows     *prometheus.CounterVec
}

// NewMaintenanceMetrics registers the maintenance metrics on the provided registerer.
func NewMaintenanceMetrics(reg prometheus.Registerer) *MaintenanceMetrics {
	if reg == nil {
		return &MaintenanceMetrics{}
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "maintenance_job_runs_total",
		Help: "Maintenance job executions by result.",
	}, []string{"job", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "maintenance_job_duration_seconds",
		Help:    "Duration of maintenance jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "maintenance_rows_affected_total",
		Help: "Rows deleted or updated by maintenance jobs.",
	}, []string{"job"})
	reg.MustRegister(runs, duration, rows)
	return &MaintenanceMetrics{runs: runs, duration: duration, rows: rows}
}

// ObserveRun records one job execution.
func (m *MaintenanceMetrics) ObserveRun(job string, ok bool, duration time.Duration) {
	if m == nil || m.runs == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.runs.WithLabelValues(normalizeLabel(job), result).Inc()
	m.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// AddRows counts rows a job deleted or updated.
func (m *MaintenanceMetrics) AddRows(job string, rows int64) {
	if m == nil || m.rows == nil || rows <= 0 {
		return
	}
	m.rows.WithLabelValues(normalizeLabel(job)).Add(float64(rows))
}
