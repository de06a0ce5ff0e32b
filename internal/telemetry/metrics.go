package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	JobsStarted        = prometheus.NewCounter(prometheus.CounterOpts{Name: "mailer_jobs_started_total", Help: "Bulk-mail jobs started"})
	JobsFinished       = prometheus.NewCounter(prometheus.CounterOpts{Name: "mailer_jobs_finished_total", Help: "Bulk-mail jobs run to completion"})
	RowsGenerated      = prometheus.NewCounter(prometheus.CounterOpts{Name: "mailer_rows_generated_total", Help: "Rows with message text generated"})
	RowsSent           = prometheus.NewCounter(prometheus.CounterOpts{Name: "mailer_rows_sent_total", Help: "Rows delivered over SMTP"})
	RowsFailed         = prometheus.NewCounter(prometheus.CounterOpts{Name: "mailer_rows_failed_total", Help: "Rows that failed generation or delivery"})
	RowsSkipped        = prometheus.NewCounter(prometheus.CounterOpts{Name: "mailer_rows_skipped_total", Help: "Rows excluded by a decision filter"})
	AuditWriteFailures = prometheus.NewCounter(prometheus.CounterOpts{Name: "mailer_audit_write_failures_total", Help: "Audit log writes that failed and were swallowed"})
	JobsInFlight       = prometheus.NewGauge(prometheus.GaugeOpts{Name: "mailer_jobs_inflight", Help: "Job workers currently running"})
)

// Handler exposes the /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			JobsStarted,
			JobsFinished,
			RowsGenerated,
			RowsSent,
			RowsFailed,
			RowsSkipped,
			AuditWriteFailures,
			JobsInFlight,
		)
	})
	return promhttp.Handler()
}
