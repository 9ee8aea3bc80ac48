package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Cron cycles fire every minute, so job durations live in the sub-second to
// one-minute range.
var cronDurationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15, 30, 60}

// CronJobMetrics records outcomes of the dispatch worker's jobs (release
// sweep, location retention).
type CronJobMetrics struct {
	duration    *prometheus.HistogramVec
	runs        *prometheus.CounterVec
	lastSuccess *prometheus.GaugeVec
}

// NewCronJobMetrics registers the cron job metrics on the provided registerer.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dispatch_cron_job_duration_seconds",
		Help:    "Duration of dispatch cron jobs in seconds.",
		Buckets: cronDurationBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_cron_job_runs_total",
		Help: "Dispatch cron job executions by result.",
	}, []string{"job", "result"})
	lastSuccess := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dispatch_cron_last_success_timestamp_seconds",
		Help: "Unix time of the last successful run per job.",
	}, []string{"job"})
	reg.MustRegister(duration, runs, lastSuccess)
	return &CronJobMetrics{
		duration:    duration,
		runs:        runs,
		lastSuccess: lastSuccess,
	}
}

// ObserveDuration records the duration for the named job.
func (c *CronJobMetrics) ObserveDuration(job string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncSuccess counts a successful run and stamps the last-success gauge.
func (c *CronJobMetrics) IncSuccess(job string) {
	if c == nil || c.runs == nil {
		return
	}
	label := normalizeLabel(job)
	c.runs.WithLabelValues(label, "success").Inc()
	c.lastSuccess.WithLabelValues(label).SetToCurrentTime()
}

// IncFailure counts a failed run.
func (c *CronJobMetrics) IncFailure(job string) {
	if c == nil || c.runs == nil {
		return
	}
	c.runs.WithLabelValues(normalizeLabel(job), "failure").Inc()
}

func normalizeLabel(job string) string {
	if job == "" {
		return "unknown"
	}
	return job
}
