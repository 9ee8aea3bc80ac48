package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsExportsRunsAndDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)
	job := "release-sweep"
	metrics.ObserveDuration(job, 250*time.Millisecond)
	metrics.IncSuccess(job)
	metrics.IncFailure(job)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchRunsValue(mfs, job, "success"); err != nil {
		t.Fatalf("fetch success runs: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success runs=1, got %f", got)
	}

	if got, err := fetchRunsValue(mfs, job, "failure"); err != nil {
		t.Fatalf("fetch failure runs: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failure runs=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "dispatch_cron_job_duration_seconds", "job", job); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}

	if got, err := fetchGaugeValue(mfs, "dispatch_cron_last_success_timestamp_seconds", "job", job); err != nil {
		t.Fatalf("fetch last success: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected last-success stamp > 0, got %f", got)
	}
}

func TestCronJobMetricsNilReceiverIsNoOp(t *testing.T) {
	var metrics *CronJobMetrics
	metrics.ObserveDuration("release-sweep", time.Second)
	metrics.IncSuccess("release-sweep")
	metrics.IncFailure("release-sweep")
}

func fetchRunsValue(mfs []*dto.MetricFamily, job, result string) (float64, error) {
	mf := findMetricFamily(mfs, "dispatch_cron_job_runs_total")
	if mf == nil {
		return 0, fmt.Errorf("runs metric not found")
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), "job", job) && matchesLabel(metric.GetLabel(), "result", result) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("runs metric missing job=%s result=%s", job, result)
}

func fetchGaugeValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetGauge().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("gauge %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
