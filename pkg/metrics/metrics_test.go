package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCartMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCartMetrics(reg)
	m.ObserveMutation("add_item", true)
	m.ObserveMutation("add_item", true)
	m.ObserveMutation("add_item", false)
	m.IncPersistFailure("save")
	m.ObserveSync(SyncTimeout, 250*time.Millisecond)
	m.SetItemCount(7)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got := mustValue(t, mfs, "cart_mutations_total", map[string]string{"op": "add_item", "result": ResultApplied}); got != 2 {
		t.Fatalf("expected applied=2, got %f", got)
	}
	if got := mustValue(t, mfs, "cart_mutations_total", map[string]string{"op": "add_item", "result": ResultRejected}); got != 1 {
		t.Fatalf("expected rejected=1, got %f", got)
	}
	if got := mustValue(t, mfs, "cart_persist_failures_total", map[string]string{"stage": "save"}); got != 1 {
		t.Fatalf("expected persist failures=1, got %f", got)
	}
	if got := mustValue(t, mfs, "cart_sync_total", map[string]string{"outcome": SyncTimeout}); got != 1 {
		t.Fatalf("expected sync timeout=1, got %f", got)
	}
	if got := mustValue(t, mfs, "cart_item_count", nil); got != 7 {
		t.Fatalf("expected item count 7, got %f", got)
	}
	if got := mustValue(t, mfs, "cart_sync_duration_seconds", nil); got <= 0 {
		t.Fatalf("expected sync duration sum > 0, got %f", got)
	}
}

func TestSessionMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSessionMetrics(reg)
	m.ObserveBootstrap(BootstrapFailed, time.Millisecond)
	m.ObserveSignOut(false)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got := mustValue(t, mfs, "session_bootstrap_total", map[string]string{"outcome": BootstrapFailed}); got != 1 {
		t.Fatalf("expected failed bootstrap=1, got %f", got)
	}
	if got := mustValue(t, mfs, "session_sign_out_total", map[string]string{"result": "failed"}); got != 1 {
		t.Fatalf("expected failed sign-out=1, got %f", got)
	}
}

func TestMaintenanceMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMaintenanceMetrics(reg)
	m.ObserveRun("cart-snapshot-retention", true, 20*time.Millisecond)
	m.ObserveRun("cart-snapshot-retention", false, time.Millisecond)
	m.AddRows("cart-snapshot-retention", 3)
	m.AddRows("cart-snapshot-retention", 0)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got := mustValue(t, mfs, "maintenance_job_runs_total", map[string]string{"job": "cart-snapshot-retention", "result": "failed"}); got != 1 {
		t.Fatalf("expected failed runs=1, got %f", got)
	}
	if got := mustValue(t, mfs, "maintenance_rows_affected_total", map[string]string{"job": "cart-snapshot-retention"}); got != 3 {
		t.Fatalf("expected rows=3, got %f", got)
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	cart := NewCartMetrics(nil)
	cart.ObserveMutation("clear", true)
	cart.ObserveSync(SyncOK, time.Second)
	cart.SetItemCount(1)
	cart.IncPersistFailure("")

	var nilCart *CartMetrics
	nilCart.ObserveMutation("clear", true)

	session := NewSessionMetrics(nil)
	session.ObserveBootstrap(BootstrapAuthenticated, time.Second)
	session.ObserveSignOut(true)

	var maintenance *MaintenanceMetrics
	maintenance.ObserveRun("job", true, time.Second)
	NewMaintenanceMetrics(nil).AddRows("job", 1)
}

func mustValue(t *testing.T, mfs []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	got, err := fetchValue(mfs, name, labels)
	if err != nil {
		t.Fatalf("fetch %s: %v", name, err)
	}
	return got
}

func fetchValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if !matchesLabels(metric.GetLabel(), labels) {
			continue
		}
		switch {
		case metric.GetCounter() != nil:
			return metric.GetCounter().GetValue(), nil
		case metric.GetGauge() != nil:
			return metric.GetGauge().GetValue(), nil
		case metric.GetHistogram() != nil:
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if value, ok := want[pair.GetName()]; ok {
			if pair.GetValue() != value {
				return false
			}
			matched++
		}
	}
	return matched == len(want)
}
