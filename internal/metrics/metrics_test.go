package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	ctrlmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"
)

func TestObserveTick(t *testing.T) {
	before := testutil.ToFloat64(ReconcileTotal.WithLabelValues("created"))
	failedBefore := testutil.ToFloat64(ReconcileTotal.WithLabelValues("failed"))

	ObserveTick("created", false, 20*time.Millisecond)
	if got := testutil.ToFloat64(ReconcileTotal.WithLabelValues("created")); got != before+1 {
		t.Errorf("expected created counter %v, got %v", before+1, got)
	}
	if testutil.ToFloat64(LastSuccess) == 0 {
		t.Error("expected last success timestamp to be set")
	}

	ObserveTick("failed", true, time.Millisecond)
	if got := testutil.ToFloat64(ReconcileTotal.WithLabelValues("failed")); got != failedBefore+1 {
		t.Errorf("expected failed counter %v, got %v", failedBefore+1, got)
	}
}

func TestRegistered(t *testing.T) {
	ObserveTick("unchanged", false, time.Millisecond)

	families, err := ctrlmetrics.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	want := map[string]bool{
		"ddns_reconcile_total":                false,
		"ddns_reconcile_duration_seconds":     false,
		"ddns_last_success_timestamp_seconds": false,
	}
	for _, f := range families {
		if _, ok := want[f.GetName()]; ok {
			want[f.GetName()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("expected %s to be registered", name)
		}
	}
}
