package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveHTTP("GET", "/api/carts", 200, 120*time.Millisecond)
	m.CartOp("add_items", "ok")
	m.CartOp("add_items", "ok")
	m.CartOp("add_items", "CONFLICT")
	m.CacheLookup("hit")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := counterValue(mfs, "cart_operations_total", map[string]string{"op": "add_items", "outcome": "ok"}); err != nil {
		t.Fatalf("fetch cart ops: %v", err)
	} else if got != 2 {
		t.Fatalf("expected 2 ok add_items, got %f", got)
	}
	if got, err := counterValue(mfs, "cart_operations_total", map[string]string{"op": "add_items", "outcome": "CONFLICT"}); err != nil || got != 1 {
		t.Fatalf("expected 1 conflict, got %f err=%v", got, err)
	}
	if got, err := counterValue(mfs, "http_requests_total", map[string]string{"route": "/api/carts", "status": "200"}); err != nil || got != 1 {
		t.Fatalf("expected 1 http request, got %f err=%v", got, err)
	}
	if got, err := counterValue(mfs, "cart_cache_lookups_total", map[string]string{"result": "hit"}); err != nil || got != 1 {
		t.Fatalf("expected 1 cache hit, got %f err=%v", got, err)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveHTTP("GET", "/", 200, time.Millisecond)
	m.CartOp("create", "ok")
	m.CacheLookup("miss")

	New(nil).CartOp("create", "ok")
}

func counterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if matchesLabels(metric.GetLabel(), labels) {
				return metric.GetCounter().GetValue(), nil
			}
		}
		return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
	}
	return 0, fmt.Errorf("metric %q not found", name)
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, p := range pairs {
		if v, ok := want[p.GetName()]; ok && v == p.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
