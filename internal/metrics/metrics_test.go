package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/vango-dev/edgerules/pkg/rules"
)

func gather(t *testing.T, r *Recorder) map[string]*dto.MetricFamily {
	t.Helper()
	mfs, err := r.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}
	out := make(map[string]*dto.MetricFamily, len(mfs))
	for _, mf := range mfs {
		out[mf.GetName()] = mf
	}
	return out
}

func labelValue(m *dto.Metric, name string) string {
	for _, l := range m.GetLabel() {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}

func TestObserveRules(t *testing.T) {
	rs := rules.New()
	rs.Add(rules.Rule{Input: "/a", Target: "/b", Status: 301, Weight: rules.WeightStatic})
	rs.Add(rules.Rule{Input: "/c", Target: "/fn", Status: 200, Weight: rules.WeightStatic})
	rs.Add(rules.Rule{Input: "/d", Target: "/fn", Status: 200, Weight: rules.WeightStatic})
	rs.Add(rules.Rule{Input: "/*", Target: "/fn", Status: 404, Weight: rules.WeightFallback})

	r := New(WithNamespace("site"))
	r.ObserveRules(5, rs)

	mfs := gather(t, r)
	if got := mfs["site_routes"].GetMetric()[0].GetGauge().GetValue(); got != 5 {
		t.Errorf("site_routes = %v, want 5", got)
	}

	counts := map[string]float64{}
	for _, m := range mfs["site_rules"].GetMetric() {
		counts[labelValue(m, "weight")+"/"+labelValue(m, "status")] = m.GetGauge().GetValue()
	}
	want := map[string]float64{"2/301": 1, "2/200": 2, "0/404": 1}
	for k, v := range want {
		if counts[k] != v {
			t.Errorf("rules{%s} = %v, want %v", k, counts[k], v)
		}
	}
	if len(counts) != len(want) {
		t.Errorf("rules series = %v", counts)
	}
}

func TestObserveRules_ResetsPreviousBuild(t *testing.T) {
	r := New()
	first := rules.New()
	first.Add(rules.Rule{Input: "/a", Target: "/b", Status: 302, Weight: 2})
	r.ObserveRules(1, first)
	r.ObserveRules(0, rules.New())

	if _, ok := gather(t, r)["edgerules_rules"]; ok {
		t.Error("rules series from the previous build should be cleared")
	}
}

func TestObserveBuild(t *testing.T) {
	r := New(WithConstLabels(map[string]string{"site": "docs"}))
	now := time.Unix(1700000000, 0)

	r.ObserveBuild(1500*time.Millisecond, nil, now)
	r.ObserveBuild(time.Second, errors.New("boom"), now)

	mfs := gather(t, r)
	if got := mfs["edgerules_build_duration_seconds"].GetMetric()[0].GetGauge().GetValue(); got != 1 {
		t.Errorf("duration = %v, want 1", got)
	}
	if got := mfs["edgerules_last_success_timestamp_seconds"].GetMetric()[0].GetGauge().GetValue(); got != 1700000000 {
		t.Errorf("last success = %v", got)
	}
	failures := mfs["edgerules_build_failures_total"].GetMetric()[0]
	if failures.GetCounter().GetValue() != 1 {
		t.Errorf("failures = %v, want 1", failures.GetCounter().GetValue())
	}
	if labelValue(failures, "site") != "docs" {
		t.Error("const label missing")
	}
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	rs := rules.New()
	rs.Add(rules.Rule{Input: "/a", Target: "/b", Status: 301, Weight: 2})
	r.ObserveRules(1, rs)

	path := filepath.Join(t.TempDir(), "edgerules.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `edgerules_rules{status="301",weight="2"} 1`) {
		t.Errorf("textfile missing rules series:\n%s", data)
	}
}
