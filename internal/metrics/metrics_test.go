package metrics_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"sceneqc/internal/metrics"
	"sceneqc/internal/report"
	"sceneqc/internal/scene"
)

func sample() *report.Report {
	fail := report.NewPrimResult("/World/rock", scene.KindMesh, report.Outcome{Findings: []report.Finding{{
		Path: "/World/rock", Check: "primvars", Primvar: "foo", Time: scene.Default(),
		Severity: report.SeverityError, Reason: report.ReasonTopologyMismatch,
	}}})
	pass := report.NewPrimResult("/World/tree", scene.KindMesh, report.Outcome{})
	skipped := report.NewPrimResult("/World", "", report.Outcome{NotApplicable: true})
	return report.New("shot.yaml", []string{"primvars"}, []report.PrimResult{skipped, fail, pass})
}

func TestObserve(t *testing.T) {
	m := metrics.New()
	r := sample()
	for _, p := range r.Primitives {
		m.ObservePrim(p, time.Millisecond)
	}
	m.ObserveRun(r, 20*time.Millisecond)

	const want = `
# HELP sceneqc_primitives_total Primitives evaluated, by status and kind.
# TYPE sceneqc_primitives_total counter
sceneqc_primitives_total{kind="mesh",status="fail"} 1
sceneqc_primitives_total{kind="mesh",status="pass"} 1
sceneqc_primitives_total{kind="none",status="skipped"} 1
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(want), "sceneqc_primitives_total"); err != nil {
		t.Error(err)
	}
	if n := testutil.CollectAndCount(m.Registry(), "sceneqc_findings_total"); n != 1 {
		t.Errorf("findings series = %d, want 1", n)
	}
	if n := testutil.CollectAndCount(m.Registry(), "sceneqc_runs_total"); n != 1 {
		t.Errorf("runs series = %d, want 1", n)
	}
}

func TestWriteFile(t *testing.T) {
	m := metrics.New()
	m.ObserveRun(sample(), time.Second)
	m.RunFailed()
	path := filepath.Join(t.TempDir(), "sceneqc.prom")
	if err := m.WriteFile(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`sceneqc_runs_total{result="fail"} 1`, `sceneqc_runs_total{result="error"} 1`, `sceneqc_last_run_primitives{status="pass"} 1`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("missing %q in:\n%s", want, data)
		}
	}
}
