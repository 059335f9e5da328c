package store

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sceneqc/internal/report"
	"sceneqc/internal/scene"
)

var cmpTime = cmp.Comparer(func(a, b scene.TimeCode) bool { return a == b })

func mismatch(path, pv string, t scene.TimeCode, actual int) report.Finding {
	return report.Finding{
		Path: path, Check: "primvars", Primvar: pv, Domain: scene.Vertex, Time: t,
		Expected: 500, Actual: actual, Severity: report.SeverityError,
		Reason: report.ReasonTopologyMismatch, Message: "count mismatch",
	}
}

func reportWith(sceneID string, fs ...report.Finding) *report.Report {
	var prims []report.PrimResult
	byPath := map[string][]report.Finding{}
	var order []string
	for _, f := range fs {
		if _, ok := byPath[f.Path]; !ok {
			order = append(order, f.Path)
		}
		byPath[f.Path] = append(byPath[f.Path], f)
	}
	for _, p := range order {
		prims = append(prims, report.NewPrimResult(p, scene.KindMesh, report.Outcome{Findings: byPath[p]}))
	}
	prims = append(prims, report.NewPrimResult("/World/ok", scene.KindMesh, report.Outcome{}))
	return report.New(sceneID, []string{"primvars", "material-binding"}, prims)
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sub", "runs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return map[string]Store{"sqlite": s, "memory": NewMemStore()}
}

func TestStore_SaveAndGetRun(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			r := reportWith("shot.yaml", mismatch("/World/rock", "foo", scene.At(24), 100))
			id, err := s.SaveRun(&Run{DurationMS: 42}, r)
			if err != nil {
				t.Fatalf("SaveRun: %v", err)
			}
			got, err := s.GetRun(id)
			if err != nil || got == nil {
				t.Fatalf("GetRun: %+v %v", got, err)
			}
			if got.Scene != "shot.yaml" || got.OK || got.DurationMS != 42 || got.StartedAt == "" {
				t.Errorf("run = %+v", got)
			}
			if diff := cmp.Diff([]string{"primvars", "material-binding"}, got.Checks); diff != "" {
				t.Errorf("checks mismatch:\n%s", diff)
			}
			if diff := cmp.Diff(r.Summary, got.Summary); diff != "" {
				t.Errorf("summary mismatch:\n%s", diff)
			}
			fs, err := s.ListFindings(id)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(r.Findings(), fs, cmpTime); diff != "" {
				t.Errorf("findings mismatch (-saved +loaded):\n%s", diff)
			}
			missing, err := s.GetRun(id + 100)
			if err != nil || missing != nil {
				t.Errorf("GetRun(unknown) = %+v, %v", missing, err)
			}
		})
	}
}

func TestStore_ListRuns(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, sc := range []string{"a.yaml", "b.yaml", "a.yaml"} {
				if _, err := s.SaveRun(nil, reportWith(sc)); err != nil {
					t.Fatal(err)
				}
			}
			all, err := s.ListRuns("", 0)
			if err != nil {
				t.Fatal(err)
			}
			if len(all) != 3 || all[0].ID != 3 {
				t.Errorf("ListRuns all = %d runs, first id %d", len(all), all[0].ID)
			}
			onlyA, err := s.ListRuns("a.yaml", 0)
			if err != nil {
				t.Fatal(err)
			}
			if len(onlyA) != 2 || onlyA[0].ID != 3 || onlyA[1].ID != 1 {
				t.Errorf("ListRuns a.yaml = %+v", onlyA)
			}
			limited, _ := s.ListRuns("", 1)
			if len(limited) != 1 {
				t.Errorf("limit 1 returned %d", len(limited))
			}
		})
	}
}

func TestStore_NewFindings(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			old := mismatch("/World/rock", "foo", scene.At(24), 100)
			fixed := mismatch("/World/rock", "bar", scene.Default(), 3)
			added := mismatch("/World/tree", "foo", scene.At(1), 7)

			first, err := s.SaveRun(nil, reportWith("shot.yaml", old, fixed))
			if err != nil {
				t.Fatal(err)
			}
			// Another scene in between must not count as "previous".
			if _, err := s.SaveRun(nil, reportWith("other.yaml", added)); err != nil {
				t.Fatal(err)
			}
			second, err := s.SaveRun(nil, reportWith("shot.yaml", old, added))
			if err != nil {
				t.Fatal(err)
			}

			fresh, err := s.NewFindings(first)
			if err != nil {
				t.Fatal(err)
			}
			if len(fresh) != 2 {
				t.Errorf("first run: %d new findings, want 2", len(fresh))
			}
			fresh, err = s.NewFindings(second)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff([]report.Finding{added}, fresh, cmpTime); diff != "" {
				t.Errorf("new findings mismatch (-want +got):\n%s", diff)
			}
			if _, err := s.NewFindings(999); err == nil {
				t.Error("expected error for unknown run")
			}
		})
	}
}

func TestSqlStore_RejectsUnknownSchemaVersion(t *testing.T) {
	tests := []struct {
		name  string
		setup string
		want  string
	}{
		{"newer version", "CREATE TABLE schema_version (version INTEGER NOT NULL); INSERT INTO schema_version VALUES (7);", "unsupported schema version 7"},
		{"empty version table", "CREATE TABLE schema_version (version INTEGER NOT NULL);", "schema_version is empty"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "other.db")
			db, err := sql.Open("sqlite", path)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := db.Exec(tc.setup); err != nil {
				t.Fatalf("setup: %v", err)
			}
			_ = db.Close()

			s, err := Open(path)
			if err == nil {
				_ = s.Close()
				t.Fatal("expected Open to fail")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("err = %v, want %q", err, tc.want)
			}
		})
	}
}

func TestSqlStore_FreshInstallStampsVersion(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "fresh.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	var v int
	if err := s.db.QueryRow("SELECT version FROM schema_version").Scan(&v); err != nil || v != schemaVersion {
		t.Fatalf("schema version = %d, %v", v, err)
	}
}

func TestSqlStore_ReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveRun(nil, reportWith("shot.yaml")); err != nil {
		t.Fatal(err)
	}
	_ = s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	runs, err := s.ListRuns("shot.yaml", 0)
	if err != nil || len(runs) != 1 {
		t.Errorf("runs after reopen = %d, %v", len(runs), err)
	}
}
