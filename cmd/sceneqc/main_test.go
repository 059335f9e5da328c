package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

func execCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_ExitCodes(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"clean scene", []string{"check", "testdata/clean.yaml"}, exitOK},
		{"base layer alone", []string{"check", "testdata/base.yaml"}, exitOK},
		{"shot with mismatches", []string{"check", "testdata/shot.yaml"}, exitFailed},
		{"missing scene", []string{"check", "testdata/nope.yaml"}, exitFatal},
		{"unknown check", []string{"check", "testdata/clean.yaml", "--checks", "bogus"}, exitFatal},
		{"unknown format", []string{"check", "testdata/clean.yaml", "--format", "html"}, exitFatal},
		{"no scene argument", []string{"check"}, exitFatal},
		{"unknown command", []string{"frobnicate"}, exitFatal},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, stdout, stderr := execCLI(t, tc.args...)
			if code != tc.want {
				t.Errorf("exit = %d, want %d\nstdout:\n%s\nstderr:\n%s", code, tc.want, stdout, stderr)
			}
		})
	}
}

func TestCheck_TextReport(t *testing.T) {
	code, stdout, _ := execCLI(t, "check", "testdata/shot.yaml")
	if code != exitFailed {
		t.Fatalf("exit = %d", code)
	}
	for _, want := range []string{"/World/geo/rock", "foo", "RESULT: FAIL"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in output:\n%s", want, stdout)
		}
	}
}

func TestCheck_MaterialBindingOptIn(t *testing.T) {
	code, stdout, _ := execCLI(t, "check", "testdata/clean.yaml", "--checks", "primvars,material-binding", "-f", "json")
	if code != exitOK {
		t.Fatalf("exit = %d\n%s", code, stdout)
	}
	var doc struct {
		Checks []string `json:"checks"`
	}
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout)
	}
	if len(doc.Checks) != 2 {
		t.Errorf("checks = %v", doc.Checks)
	}
}

func TestCheck_JSONL(t *testing.T) {
	code, stdout, _ := execCLI(t, "check", "testdata/shot.yaml", "--format", "jsonl", "--verbose")
	if code != exitFailed {
		t.Fatalf("exit = %d", code)
	}
	sc := bufio.NewScanner(strings.NewReader(stdout))
	primvars := map[string]bool{}
	for sc.Scan() {
		var rec struct {
			Path    string `json:"path"`
			Primvar string `json:"primvarName"`
		}
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		primvars[rec.Path+"."+rec.Primvar] = true
	}
	for _, want := range []string{"/World/geo/rock.foo", "/World/geo/cloth.rest", "/World/hair.uv"} {
		if !primvars[want] {
			t.Errorf("missing record for %s in:\n%s", want, stdout)
		}
	}
}

func TestCheck_YAML(t *testing.T) {
	code, stdout, _ := execCLI(t, "check", "testdata/clean.yaml", "--format", "yaml")
	if code != exitOK {
		t.Fatalf("exit = %d", code)
	}
	if !strings.Contains(stdout, "summary:") || !strings.Contains(stdout, "/World/geo/rock") {
		t.Errorf("unexpected yaml:\n%s", stdout)
	}
}

func TestCheck_HistoryAndNewFindings(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")

	code, stdout, _ := execCLI(t, "check", "testdata/shot.yaml", "--db", db)
	if code != exitFailed {
		t.Fatalf("first run exit = %d", code)
	}
	if !strings.Contains(stdout, "Run #1 recorded") {
		t.Errorf("expected run line in:\n%s", stdout)
	}
	code, stdout, _ = execCLI(t, "check", "testdata/shot.yaml", "--db", db)
	if code != exitFailed {
		t.Fatalf("second run exit = %d", code)
	}
	if !strings.Contains(stdout, "Run #2 recorded (0 new finding(s)") {
		t.Errorf("second run should have no new findings:\n%s", stdout)
	}

	code, stdout, stderr := execCLI(t, "history", "testdata/shot.yaml", "--db", db)
	if code != exitOK {
		t.Fatalf("history exit = %d\n%s", code, stderr)
	}
	for _, want := range []string{"Runs", "FAIL", "shot.yaml"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in history:\n%s", want, stdout)
		}
	}

	code, stdout, _ = execCLI(t, "history", "testdata/shot.yaml", "--db", db, "--new")
	if code != exitOK {
		t.Fatalf("history --new exit = %d", code)
	}
	if !strings.Contains(stdout, "Run #2 has no new findings") {
		t.Errorf("unexpected history --new output:\n%s", stdout)
	}

	code, stdout, _ = execCLI(t, "history", "testdata/clean.yaml", "--db", db)
	if code != exitOK || !strings.Contains(stdout, "No runs recorded") {
		t.Errorf("history of an unrecorded scene: exit %d\n%s", code, stdout)
	}
}

func TestCheck_MetricsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sceneqc.prom")
	if code, _, stderr := execCLI(t, "check", "testdata/clean.yaml", "--metrics-file", path); code != exitOK {
		t.Fatalf("exit = %d\n%s", code, stderr)
	}
	data, err := readFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(data, "sceneqc_runs_total") {
		t.Errorf("metrics file missing runs counter:\n%s", data)
	}
}

func TestCheck_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "qc.yaml")
	if err := writeFile(cfgPath, "format: jsonl\nchecks: [primvars]\n"); err != nil {
		t.Fatal(err)
	}
	code, stdout, _ := execCLI(t, "--config", cfgPath, "check", "testdata/shot.yaml")
	if code != exitFailed {
		t.Fatalf("exit = %d", code)
	}
	if !strings.HasPrefix(stdout, "{") {
		t.Errorf("config format not applied:\n%s", stdout)
	}

	code, stdout, _ = execCLI(t, "--config", cfgPath, "check", "testdata/shot.yaml", "--format", "text")
	if code != exitFailed || !strings.Contains(stdout, "RESULT: FAIL") {
		t.Errorf("flag should override config format:\n%s", stdout)
	}
}
