package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "sceneqc.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
checks: [primvars, material-binding]
jobs: 4
format: json
timeout: 30s
db: .sceneqc/runs.db
`)
	got, err := load(path, env(map[string]string{
		"SCENEQC_JOBS":      "8",
		"SCENEQC_LOG_LEVEL": "debug",
		"SCENEQC_DEBOUNCE":  "50ms",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := Config{
		Checks:    []string{"primvars", "material-binding"},
		Jobs:      8,
		Format:    "json",
		DB:        ".sceneqc/runs.db",
		Timeout:   30 * time.Second,
		Debounce:  50 * time.Millisecond,
		LogLevel:  "debug",
		LogFormat: "text",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_MissingDefaultFileIsFine(t *testing.T) {
	t.Chdir(t.TempDir())
	got, err := load("", env(map[string]string{"SCENEQC_CHECKS": "primvars, material-binding,"}))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"primvars", "material-binding"}, got.Checks); diff != "" {
		t.Errorf("checks mismatch:\n%s", diff)
	}
	if got.Format != "text" {
		t.Errorf("Format = %q, want default", got.Format)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
		want string
	}{
		{"bad format", "format: html\n", nil, "Format"},
		{"negative jobs", "jobs: -1\n", nil, "Jobs"},
		{"bad yaml", "jobs: [\n", nil, "parse config"},
		{"bad env jobs", "", map[string]string{"SCENEQC_JOBS": "many"}, "SCENEQC_JOBS"},
		{"bad env timeout", "", map[string]string{"SCENEQC_TIMEOUT": "soon"}, "SCENEQC_TIMEOUT"},
		{"bad log level", "logLevel: loud\n", nil, "LogLevel"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := load(writeConfig(t, tc.body), env(tc.env))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("err = %v, want it to mention %q", err, tc.want)
			}
		})
	}
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	if _, err := load(filepath.Join(t.TempDir(), "nope.yaml"), env(nil)); err == nil {
		t.Error("expected error for explicit missing config")
	}
}
