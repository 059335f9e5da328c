package store

import (
	"fmt"
	"strings"

	"sceneqc/internal/report"
)

// DefaultDBPath is the default relative path for the run history DB.
// Open() creates the parent dir (.sceneqc).
const DefaultDBPath = ".sceneqc/sceneqc.db"

// Run is one recorded validation run of a scene.
type Run struct {
	ID         int64
	Scene      string
	Checks     []string
	StartedAt  string
	DurationMS int64
	OK         bool
	Summary    report.Summary
}

// Store is the run history facade. The CLI and MCP server use only this
// interface; implementation is SQLite or in-memory.
type Store interface {
	// SaveRun records r and all its findings; returns the new run id.
	SaveRun(run *Run, r *report.Report) (int64, error)
	// GetRun returns nil, nil when id is unknown.
	GetRun(id int64) (*Run, error)
	// ListRuns returns runs newest first; scene == "" lists every scene,
	// limit <= 0 means no limit.
	ListRuns(scene string, limit int) ([]*Run, error)
	ListFindings(runID int64) ([]report.Finding, error)
	// NewFindings returns the findings of runID that the previous run of
	// the same scene did not have. Every finding is new for a first run.
	NewFindings(runID int64) ([]report.Finding, error)
	Close() error
}

// FindingKey identifies a finding across runs: the same primvar on the same
// prim failing the same way at the same time sample.
func FindingKey(f report.Finding) string {
	return strings.Join([]string{f.Path, f.Check, f.Primvar, f.Time.String(), string(f.Reason)}, "|")
}

// newSince keeps the findings of cur whose key is absent from prev.
func newSince(prev, cur []report.Finding) []report.Finding {
	seen := make(map[string]bool, len(prev))
	for _, f := range prev {
		seen[FindingKey(f)] = true
	}
	out := []report.Finding{}
	for _, f := range cur {
		if !seen[FindingKey(f)] {
			out = append(out, f)
		}
	}
	return out
}

func runFromReport(run *Run, r *report.Report) (Run, error) {
	if r == nil {
		return Run{}, fmt.Errorf("report is nil")
	}
	cp := Run{}
	if run != nil {
		cp = *run
	}
	if cp.Scene == "" {
		cp.Scene = r.Scene
	}
	if cp.Checks == nil {
		cp.Checks = r.Checks
	}
	if cp.StartedAt == "" {
		cp.StartedAt = nowUTC()
	}
	cp.OK = r.OK()
	cp.Summary = r.Summary
	return cp, nil
}
