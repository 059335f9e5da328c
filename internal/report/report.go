// Package report is the structured result of a validation run: immutable
// findings grouped per primitive, with a pass/fail/skip status for each.
package report

import (
	"sort"

	"sceneqc/internal/scene"
)

// Severity orders findings by how much they matter.
type Severity string

const (
	// SeverityInfo marks notes that never affect pass/fail.
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Rank returns 0 for info, 1 for warning, 2 for error.
func (s Severity) Rank() int {
	switch s {
	case SeverityError:
		return 2
	case SeverityWarning:
		return 1
	}
	return 0
}

// Reason is a machine-readable finding code.
type Reason string

const (
	// ReasonTopologyMismatch: a primvar's count disagrees with the count its
	// domain implies on the current topology.
	ReasonTopologyMismatch Reason = "topology-mismatch"
	// ReasonConstantMalformed: a constant primvar does not hold exactly one element.
	ReasonConstantMalformed Reason = "constant-malformed"
	// ReasonInferredDomainMismatch: a count mismatch against a domain that was
	// inferred from a fallback rule, not authored.
	ReasonInferredDomainMismatch Reason = "inferred-domain-mismatch"
	// ReasonDomainNotApplicable: the domain is undefined for the prim kind.
	ReasonDomainNotApplicable Reason = "domain-not-applicable"
	ReasonMaterialUnbound     Reason = "material-unbound"
	ReasonMaterialInactive    Reason = "material-inactive"
)

// Status is a primitive's overall outcome.
type Status string

const (
	StatusPass             Status = "pass"
	StatusFail             Status = "fail"
	StatusSkipped          Status = "skipped"
	StatusSkippedWithError Status = "skipped-with-error"
)

// Finding is one reported inconsistency or note.
type Finding struct {
	Path     string              `json:"path" yaml:"path"`
	Check    string              `json:"check" yaml:"check"`
	Primvar  string              `json:"primvarName,omitempty" yaml:"primvarName,omitempty"`
	Domain   scene.Interpolation `json:"domain,omitempty" yaml:"domain,omitempty"`
	Time     scene.TimeCode      `json:"timeSample" yaml:"timeSample"`
	Expected int                 `json:"expectedCount" yaml:"expectedCount"`
	Actual   int                 `json:"actualCount" yaml:"actualCount"`
	Severity Severity            `json:"severity" yaml:"severity"`
	Reason   Reason              `json:"reasonCode" yaml:"reasonCode"`
	Message  string              `json:"message" yaml:"message"`
}

// Outcome is what one check produced for one primitive.
type Outcome struct {
	Findings []Finding
	// NotApplicable is set when the check has nothing to say about this
	// kind of primitive.
	NotApplicable bool
	SkipReason    string
	// Errors are read failures; the affected data was left out.
	Errors []string
}

// PrimResult is the merged outcome of all checks for one primitive.
type PrimResult struct {
	Path       string     `json:"path" yaml:"path"`
	Kind       scene.Kind `json:"kind" yaml:"kind"`
	Status     Status     `json:"status" yaml:"status"`
	SkipReason string     `json:"skipReason,omitempty" yaml:"skipReason,omitempty"`
	Findings   []Finding  `json:"findings" yaml:"findings"`
	Errors     []string   `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// NewPrimResult merges outcomes and derives the status: any error finding
// fails the primitive; otherwise read errors make it skipped-with-error;
// otherwise it is skipped when no check applied, and passes.
func NewPrimResult(path string, kind scene.Kind, outcomes ...Outcome) PrimResult {
	r := PrimResult{Path: path, Kind: kind, Findings: []Finding{}}
	applied := false
	for _, o := range outcomes {
		r.Findings = append(r.Findings, o.Findings...)
		r.Errors = append(r.Errors, o.Errors...)
		if o.NotApplicable {
			if r.SkipReason == "" {
				r.SkipReason = o.SkipReason
			}
			continue
		}
		applied = true
	}
	SortFindings(r.Findings)

	switch {
	case hasSeverity(r.Findings, SeverityError):
		r.Status = StatusFail
	case len(r.Errors) > 0:
		r.Status = StatusSkippedWithError
	case !applied:
		r.Status = StatusSkipped
	default:
		r.Status = StatusPass
	}
	if applied {
		r.SkipReason = ""
	}
	return r
}

// Failed is the error-level view used for exit codes.
func (r PrimResult) Failed() bool {
	return r.Status == StatusFail || r.Status == StatusSkippedWithError
}

func hasSeverity(fs []Finding, s Severity) bool {
	for _, f := range fs {
		if f.Severity == s {
			return true
		}
	}
	return false
}

// SortFindings orders findings by path, check, primvar name, then time with the
// default sample first. Ties keep a stable order by reason.
func SortFindings(fs []Finding) {
	sort.SliceStable(fs, func(i, j int) bool {
		a, b := fs[i], fs[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Check != b.Check {
			return a.Check < b.Check
		}
		if a.Primvar != b.Primvar {
			return a.Primvar < b.Primvar
		}
		if a.Time != b.Time {
			return a.Time.Before(b.Time)
		}
		return a.Reason < b.Reason
	})
}

// Summary counts primitives by status and findings by severity.
type Summary struct {
	Primitives       int `json:"primitives" yaml:"primitives"`
	Pass             int `json:"pass" yaml:"pass"`
	Fail             int `json:"fail" yaml:"fail"`
	Skipped          int `json:"skipped" yaml:"skipped"`
	SkippedWithError int `json:"skippedWithError" yaml:"skippedWithError"`
	Errors           int `json:"errors" yaml:"errors"`
	Warnings         int `json:"warnings" yaml:"warnings"`
	Notes            int `json:"notes" yaml:"notes"`
}

// Report is the result of one validation run. It carries no identity or
// timestamp, so identical snapshots produce identical reports.
type Report struct {
	Scene      string       `json:"scene" yaml:"scene"`
	Checks     []string     `json:"checks" yaml:"checks"`
	Primitives []PrimResult `json:"primitives" yaml:"primitives"`
	Summary    Summary      `json:"summary" yaml:"summary"`
}

// New assembles a report from per-primitive results in traversal order.
func New(sceneID string, checks []string, prims []PrimResult) *Report {
	r := &Report{Scene: sceneID, Checks: checks, Primitives: prims}
	if r.Primitives == nil {
		r.Primitives = []PrimResult{}
	}
	for _, p := range r.Primitives {
		r.Summary.Primitives++
		switch p.Status {
		case StatusPass:
			r.Summary.Pass++
		case StatusFail:
			r.Summary.Fail++
		case StatusSkipped:
			r.Summary.Skipped++
		case StatusSkippedWithError:
			r.Summary.SkippedWithError++
		}
		for _, f := range p.Findings {
			switch f.Severity {
			case SeverityError:
				r.Summary.Errors++
			case SeverityWarning:
				r.Summary.Warnings++
			default:
				r.Summary.Notes++
			}
		}
	}
	return r
}

// Findings returns every finding in report order.
func (r *Report) Findings() []Finding {
	var out []Finding
	for _, p := range r.Primitives {
		out = append(out, p.Findings...)
	}
	return out
}

// OK reports whether no primitive failed or was skipped with an error.
func (r *Report) OK() bool {
	return r.Summary.Fail == 0 && r.Summary.SkippedWithError == 0
}

// Prim returns the result for path.
func (r *Report) Prim(path string) (PrimResult, bool) {
	for _, p := range r.Primitives {
		if p.Path == path {
			return p, true
		}
	}
	return PrimResult{}, false
}
