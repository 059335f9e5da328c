package format

import (
	"fmt"
	"strings"

	"sceneqc/internal/display"
	"sceneqc/internal/report"
)

// ReportOptions controls how much of a report is rendered.
type ReportOptions struct {
	// Verbose includes passing and skipped primitives and info notes.
	Verbose bool
}

// Report renders r as tables: findings first, then primitives that did not
// pass, then a result line.
func Report(r *report.Report, m Mode, opts ReportOptions) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Scene:  %s\n", r.Scene)
	fmt.Fprintf(&b, "Checks: %s\n\n", display.CheckList(r.Checks))

	findings := NewTable(m)
	findings.Title("Findings")
	findings.Header("Path", "Primvar", "Domain", "Time", "Expected", "Actual", "Severity", "Reason")
	findings.Columns(
		ColumnConfig{Number: 1, MaxWidth: 48},
		ColumnConfig{Number: 5, Align: AlignRight},
		ColumnConfig{Number: 6, Align: AlignRight},
	)
	for _, f := range r.Findings() {
		if f.Severity == report.SeverityInfo && !opts.Verbose {
			continue
		}
		findings.Row(f.Path, f.Primvar, string(f.Domain), f.Time.String(),
			f.Expected, f.Actual, string(f.Severity), display.Reason(string(f.Reason)))
	}
	if findings.Len() > 0 {
		b.WriteString(findings.String())
		b.WriteString("\n\n")
	}

	prims := NewTable(m)
	prims.Title("Primitives")
	prims.Header("", "Path", "Kind", "Status", "Detail")
	prims.Columns(ColumnConfig{Number: 5, MaxWidth: 72})
	for _, p := range r.Primitives {
		if p.Status == report.StatusPass && !opts.Verbose {
			continue
		}
		if p.Status == report.StatusSkipped && !opts.Verbose {
			continue
		}
		prims.Row(StatusMark(p.Status), p.Path, string(p.Kind), display.Status(string(p.Status)), primDetail(p))
	}
	if prims.Len() > 0 {
		b.WriteString(prims.String())
		b.WriteString("\n\n")
	}

	s := r.Summary
	result := "PASS"
	if !r.OK() {
		result = "FAIL"
	}
	fmt.Fprintf(&b, "RESULT: %s (%d prims: %d pass, %d fail, %d skipped, %d read errors; %d errors, %d warnings)\n",
		result, s.Primitives, s.Pass, s.Fail, s.Skipped, s.SkippedWithError, s.Errors, s.Warnings)
	return b.String()
}

func primDetail(p report.PrimResult) string {
	switch {
	case len(p.Errors) > 0:
		return Truncate(strings.Join(p.Errors, "; "), 200)
	case p.SkipReason != "":
		return p.SkipReason
	}
	n := 0
	for _, f := range p.Findings {
		if f.Severity == report.SeverityError {
			n++
		}
	}
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("%d error finding(s)", n)
}
