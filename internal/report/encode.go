package report

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// WriteJSON writes the whole report as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report json: %w", err)
	}
	return nil
}

// Record is the flat per-finding export row.
type Record struct {
	Path       string   `json:"path"`
	Primvar    string   `json:"primvarName"`
	Domain     string   `json:"domain"`
	TimeSample any      `json:"timeSample"`
	Expected   int      `json:"expectedCount"`
	Actual     int      `json:"actualCount"`
	Severity   Severity `json:"severity"`
	Reason     Reason   `json:"reasonCode"`
}

// RecordOf flattens f into its export row.
func RecordOf(f Finding) Record {
	var ts any = "default"
	if !f.Time.IsDefault() {
		ts = f.Time.Value()
	}
	return Record{
		Path:       f.Path,
		Primvar:    f.Primvar,
		Domain:     string(f.Domain),
		TimeSample: ts,
		Expected:   f.Expected,
		Actual:     f.Actual,
		Severity:   f.Severity,
		Reason:     f.Reason,
	}
}

// WriteJSONL writes one record per finding, followed by one status line per
// skipped primitive so partial failures are never silent.
func WriteJSONL(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	for _, f := range r.Findings() {
		if err := enc.Encode(RecordOf(f)); err != nil {
			return fmt.Errorf("encode finding: %w", err)
		}
	}
	for _, p := range r.Primitives {
		if p.Status != StatusSkippedWithError {
			continue
		}
		line := struct {
			Path   string   `json:"path"`
			Status Status   `json:"status"`
			Errors []string `json:"errors"`
		}{p.Path, p.Status, p.Errors}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("encode status: %w", err)
		}
	}
	return nil
}

// WriteYAML writes the whole report as YAML.
func WriteYAML(w io.Writer, r *Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report yaml: %w", err)
	}
	return enc.Close()
}
