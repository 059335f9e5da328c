package main

import (
	"fmt"
	"io"

	"sceneqc/internal/format"
	"sceneqc/internal/report"
)

// writeReport renders r in one of the --format values.
func writeReport(w io.Writer, r *report.Report, outFormat string, verbose bool) error {
	switch outFormat {
	case "json":
		return report.WriteJSON(w, r)
	case "jsonl":
		return report.WriteJSONL(w, r)
	case "yaml":
		return report.WriteYAML(w, r)
	case "text", "markdown", "":
		mode, err := format.ParseMode(outFormat)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, format.Report(r, mode, format.ReportOptions{Verbose: verbose}))
		return err
	}
	return fmt.Errorf("unknown format %q (want text, markdown, json, jsonl, yaml)", outFormat)
}
