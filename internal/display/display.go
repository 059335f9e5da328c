// Package display provides human-readable names for machine codes.
//
// Rule: code is for machines, words are for humans.
// Use these functions in CLI tables and markdown reports.
// Keep raw codes for JSON fields, database columns, and equality comparisons.
package display

import "strings"

// --- Reason codes ---

var reasons = map[string]string{
	"topology-mismatch":        "Topology Mismatch",
	"constant-malformed":       "Constant Primvar Malformed",
	"inferred-domain-mismatch": "Inferred Domain Mismatch",
	"domain-not-applicable":    "Domain Not Applicable",
	"material-unbound":         "No Material Bound",
	"material-inactive":        "Inactive Material",
}

// Reason returns the human-readable name for a reason code.
// Unknown codes are returned as-is.
func Reason(code string) string {
	if name, ok := reasons[code]; ok {
		return name
	}
	return code
}

// ReasonWithCode returns "Topology Mismatch (topology-mismatch)" format.
func ReasonWithCode(code string) string {
	if name, ok := reasons[code]; ok {
		return name + " (" + code + ")"
	}
	return code
}

// --- Statuses ---

var statuses = map[string]string{
	"pass":               "Pass",
	"fail":               "Fail",
	"skipped":            "Skipped",
	"skipped-with-error": "Skipped (read error)",
}

// Status returns the human-readable name for a primitive status.
func Status(code string) string {
	if name, ok := statuses[code]; ok {
		return name
	}
	return code
}

// --- Interpolation domains ---

var domains = map[string]string{
	"constant":    "per prim",
	"uniform":     "per face",
	"varying":     "per point (varying)",
	"vertex":      "per point",
	"faceVarying": "per face-vertex",
}

// Domain returns "vertex (per point)" style text for an interpolation.
func Domain(code string) string {
	if hint, ok := domains[code]; ok {
		return code + " (" + hint + ")"
	}
	return code
}

// --- Checks ---

var checks = map[string]string{
	"primvars":         "Primvar Consistency",
	"material-binding": "Material Binding",
}

// Check returns the human-readable name for a check id.
func Check(id string) string {
	if name, ok := checks[id]; ok {
		return name
	}
	return id
}

// CheckList joins check ids as "Primvar Consistency, Material Binding".
func CheckList(ids []string) string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = Check(id)
	}
	return strings.Join(names, ", ")
}
