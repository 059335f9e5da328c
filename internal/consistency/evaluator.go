// Package consistency compares primvar element counts against the counts
// implied by a primitive's current topology.
package consistency

import (
	"context"
	"fmt"

	"sceneqc/internal/primvar"
	"sceneqc/internal/report"
	"sceneqc/internal/scene"
	"sceneqc/internal/topology"
)

// CheckName identifies findings produced by this package.
const CheckName = "primvars"

// DescriptorAt returns the topology descriptor at one time code.
type DescriptorAt func(t scene.TimeCode) (topology.Descriptor, error)

// Compare classifies one sample of pv against d. ok is false when the
// sample passes.
func Compare(path string, d topology.Descriptor, pv primvar.Sampled, s primvar.Sample) (f report.Finding, ok bool) {
	f = report.Finding{
		Path:    path,
		Check:   CheckName,
		Primvar: pv.Name,
		Domain:  pv.Domain,
		Time:    s.Time,
		Actual:  s.Count,
	}
	expected, applicable := d.Expected(pv.Domain)
	if !applicable {
		f.Severity = report.SeverityInfo
		f.Reason = report.ReasonDomainNotApplicable
		f.Message = fmt.Sprintf("'%s' interpolation is not defined for %s prims; primvar '%s' not compared",
			pv.Domain, d.Kind, pv.Name)
		return f, true
	}
	f.Expected = expected
	if s.Count == expected {
		return report.Finding{}, false
	}
	switch {
	case pv.Domain == scene.Constant:
		f.Severity = report.SeverityError
		f.Reason = report.ReasonConstantMalformed
		f.Message = fmt.Sprintf("constant primvar '%s' holds %d values at %s, expected exactly 1",
			pv.Name, s.Count, s.Time)
	case pv.Inferred:
		f.Severity = report.SeverityWarning
		f.Reason = report.ReasonInferredDomainMismatch
		f.Message = fmt.Sprintf("expected %d '%s' values (interpolation inferred) at %s, found %d in '%s'",
			expected, pv.Domain, s.Time, s.Count, pv.Name)
	default:
		f.Severity = report.SeverityError
		f.Reason = report.ReasonTopologyMismatch
		f.Message = fmt.Sprintf("expected %d '%s' values at %s, found %d in primvar '%s'",
			expected, pv.Domain, s.Time, s.Count, pv.Name)
	}
	return f, true
}

// Evaluate runs Compare over every sample of pv. A domain that does not
// apply yields one note for the whole primvar. Samples whose topology cannot
// be read are left out and their errors returned.
func Evaluate(path string, topo DescriptorAt, pv primvar.Sampled) ([]report.Finding, []error) {
	var (
		findings []report.Finding
		errs     []error
	)
	for _, s := range pv.Samples {
		d, err := topo(s.Time)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		f, ok := Compare(path, d, pv, s)
		if !ok {
			continue
		}
		findings = append(findings, f)
		if f.Reason == report.ReasonDomainNotApplicable {
			break
		}
	}
	report.SortFindings(findings)
	return findings, errs
}

// CheckPrim evaluates every primvar of prim. Unsupported kinds are not
// applicable; read failures are collected and never stop the other primvars.
func CheckPrim(prim scene.Prim) report.Outcome {
	kind := prim.Kind()
	if !topology.Supported(kind) {
		_, err := topology.Describe(kind, scene.RawTopology{})
		return report.Outcome{NotApplicable: true, SkipReason: err.Error()}
	}

	var out report.Outcome
	pvs, err := prim.ReadPrimvars()
	if err != nil {
		out.Errors = append(out.Errors, err.Error())
		return out
	}

	topo := cachedTopology(prim)
	seenErr := map[string]bool{}
	addErr := func(err error) {
		if msg := err.Error(); !seenErr[msg] {
			seenErr[msg] = true
			out.Errors = append(out.Errors, msg)
		}
	}
	for _, pv := range pvs {
		sampled, err := primvar.Read(prim, pv)
		if err != nil {
			addErr(fmt.Errorf("%s: %w", pv.Name(), err))
			continue
		}
		for _, err := range sampled.Errors {
			addErr(fmt.Errorf("%s: %w", pv.Name(), err))
		}
		findings, errs := Evaluate(prim.Path(), topo, sampled)
		out.Findings = append(out.Findings, findings...)
		for _, err := range errs {
			addErr(err)
		}
	}
	report.SortFindings(out.Findings)
	return out
}

// cachedTopology memoizes descriptors per time code for one prim.
func cachedTopology(prim scene.Prim) DescriptorAt {
	type entry struct {
		d   topology.Descriptor
		err error
	}
	cache := map[scene.TimeCode]entry{}
	return func(t scene.TimeCode) (topology.Descriptor, error) {
		if e, ok := cache[t]; ok {
			return e.d, e.err
		}
		var e entry
		raw, err := prim.ReadTopology(t)
		if err != nil {
			e.err = fmt.Errorf("topology at %s: %w", t, err)
		} else {
			e.d, e.err = topology.Describe(prim.Kind(), raw)
		}
		cache[t] = e
		return e.d, e.err
	}
}

// Check adapts CheckPrim to the walker.
type Check struct{}

func (Check) Name() string { return CheckName }

func (Check) Run(_ context.Context, _ scene.Stage, prim scene.Prim) report.Outcome {
	return CheckPrim(prim)
}
