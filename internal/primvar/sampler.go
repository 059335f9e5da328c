// Package primvar reads a primvar's domain and its stored element counts at
// every authored time sample. It never judges whether a count is correct.
package primvar

import (
	"fmt"

	"sceneqc/internal/scene"
)

// Sample is the element count stored at one time code.
type Sample struct {
	Time    scene.TimeCode
	Count   int
	Indexed bool
}

// Sampled is the full read of one primvar.
type Sampled struct {
	Name   string
	Domain scene.Interpolation
	// Inferred is true when Domain comes from a fallback rule rather than
	// authored interpolation metadata.
	Inferred bool
	Samples  []Sample
	// Errors holds the samples that could not be read; they are left out
	// of Samples.
	Errors []error
}

// ResolveDomain returns the primvar's interpolation. Point-based normals
// follow the prim's normals interpolation, velocities and accelerations are
// per point, and anything else without metadata is constant. inferred is
// only set for the per-point fallbacks, which nothing in the scene declares.
func ResolveDomain(prim scene.Prim, pv scene.Primvar) (domain scene.Interpolation, inferred bool) {
	if interp, ok := pv.Interpolation(); ok {
		return interp, false
	}
	switch pv.Name() {
	case "normals":
		if n := prim.NormalsInterpolation(); n != "" {
			return n, false
		}
		return scene.Vertex, true
	case "velocities", "accelerations":
		return scene.Vertex, true
	}
	return scene.Constant, false
}

// Read samples pv on prim. A primvar without time samples yields a single
// default sample; one without any authored value yields none. The error is
// set only when the time samples themselves cannot be listed; a sample whose
// value cannot be read is recorded in Errors and the rest are still read.
// Errors wrap scene.ErrUnreadableAttribute.
func Read(prim scene.Prim, pv scene.Primvar) (Sampled, error) {
	out := Sampled{Name: pv.Name()}
	out.Domain, out.Inferred = ResolveDomain(prim, pv)

	times, err := pv.TimeSamples()
	if err != nil {
		return out, fmt.Errorf("time samples: %w", err)
	}
	if len(times) == 0 {
		times = []scene.TimeCode{scene.Default()}
	}
	seen := make(map[scene.TimeCode]bool, len(times))
	for _, t := range times {
		if seen[t] {
			continue
		}
		seen[t] = true
		c, err := pv.ElementCount(t)
		if err != nil {
			out.Errors = append(out.Errors, fmt.Errorf("value at %s: %w", t, err))
			continue
		}
		if !c.Authored {
			continue
		}
		out.Samples = append(out.Samples, Sample{Time: t, Count: c.Elements(), Indexed: c.Indexed})
	}
	return out, nil
}
