// Package topology derives per-domain element counts from a primitive's raw
// geometry.
package topology

import (
	"errors"
	"fmt"

	"sceneqc/internal/scene"
)

// ErrUnsupportedPrimitiveKind is returned for kinds without a topology rule.
// It marks a primitive as skipped, not as defective.
var ErrUnsupportedPrimitiveKind = errors.New("unsupported primitive kind")

// Descriptor holds the domain cardinalities of one primitive at one time.
// Counts that do not apply to the kind are -1.
type Descriptor struct {
	Kind             scene.Kind
	PointCount       int
	FaceCount        int
	FaceVaryingCount int
	VertexCount      int
}

const notApplicable = -1

// Describe computes the descriptor for kind from raw.
func Describe(kind scene.Kind, raw scene.RawTopology) (Descriptor, error) {
	d := Descriptor{
		Kind:             kind,
		PointCount:       raw.PointCount,
		FaceCount:        notApplicable,
		FaceVaryingCount: notApplicable,
		VertexCount:      notApplicable,
	}
	switch kind {
	case scene.KindMesh, scene.KindSubdiv:
		d.FaceCount = len(raw.FaceVertexCounts)
		d.FaceVaryingCount = sum(raw.FaceVertexCounts)
		d.VertexCount = raw.PointCount
	case scene.KindBasisCurves:
		d.VertexCount = raw.PointCount
	case scene.KindPoints:
	default:
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnsupportedPrimitiveKind, kind)
	}
	return d, nil
}

// Supported reports whether Describe has a rule for kind.
func Supported(kind scene.Kind) bool {
	switch kind {
	case scene.KindMesh, scene.KindSubdiv, scene.KindBasisCurves, scene.KindPoints:
		return true
	}
	return false
}

// Expected returns the element count a primvar of domain must carry.
// ok is false when the domain is undefined for the descriptor's kind.
func (d Descriptor) Expected(domain scene.Interpolation) (count int, ok bool) {
	switch domain {
	case scene.Constant:
		return 1, true
	case scene.Uniform:
		count = d.FaceCount
	case scene.Varying:
		count = d.PointCount
	case scene.Vertex:
		count = d.VertexCount
	case scene.FaceVarying:
		count = d.FaceVaryingCount
	default:
		return 0, false
	}
	if count == notApplicable {
		return 0, false
	}
	return count, true
}

func sum(counts []int) int {
	n := 0
	for _, c := range counts {
		n += c
	}
	return n
}
