// Package scene is the read-only boundary to a composed scene graph.
//
// The checker never sees layers or composition arcs: a Stage hands out
// primitives whose topology and primvars are already resolved. Whether an
// opinion was authored on the primitive itself or inherited from a weaker
// layer is invisible here.
package scene

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrUnreadableAttribute wraps lower-level read failures from the stage.
// An empty or zero-length value is never reported with this error.
var ErrUnreadableAttribute = errors.New("unreadable attribute")

// ErrPrimNotFound is returned when a path does not name a primitive.
var ErrPrimNotFound = errors.New("prim not found")

// Kind is the schema type of a primitive.
type Kind string

const (
	KindMesh        Kind = "mesh"
	KindSubdiv      Kind = "subdiv"
	KindBasisCurves Kind = "basisCurves"
	KindPoints      Kind = "points"
)

// Interpolation is a primvar's interpolation domain.
type Interpolation string

const (
	Constant    Interpolation = "constant"
	Uniform     Interpolation = "uniform"
	Varying     Interpolation = "varying"
	Vertex      Interpolation = "vertex"
	FaceVarying Interpolation = "faceVarying"
)

// Interpolations lists every supported domain.
var Interpolations = []Interpolation{Constant, Uniform, Varying, Vertex, FaceVarying}

// Valid reports whether i is one of the supported domains.
func (i Interpolation) Valid() bool {
	for _, v := range Interpolations {
		if i == v {
			return true
		}
	}
	return false
}

// TimeCode is a time sample coordinate or the default (non-time-keyed) marker.
// The zero value is the default marker.
type TimeCode struct {
	value float64
	timed bool
}

// At returns the time code for coordinate t.
func At(t float64) TimeCode { return TimeCode{value: t, timed: true} }

// Default returns the default marker.
func Default() TimeCode { return TimeCode{} }

// IsDefault reports whether tc is the default marker.
func (tc TimeCode) IsDefault() bool { return !tc.timed }

// Value returns the coordinate; it is NaN for the default marker.
func (tc TimeCode) Value() float64 {
	if !tc.timed {
		return math.NaN()
	}
	return tc.value
}

// Before orders time codes with the default marker first.
func (tc TimeCode) Before(other TimeCode) bool {
	if tc.timed != other.timed {
		return !tc.timed
	}
	return tc.value < other.value
}

func (tc TimeCode) String() string {
	if !tc.timed {
		return "default"
	}
	return strconv.FormatFloat(tc.value, 'g', -1, 64)
}

// ParseTimeCode is the inverse of String.
func ParseTimeCode(s string) (TimeCode, error) {
	if s == "default" || s == "" {
		return Default(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return TimeCode{}, fmt.Errorf("parse time code %q: %w", s, err)
	}
	return At(v), nil
}

// RawTopology is the geometry a primitive exposes at one time code.
// FaceVertexCounts is nil for kinds without faces.
type RawTopology struct {
	PointCount       int
	FaceVertexCounts []int
}

// Count is a primvar's stored element count at one time code. When the
// primvar is indexed, Indices holds the index array length and is the
// element count the topology is checked against.
type Count struct {
	Values  int
	Indices int
	Indexed bool
	// Authored is false when the primvar holds no value at all at this time.
	Authored bool
}

// Elements returns the element count to compare against topology.
func (c Count) Elements() int {
	if c.Indexed {
		return c.Indices
	}
	return c.Values
}

// Binding is a material binding opinion authored on one prim. Material is
// the target prim path; it is not guaranteed to exist.
type Binding struct {
	Material string
}

// Stage is a read-only composed scene graph. Implementations must allow
// concurrent reads.
type Stage interface {
	// Root returns the path of the pseudo-root.
	Root() string
	// Children returns the direct child paths of path.
	Children(path string) ([]string, error)
	// Prim returns the primitive at path.
	Prim(path string) (Prim, error)
}

// Prim is one resolved primitive.
type Prim interface {
	Path() string
	Kind() Kind
	// Active is false for prims deactivated in the scene.
	Active() bool
	// ReadTopology returns the geometry held at t.
	ReadTopology(t TimeCode) (RawTopology, error)
	// ReadPrimvars returns the resolved primvars, in no particular order.
	ReadPrimvars() ([]Primvar, error)
	// NormalsInterpolation is the interpolation of the point-based normals
	// attribute; empty when unauthored.
	NormalsInterpolation() Interpolation
	// MaterialBinding returns the binding authored on this prim, if any.
	// Bindings inherited from ancestors are not included.
	MaterialBinding() (Binding, bool)
}

// Primvar is one resolved primvar.
type Primvar interface {
	Name() string
	// Interpolation returns the authored interpolation, ok=false if none.
	Interpolation() (Interpolation, bool)
	// TimeSamples returns the distinct authored time coordinates, ascending.
	TimeSamples() ([]TimeCode, error)
	// ElementCount returns the stored counts at t.
	ElementCount(t TimeCode) (Count, error)
}
