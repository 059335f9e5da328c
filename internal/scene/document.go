package scene

import (
	"fmt"
	"math"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// docValidate checks decoded scene documents.
var docValidate = validator.New()

func init() {
	_ = docValidate.RegisterValidation("interpolation", func(fl validator.FieldLevel) bool {
		return Interpolation(fl.Field().String()).Valid()
	})
	_ = docValidate.RegisterValidation("primpath", func(fl validator.FieldLevel) bool {
		p := fl.Field().String()
		return len(p) > 1 && p[0] == '/'
	})
}

// Document is one layer of a scene file.
//
//	sublayers: [shot_base.yaml]
//	prims:
//	  - path: /World/geo/rock
//	    kind: mesh
//	    points: 500
//	    faceVertexCounts: [4, 4, 3]
//	    primvars:
//	      - name: displayColor
//	        interpolation: vertex
//	        count: 500
//
// Sublayers are weaker than the layer that lists them; earlier entries are
// stronger than later ones.
type Document struct {
	Sublayers []string  `yaml:"sublayers" json:"sublayers"`
	Prims     []PrimDoc `yaml:"prims" json:"prims" validate:"dive"`
}

// PrimDoc is one prim opinion. Pointer and nil-slice fields are "no
// opinion" and let weaker layers show through.
type PrimDoc struct {
	Path                   string           `yaml:"path" json:"path" validate:"required,primpath"`
	Kind                   Kind             `yaml:"kind,omitempty" json:"kind,omitempty"`
	Points                 *int             `yaml:"points,omitempty" json:"points,omitempty" validate:"omitempty,gte=0"`
	PointSamples           map[string]int   `yaml:"pointSamples,omitempty" json:"pointSamples,omitempty" validate:"dive,gte=0"`
	FaceVertexCounts       []int            `yaml:"faceVertexCounts,omitempty" json:"faceVertexCounts,omitempty" validate:"dive,gte=0"`
	FaceVertexCountSamples map[string][]int `yaml:"faceVertexCountSamples,omitempty" json:"faceVertexCountSamples,omitempty"`
	NormalsInterpolation   Interpolation    `yaml:"normalsInterpolation,omitempty" json:"normalsInterpolation,omitempty" validate:"omitempty,interpolation"`
	Active                 *bool            `yaml:"active,omitempty" json:"active,omitempty"`
	Material               *BindingDoc      `yaml:"material,omitempty" json:"material,omitempty"`
	// Primvars are decoded lazily so one malformed entry only affects itself.
	Primvars []yaml.Node `yaml:"primvars,omitempty" json:"primvars,omitempty"`
}

// BindingDoc is a material binding opinion. Path names the material prim.
type BindingDoc struct {
	Path string `yaml:"path" json:"path" validate:"required"`
}

// PrimvarDoc is one primvar opinion.
type PrimvarDoc struct {
	Name          string         `yaml:"name" json:"name" validate:"required"`
	Interpolation Interpolation  `yaml:"interpolation,omitempty" json:"interpolation,omitempty" validate:"omitempty,interpolation"`
	Type          string         `yaml:"type,omitempty" json:"type,omitempty"`
	Count         *int           `yaml:"count,omitempty" json:"count,omitempty" validate:"omitempty,gte=0"`
	Indices       *int           `yaml:"indices,omitempty" json:"indices,omitempty" validate:"omitempty,gte=0"`
	Samples       map[string]int `yaml:"samples,omitempty" json:"samples,omitempty" validate:"dive,gte=0"`
	IndexSamples  map[string]int `yaml:"indexSamples,omitempty" json:"indexSamples,omitempty" validate:"dive,gte=0"`
}

// primvarName extracts the name key of an undecoded primvar node.
func primvarName(n *yaml.Node) (string, bool) {
	if n.Kind != yaml.MappingNode {
		return "", false
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == "name" && n.Content[i+1].Kind == yaml.ScalarNode {
			return n.Content[i+1].Value, true
		}
	}
	return "", false
}

// decodePrimvar decodes and validates one primvar node.
func decodePrimvar(n *yaml.Node) (PrimvarDoc, error) {
	var pv PrimvarDoc
	if err := n.Decode(&pv); err != nil {
		return PrimvarDoc{}, fmt.Errorf("decode primvar (line %d): %w", n.Line, err)
	}
	if err := docValidate.Struct(pv); err != nil {
		return PrimvarDoc{}, fmt.Errorf("validate primvar %q: %w", pv.Name, err)
	}
	return pv, nil
}

// parseSamples converts string-keyed time samples into coordinates. Keys
// must be finite numbers.
func parseSamples[T any](in map[string]T) (map[float64]T, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[float64]T, len(in))
	for k, v := range in {
		t, err := strconv.ParseFloat(k, 64)
		if err != nil {
			return nil, fmt.Errorf("time sample %q: %w", k, err)
		}
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, fmt.Errorf("time sample %q: not a finite time", k)
		}
		out[t] = v
	}
	return out, nil
}
