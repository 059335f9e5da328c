package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a scene document and its sublayer stack and returns the
// flattened stage. Any failure here is fatal for a run: the stage cannot be
// obtained.
func LoadFile(path string) (*MemStage, error) {
	layers, err := loadLayerStack(path, map[string]bool{})
	if err != nil {
		return nil, err
	}
	return Flatten(layers...), nil
}

// Load parses a single document without sublayers. ext is the file extension
// used as a format hint; empty means detect from content.
func Load(data []byte, ext string) (*MemStage, error) {
	doc, err := decodeDocument(data, ext)
	if err != nil {
		return nil, err
	}
	return Flatten(doc), nil
}

// SceneFiles returns the root document path followed by every sublayer it
// pulls in, strongest first, each listed once. Layers that fail to load are
// still listed, and the walk goes on through their siblings; the error then
// joins every failure alongside the files found.
func SceneFiles(path string) ([]string, error) {
	var files []string
	err := walkLayerFiles(path, map[string]bool{}, &files)
	seen := make(map[string]bool, len(files))
	out := files[:0]
	for _, f := range files {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, err
}

func walkLayerFiles(path string, seen map[string]bool, files *[]string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve layer %s: %w", path, err)
	}
	if seen[abs] {
		return fmt.Errorf("sublayer cycle at %s", abs)
	}
	seen[abs] = true
	defer delete(seen, abs)
	*files = append(*files, abs)
	doc, err := readDocument(abs)
	if err != nil {
		return err
	}
	var errs []error
	for _, sub := range doc.Sublayers {
		if err := walkLayerFiles(resolveSublayer(abs, sub), seen, files); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// loadLayerStack returns the layer stack rooted at path, strongest first.
func loadLayerStack(path string, seen map[string]bool) ([]*Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve layer %s: %w", path, err)
	}
	if seen[abs] {
		return nil, fmt.Errorf("sublayer cycle at %s", abs)
	}
	seen[abs] = true
	defer delete(seen, abs)

	doc, err := readDocument(abs)
	if err != nil {
		return nil, err
	}
	stack := []*Document{doc}
	for _, sub := range doc.Sublayers {
		subStack, err := loadLayerStack(resolveSublayer(abs, sub), seen)
		if err != nil {
			return nil, fmt.Errorf("sublayer of %s: %w", abs, err)
		}
		stack = append(stack, subStack...)
	}
	return stack, nil
}

func resolveSublayer(layerPath, sub string) string {
	if filepath.IsAbs(sub) {
		return sub
	}
	return filepath.Join(filepath.Dir(layerPath), sub)
}

func readDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	doc, err := decodeDocument(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// decodeDocument parses YAML or JSON. Format is taken from ext (.yaml/.yml,
// .json) or, failing that, from the first non-whitespace byte.
func decodeDocument(data []byte, ext string) (*Document, error) {
	ext = strings.ToLower(ext)
	if ext == ".yml" {
		ext = ".yaml"
	}
	if ext == "" && strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
		ext = ".json"
	}
	if ext == ".json" && !json.Valid(data) {
		return nil, fmt.Errorf("parse scene json: invalid JSON")
	}
	// JSON is decoded through yaml.v3 too so primvar bodies stay yaml.Nodes.
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}
	if err := docValidate.Struct(doc); err != nil {
		return nil, fmt.Errorf("validate scene: %w", err)
	}
	return &doc, nil
}

// Flatten composes a layer stack (strongest first) into a stage. Prim fields
// merge per opinion group; a primvar opinion replaces weaker opinions of the
// same name wholesale.
func Flatten(layers ...*Document) *MemStage {
	merged := map[string]*mergedPrim{}
	var order []string
	for i := len(layers) - 1; i >= 0; i-- {
		for _, pd := range layers[i].Prims {
			p := path.Clean(pd.Path)
			m, ok := merged[p]
			if !ok {
				m = &mergedPrim{primvars: map[string]yaml.Node{}}
				merged[p] = m
				order = append(order, p)
			}
			m.apply(pd)
		}
	}
	stage := NewMemStage()
	for _, p := range order {
		stage.Add(merged[p].build(p))
	}
	return stage
}

type mergedPrim struct {
	kind         Kind
	points       *int
	pointSamples map[string]int
	faces        []int
	faceSamples  map[string][]int
	normals      Interpolation
	active       *bool
	material     *BindingDoc
	primvars     map[string]yaml.Node
	pvOrder      []string
}

func (m *mergedPrim) apply(pd PrimDoc) {
	if pd.Kind != "" {
		m.kind = pd.Kind
	}
	if pd.Points != nil || pd.PointSamples != nil {
		m.points, m.pointSamples = pd.Points, pd.PointSamples
	}
	if pd.FaceVertexCounts != nil || pd.FaceVertexCountSamples != nil {
		m.faces, m.faceSamples = pd.FaceVertexCounts, pd.FaceVertexCountSamples
	}
	if pd.NormalsInterpolation != "" {
		m.normals = pd.NormalsInterpolation
	}
	if pd.Active != nil {
		m.active = pd.Active
	}
	if pd.Material != nil {
		m.material = pd.Material
	}
	for i := range pd.Primvars {
		n := pd.Primvars[i]
		name, ok := primvarName(&n)
		if !ok {
			name = fmt.Sprintf("<line %d>", n.Line)
		}
		if _, seen := m.primvars[name]; !seen {
			m.pvOrder = append(m.pvOrder, name)
		}
		m.primvars[name] = n
	}
}

func (m *mergedPrim) build(p string) *MemPrim {
	prim := &MemPrim{PrimPath: p, PrimKind: m.kind, Normals: m.normals}
	prim.Inactive = m.active != nil && !*m.active
	if m.material != nil {
		prim.Binding = &Binding{Material: m.material.Path}
	}
	if err := m.buildTopology(prim); err != nil {
		prim.TopologyErr = err
	}
	for _, name := range m.pvOrder {
		n := m.primvars[name]
		prim.Primvars = append(prim.Primvars, buildPrimvar(name, &n))
	}
	return prim
}

// buildTopology combines the point and face opinions. Point and face samples
// are merged onto a shared time axis with held values.
func (m *mergedPrim) buildTopology(prim *MemPrim) error {
	pointSamples, err := parseSamples(m.pointSamples)
	if err != nil {
		return fmt.Errorf("pointSamples: %w", err)
	}
	faceSamples, err := parseSamples(m.faceSamples)
	if err != nil {
		return fmt.Errorf("faceVertexCountSamples: %w", err)
	}
	defPoints := m.points
	var defFaces *[]int
	if m.faces != nil {
		defFaces = &m.faces
	}
	prim.NoDefaultTopology = defPoints == nil && defFaces == nil
	if defPoints != nil {
		prim.Topology.PointCount = *defPoints
	}
	if defFaces != nil {
		prim.Topology.FaceVertexCounts = *defFaces
	}
	if len(pointSamples) == 0 && len(faceSamples) == 0 {
		return nil
	}
	prim.TopologySamples = map[float64]RawTopology{}
	axis := map[float64]bool{}
	for t := range pointSamples {
		axis[t] = true
	}
	for t := range faceSamples {
		axis[t] = true
	}
	for t := range axis {
		var topo RawTopology
		if n, ok := valueAt(defPoints, pointSamples, At(t)); ok {
			topo.PointCount = n
		}
		if f, ok := valueAt(defFaces, faceSamples, At(t)); ok {
			topo.FaceVertexCounts = f
		}
		prim.TopologySamples[t] = topo
	}
	return nil
}

func buildPrimvar(name string, n *yaml.Node) *MemPrimvar {
	pv := &MemPrimvar{PvName: name}
	doc, err := decodePrimvar(n)
	if err != nil {
		pv.Err = err
		return pv
	}
	pv.Interp = doc.Interpolation
	values, err := parseSamples(doc.Samples)
	if err != nil {
		pv.Err = err
		return pv
	}
	indices, err := parseSamples(doc.IndexSamples)
	if err != nil {
		pv.Err = err
		return pv
	}
	if doc.Count != nil {
		c := Count{Values: *doc.Count, Authored: true}
		if doc.Indices != nil {
			c.Indices, c.Indexed = *doc.Indices, true
		}
		pv.Value = &c
	}
	if len(values) > 0 {
		pv.Samples = make(map[float64]Count, len(values))
		var defIndices *int
		if doc.Indices != nil {
			defIndices = doc.Indices
		}
		for t, v := range values {
			c := Count{Values: v, Authored: true}
			if idx, ok := valueAt(defIndices, indices, At(t)); ok {
				c.Indices, c.Indexed = idx, true
			}
			pv.Samples[t] = c
		}
	}
	return pv
}
