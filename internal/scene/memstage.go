package scene

import (
	"fmt"
	"path"
	"sort"
	"sync"
)

// RootPath is the pseudo-root of every stage.
const RootPath = "/"

// MemStage is an in-memory Stage. Prims are registered with Add; missing
// ancestors are created as typeless prims.
type MemStage struct {
	mu       sync.RWMutex
	prims    map[string]*MemPrim
	children map[string][]string
}

// NewMemStage returns an empty stage holding only the pseudo-root.
func NewMemStage() *MemStage {
	return &MemStage{
		prims:    map[string]*MemPrim{},
		children: map[string][]string{},
	}
}

// Add registers p and any missing ancestors. Re-adding a path replaces it.
func (s *MemStage) Add(prims ...*MemPrim) *MemStage {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range prims {
		s.add(p)
	}
	return s
}

func (s *MemStage) add(p *MemPrim) {
	p.PrimPath = path.Clean(p.PrimPath)
	if _, exists := s.prims[p.PrimPath]; !exists {
		parent := path.Dir(p.PrimPath)
		if parent != RootPath {
			if _, ok := s.prims[parent]; !ok {
				s.add(&MemPrim{PrimPath: parent})
			}
		}
		s.children[parent] = append(s.children[parent], p.PrimPath)
	}
	s.prims[p.PrimPath] = p
}

func (s *MemStage) Root() string { return RootPath }

func (s *MemStage) Children(p string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p != RootPath {
		if _, ok := s.prims[p]; !ok {
			return nil, fmt.Errorf("%s: %w", p, ErrPrimNotFound)
		}
	}
	out := append([]string(nil), s.children[p]...)
	sort.Strings(out)
	return out, nil
}

func (s *MemStage) Prim(p string) (Prim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prim, ok := s.prims[p]
	if !ok {
		return nil, fmt.Errorf("%s: %w", p, ErrPrimNotFound)
	}
	return prim, nil
}

// MemPrim is an in-memory Prim. TopologyErr and PrimvarsErr inject read
// failures; they are wrapped with ErrUnreadableAttribute when returned.
type MemPrim struct {
	PrimPath        string
	PrimKind        Kind
	Topology        RawTopology
	TopologySamples map[float64]RawTopology
	Normals         Interpolation
	Binding         *Binding
	Inactive        bool
	Primvars        []*MemPrimvar
	TopologyErr     error
	PrimvarsErr     error

	// NoDefaultTopology marks Topology as unauthored; only the samples
	// carry geometry.
	NoDefaultTopology bool
}

func (p *MemPrim) Path() string { return p.PrimPath }
func (p *MemPrim) Kind() Kind   { return p.PrimKind }
func (p *MemPrim) Active() bool { return !p.Inactive }

func (p *MemPrim) ReadTopology(t TimeCode) (RawTopology, error) {
	if p.TopologyErr != nil {
		return RawTopology{}, fmt.Errorf("%s topology: %w: %w", p.PrimPath, ErrUnreadableAttribute, p.TopologyErr)
	}
	def := &p.Topology
	if p.NoDefaultTopology {
		def = nil
	}
	topo, _ := valueAt(def, p.TopologySamples, t)
	return topo, nil
}

func (p *MemPrim) ReadPrimvars() ([]Primvar, error) {
	if p.PrimvarsErr != nil {
		return nil, fmt.Errorf("%s primvars: %w: %w", p.PrimPath, ErrUnreadableAttribute, p.PrimvarsErr)
	}
	out := make([]Primvar, len(p.Primvars))
	for i, pv := range p.Primvars {
		out[i] = pv
	}
	return out, nil
}

func (p *MemPrim) NormalsInterpolation() Interpolation { return p.Normals }

func (p *MemPrim) MaterialBinding() (Binding, bool) {
	if p.Binding == nil {
		return Binding{}, false
	}
	return *p.Binding, true
}

// MemPrimvar is an in-memory Primvar. Value is the default value (nil when
// unauthored); Samples holds time-keyed values.
type MemPrimvar struct {
	PvName  string
	Interp  Interpolation
	Value   *Count
	Samples map[float64]Count
	Err     error
}

// Values returns an authored, non-indexed count.
func Values(n int) *Count { return &Count{Values: n, Authored: true} }

// IndexedValues returns an authored, indexed count.
func IndexedValues(values, indices int) *Count {
	return &Count{Values: values, Indices: indices, Indexed: true, Authored: true}
}

func (pv *MemPrimvar) Name() string { return pv.PvName }

func (pv *MemPrimvar) Interpolation() (Interpolation, bool) {
	return pv.Interp, pv.Interp != ""
}

func (pv *MemPrimvar) TimeSamples() ([]TimeCode, error) {
	if pv.Err != nil {
		return nil, pv.wrap(pv.Err)
	}
	return timeCodes(sortedTimes(pv.Samples)), nil
}

func (pv *MemPrimvar) ElementCount(t TimeCode) (Count, error) {
	if pv.Err != nil {
		return Count{}, pv.wrap(pv.Err)
	}
	c, ok := valueAt(pv.Value, pv.Samples, t)
	if !ok {
		return Count{}, nil
	}
	return c, nil
}

func (pv *MemPrimvar) wrap(err error) error {
	return fmt.Errorf("primvar %s: %w: %w", pv.PvName, ErrUnreadableAttribute, err)
}
