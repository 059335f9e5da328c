package scene_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sceneqc/internal/scene"
)

func TestTimeCode_Ordering(t *testing.T) {
	def, t1, t24 := scene.Default(), scene.At(1), scene.At(24)
	if !def.Before(t1) || t1.Before(def) {
		t.Error("default should order before timed samples")
	}
	if !t1.Before(t24) || t24.Before(t1) {
		t.Error("timed samples should order ascending")
	}
	if def.Before(def) {
		t.Error("default should not be before itself")
	}
	if !math.IsNaN(def.Value()) {
		t.Errorf("default Value = %v, want NaN", def.Value())
	}
}

func TestTimeCode_StringRoundTrip(t *testing.T) {
	for _, tc := range []scene.TimeCode{scene.Default(), scene.At(1001), scene.At(12.5), scene.At(-3)} {
		got, err := scene.ParseTimeCode(tc.String())
		if err != nil {
			t.Fatalf("ParseTimeCode(%q): %v", tc.String(), err)
		}
		if got != tc {
			t.Errorf("round trip %q -> %v", tc.String(), got)
		}
	}
	if _, err := scene.ParseTimeCode("frame1"); err == nil {
		t.Error("expected error for non-numeric time code")
	}
}

func TestTimeCode_JSON(t *testing.T) {
	data, err := json.Marshal([]scene.TimeCode{scene.Default(), scene.At(24)})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `["default",24]` {
		t.Errorf("Marshal = %s", data)
	}
	var back []scene.TimeCode
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back[0] != scene.Default() || back[1] != scene.At(24) {
		t.Errorf("Unmarshal = %v", back)
	}
}

func TestMemStage_ChildrenSortedAndAncestorsCreated(t *testing.T) {
	st := scene.NewMemStage().Add(
		&scene.MemPrim{PrimPath: "/World/geo/b", PrimKind: scene.KindMesh},
		&scene.MemPrim{PrimPath: "/World/geo/a", PrimKind: scene.KindMesh},
		&scene.MemPrim{PrimPath: "/Looks", PrimKind: "scope"},
	)
	root, err := st.Children(st.Root())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"/Looks", "/World"}, root); diff != "" {
		t.Errorf("root children mismatch:\n%s", diff)
	}
	kids, err := st.Children("/World/geo")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"/World/geo/a", "/World/geo/b"}, kids); diff != "" {
		t.Errorf("geo children mismatch:\n%s", diff)
	}
	world, err := st.Prim("/World")
	if err != nil {
		t.Fatalf("ancestor not created: %v", err)
	}
	if world.Kind() != "" {
		t.Errorf("ancestor kind = %q, want typeless", world.Kind())
	}
	if _, err := st.Prim("/Nope"); !errors.Is(err, scene.ErrPrimNotFound) {
		t.Errorf("Prim(/Nope) err = %v", err)
	}
}

func TestMemPrim_TopologyHeldValues(t *testing.T) {
	p := &scene.MemPrim{
		PrimPath: "/m",
		PrimKind: scene.KindMesh,
		TopologySamples: map[float64]scene.RawTopology{
			1:  {PointCount: 8},
			24: {PointCount: 12},
		},
		NoDefaultTopology: true,
	}
	tests := []struct {
		at   scene.TimeCode
		want int
	}{
		{scene.At(0), 8},
		{scene.At(1), 8},
		{scene.At(23.9), 8},
		{scene.At(24), 12},
		{scene.At(100), 12},
		{scene.Default(), 8},
	}
	for _, tc := range tests {
		got, err := p.ReadTopology(tc.at)
		if err != nil {
			t.Fatal(err)
		}
		if got.PointCount != tc.want {
			t.Errorf("ReadTopology(%s).PointCount = %d, want %d", tc.at, got.PointCount, tc.want)
		}
	}
}

func TestMemPrim_AuthoredEmptyDefaultTopology(t *testing.T) {
	p := &scene.MemPrim{
		PrimPath:        "/m",
		PrimKind:        scene.KindPoints,
		TopologySamples: map[float64]scene.RawTopology{1: {PointCount: 8}},
	}
	got, err := p.ReadTopology(scene.Default())
	if err != nil {
		t.Fatal(err)
	}
	if got.PointCount != 0 {
		t.Errorf("default PointCount = %d, want the authored 0", got.PointCount)
	}
	if got, _ := p.ReadTopology(scene.At(1)); got.PointCount != 8 {
		t.Errorf("PointCount at 1 = %d, want 8", got.PointCount)
	}
}

func TestMemPrimvar_Errors(t *testing.T) {
	pv := &scene.MemPrimvar{PvName: "foo", Err: errors.New("disk gone")}
	if _, err := pv.TimeSamples(); !errors.Is(err, scene.ErrUnreadableAttribute) {
		t.Errorf("TimeSamples err = %v, want ErrUnreadableAttribute", err)
	}
	if _, err := pv.ElementCount(scene.Default()); !errors.Is(err, scene.ErrUnreadableAttribute) {
		t.Errorf("ElementCount err = %v, want ErrUnreadableAttribute", err)
	}
	p := &scene.MemPrim{PrimPath: "/m", PrimvarsErr: errors.New("io")}
	if _, err := p.ReadPrimvars(); !errors.Is(err, scene.ErrUnreadableAttribute) {
		t.Errorf("ReadPrimvars err = %v", err)
	}
}

func TestMemPrimvar_UnauthoredAndEmpty(t *testing.T) {
	unauthored := &scene.MemPrimvar{PvName: "a", Interp: scene.Vertex}
	c, err := unauthored.ElementCount(scene.Default())
	if err != nil || c.Authored {
		t.Errorf("unauthored count = %+v, %v", c, err)
	}
	empty := &scene.MemPrimvar{PvName: "b", Interp: scene.Vertex, Value: scene.Values(0)}
	c, err = empty.ElementCount(scene.Default())
	if err != nil || !c.Authored || c.Elements() != 0 {
		t.Errorf("empty count = %+v, %v", c, err)
	}
	indexed := scene.IndexedValues(4, 36)
	if indexed.Elements() != 36 {
		t.Errorf("indexed Elements = %d, want 36", indexed.Elements())
	}
}
