package primitive

import (
	"math"
	"testing"

	"github.com/chazu/orienteer/pkg/geom"
	"github.com/chazu/orienteer/pkg/mesh"
)

const testCells = 40

func renderShape(t *testing.T, s *Shape) *mesh.Mesh {
	t.Helper()
	m, err := ToMeshCells(s, testCells)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("rendered mesh invalid: %v", err)
	}
	return m
}

func TestBox(t *testing.T) {
	s, err := Box(20, 10, 5)
	if err != nil {
		t.Fatalf("Box: %v", err)
	}
	min, max := s.BoundingBox()
	want := [3]float64{20, 10, 5}
	for i := range 3 {
		if math.Abs(min[i]) > 1e-9 {
			t.Errorf("bounding box min[%d] = %f, want 0", i, min[i])
		}
		if math.Abs(max[i]-want[i]) > 1e-9 {
			t.Errorf("bounding box max[%d] = %f, want %f", i, max[i], want[i])
		}
	}

	m := renderShape(t, s)
	if m.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	if !m.Indexed() {
		t.Error("rendered mesh should be welded into an indexed mesh")
	}
	t.Logf("box triangle count: %d", m.TriangleCount())
}

func TestCylinderStandsOnPlate(t *testing.T) {
	s, err := Cylinder(30, 5)
	if err != nil {
		t.Fatalf("Cylinder: %v", err)
	}
	min, max := s.BoundingBox()
	if math.Abs(min[1]) > 1e-6 {
		t.Errorf("cylinder base at y=%f, want 0", min[1])
	}
	if math.Abs(max[1]-30) > 1e-6 {
		t.Errorf("cylinder top at y=%f, want 30", max[1])
	}
	if math.Abs(max[0]-min[0]-10) > 1e-6 {
		t.Errorf("cylinder diameter %f, want 10", max[0]-min[0])
	}

	m := renderShape(t, s)
	box := mesh.ComputeAABB(m, geom.Identity())
	if box.Height() < 25 {
		t.Errorf("rendered cylinder height %f, expected close to 30", box.Height())
	}
}

func TestBridge(t *testing.T) {
	s, err := Bridge(20, 10, 2)
	if err != nil {
		t.Fatalf("Bridge: %v", err)
	}
	min, max := s.BoundingBox()
	if math.Abs(max[0]-min[0]-28) > 1e-6 {
		t.Errorf("bridge length %f, want 28 (span + two pillars)", max[0]-min[0])
	}
	m := renderShape(t, s)
	if m.TriangleCount() == 0 {
		t.Fatal("expected triangles")
	}

	if _, err := Bridge(20, 2, 2); err == nil {
		t.Error("expected error for a deck as thick as the bridge is tall")
	}
}

func TestByName(t *testing.T) {
	tests := []struct {
		name    string
		size    float64
		wantErr bool
	}{
		{"box", 10, false},
		{"Cube", 10, false},
		{"cylinder", 10, false},
		{"bridge", 10, false},
		{"teapot", 10, true},
		{"box", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ByName(tt.name, tt.size)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ByName: %v", err)
			}
			if s.Name() == "" {
				t.Error("expected a shape name")
			}
		})
	}
}

func TestToMeshRejectsZeroCells(t *testing.T) {
	s, err := Box(1, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ToMeshCells(s, 0); err == nil {
		t.Error("expected error for zero cells")
	}
}
