// Package primitive builds calibration shapes with the sdfx SDF library and
// renders them into engine meshes. Shapes are Y-up with their minimum
// corner at the origin, so a freshly built shape already sits on the plate.
package primitive

import (
	"math"
	"strings"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/pkg/errors"

	"github.com/chazu/orienteer/pkg/mesh"
)

// DefaultCells controls marching cubes resolution along the longest axis.
const DefaultCells = 100

// Shape is a solid that can be rendered to a mesh.
type Shape struct {
	name string
	s    sdf.SDF3
}

// Name returns the shape's display name.
func (s *Shape) Name() string { return s.name }

// BoundingBox returns the axis-aligned bounding box of the solid.
func (s *Shape) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// Box creates a width (X) by height (Y) by depth (Z) box.
func Box(width, height, depth float64) (*Shape, error) {
	s, err := box(width, height, depth)
	if err != nil {
		return nil, err
	}
	return &Shape{name: "box", s: s}, nil
}

// Cylinder creates an upright cylinder along Y.
func Cylinder(height, radius float64) (*Shape, error) {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		return nil, errors.Wrap(err, "sdfx cylinder")
	}
	// sdfx cylinders run along Z and are centered; stand it up and move
	// its base to the origin.
	m := sdf.Translate3d(v3.Vec{X: radius, Y: height / 2, Z: radius}).Mul(sdf.RotateX(-math.Pi / 2))
	return &Shape{name: "cylinder", s: sdf.Transform3D(s, m)}, nil
}

// Bridge creates two square pillars joined by a deck. The underside of the
// deck between the pillars is a horizontal overhang of the given span.
func Bridge(span, height, thickness float64) (*Shape, error) {
	if thickness >= height {
		return nil, errors.Errorf("bridge deck thickness %.1fmm must be below its height %.1fmm", thickness, height)
	}
	pillar := thickness * 2
	left, err := box(pillar, height, pillar)
	if err != nil {
		return nil, err
	}
	right, err := box(pillar, height, pillar)
	if err != nil {
		return nil, err
	}
	right = sdf.Transform3D(right, sdf.Translate3d(v3.Vec{X: pillar + span}))

	deck, err := box(span+2*pillar, thickness, pillar)
	if err != nil {
		return nil, err
	}
	deck = sdf.Transform3D(deck, sdf.Translate3d(v3.Vec{Y: height - thickness}))

	return &Shape{name: "bridge", s: sdf.Union3D(left, right, deck)}, nil
}

// ByName builds a named shape scaled by size, for callers that take the
// shape from a menu or command line: "box", "cylinder" or "bridge".
func ByName(name string, size float64) (*Shape, error) {
	if size <= 0 {
		return nil, errors.Errorf("primitive size %.1fmm must be positive", size)
	}
	switch strings.ToLower(name) {
	case "box", "cube":
		return Box(size, size, size)
	case "cylinder":
		return Cylinder(size, size/2)
	case "bridge":
		return Bridge(size*2, size, size/5)
	default:
		return nil, errors.Errorf("unknown primitive %q", name)
	}
}

// ToMesh renders a shape at DefaultCells resolution.
func ToMesh(s *Shape) (*mesh.Mesh, error) {
	return ToMeshCells(s, DefaultCells)
}

// ToMeshCells renders a shape with marching cubes and welds the resulting
// triangle soup into an indexed mesh.
func ToMeshCells(s *Shape, cells int) (*mesh.Mesh, error) {
	if cells <= 0 {
		return nil, errors.Errorf("marching cubes needs a positive cell count, got %d", cells)
	}

	renderer := render.NewMarchingCubesUniform(cells)
	triangles := render.ToTriangles(s.s, renderer)
	if len(triangles) == 0 {
		return nil, errors.Errorf("%s rendered no triangles", s.name)
	}

	soup := &mesh.Mesh{
		Name:     s.name,
		Vertices: make([]float32, 0, len(triangles)*9),
	}
	for _, tri := range triangles {
		for j := 0; j < 3; j++ {
			v := tri[j]
			soup.Vertices = append(soup.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
		}
	}

	m := mesh.Weld(soup)
	m.Name = s.name
	return m, nil
}

func box(x, y, z float64) (sdf.SDF3, error) {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		return nil, errors.Wrap(err, "sdfx box")
	}
	// Box3D is centered on the origin; move its minimum corner there.
	return sdf.Transform3D(s, sdf.Translate3d(v3.Vec{X: x / 2, Y: y / 2, Z: z / 2})), nil
}
