// Package meshtest builds small exact meshes for tests: boxes with known
// face order and outward winding, and helpers to combine them.
package meshtest

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/orienteer/pkg/mesh"
)

// Box face indices. Each side of a box is two triangles.
const (
	FaceNegZ = 0  // and 1
	FacePosZ = 2  // and 3
	FaceNegY = 4  // and 5, the bottom
	FacePosY = 6  // and 7, the top
	FaceNegX = 8  // and 9
	FacePosX = 10 // and 11
)

var boxIndices = []uint32{
	0, 2, 1, 0, 3, 2, // -Z
	4, 5, 6, 4, 6, 7, // +Z
	0, 1, 5, 0, 5, 4, // -Y
	3, 7, 6, 3, 6, 2, // +Y
	0, 4, 7, 0, 7, 3, // -X
	1, 2, 6, 1, 6, 5, // +X
}

// Box returns an indexed, outward-wound box spanning min..max.
func Box(min, max mgl64.Vec3) *mesh.Mesh {
	corners := [8]mgl64.Vec3{
		{min[0], min[1], min[2]},
		{max[0], min[1], min[2]},
		{max[0], max[1], min[2]},
		{min[0], max[1], min[2]},
		{min[0], min[1], max[2]},
		{max[0], min[1], max[2]},
		{max[0], max[1], max[2]},
		{min[0], max[1], max[2]},
	}
	m := &mesh.Mesh{Name: "box", Indices: append([]uint32(nil), boxIndices...)}
	for _, c := range corners {
		m.Vertices = append(m.Vertices, float32(c[0]), float32(c[1]), float32(c[2]))
	}
	return m
}

// Cube returns a cube of the given edge length centered at the origin.
func Cube(size float64) *mesh.Mesh {
	h := size / 2
	m := Box(mgl64.Vec3{-h, -h, -h}, mgl64.Vec3{h, h, h})
	m.Name = "cube"
	return m
}

// Unindexed expands an indexed mesh into sequential vertex triples.
func Unindexed(m *mesh.Mesh) *mesh.Mesh {
	out := &mesh.Mesh{Name: m.Name, SourceSize: m.SourceSize}
	for _, tri := range m.Faces() {
		for _, v := range []mgl64.Vec3{tri.V0, tri.V1, tri.V2} {
			out.Vertices = append(out.Vertices, float32(v[0]), float32(v[1]), float32(v[2]))
		}
	}
	return out
}

// Merge concatenates indexed meshes into one, offsetting indices.
func Merge(name string, parts ...*mesh.Mesh) *mesh.Mesh {
	out := &mesh.Mesh{Name: name, Indices: []uint32{}}
	for _, p := range parts {
		base := uint32(p.VertexCount())
		offset := uint32(out.VertexCount())
		out.Vertices = append(out.Vertices, p.Vertices...)
		if p.Indices == nil {
			for i := uint32(0); i < base; i++ {
				out.Indices = append(out.Indices, offset+i)
			}
			continue
		}
		for _, idx := range p.Indices {
			out.Indices = append(out.Indices, offset+idx)
		}
	}
	return out
}

// Ledge returns a 10mm cube with a 20x2x10 slab cantilevered off its top,
// so the slab's underside overhangs the plate.
func Ledge() *mesh.Mesh {
	base := Box(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{10, 10, 10})
	slab := Box(mgl64.Vec3{0, 10, 0}, mgl64.Vec3{20, 12, 10})
	return Merge("ledge", base, slab)
}
