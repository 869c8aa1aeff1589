// Package mesh defines the immutable triangle soup the orientation engine
// reads. Vertices are flat (3 floats per vertex); Indices are optional and,
// when absent, consecutive vertex triples form the triangles.
package mesh

import (
	"iter"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/orienteer/pkg/geom"
)

// Mesh is a triangle mesh as loaded from STL/3MF or generated from a
// primitive. The engine never mutates it.
type Mesh struct {
	Vertices []float32 `json:"vertices"`          // [x0,y0,z0, x1,y1,z1, ...]
	Indices  []uint32  `json:"indices,omitempty"` // [i0,i1,i2, ...] triangles; nil for sequential triples
	Name     string    `json:"name"`

	// SourceSize is the size in bytes of the file the mesh was read from,
	// or 0 when unknown. It drives large-model classification.
	SourceSize int64 `json:"sourceSize"`
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	if m.Indices != nil {
		return len(m.Indices) / 3
	}
	return m.VertexCount() / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return m == nil || len(m.Vertices) == 0 || m.TriangleCount() == 0
}

// Indexed reports whether the mesh carries an index buffer.
func (m *Mesh) Indexed() bool {
	return m.Indices != nil
}

// Vertex returns vertex i as a float64 vector.
func (m *Mesh) Vertex(i int) mgl64.Vec3 {
	j := i * 3
	return mgl64.Vec3{float64(m.Vertices[j]), float64(m.Vertices[j+1]), float64(m.Vertices[j+2])}
}

// Validate checks that the mesh can be iterated safely. Every failure is a
// *geom.GeometryError.
func (m *Mesh) Validate() error {
	const op = "validate mesh"
	if m == nil || len(m.Vertices) == 0 {
		return geom.NewGeometryError(op, "mesh has no vertices")
	}
	if len(m.Vertices)%3 != 0 {
		return geom.NewGeometryError(op, "vertex array length %d is not a multiple of 3", len(m.Vertices))
	}
	for i, f := range m.Vertices {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return geom.NewGeometryError(op, "vertex %d has a non-finite coordinate", i/3)
		}
	}
	nv := m.VertexCount()
	if m.Indices == nil {
		if nv%3 != 0 {
			return geom.NewGeometryError(op, "unindexed mesh has %d vertices, not a multiple of 3", nv)
		}
		return nil
	}
	if len(m.Indices) == 0 {
		return geom.NewGeometryError(op, "index buffer is empty")
	}
	if len(m.Indices)%3 != 0 {
		return geom.NewGeometryError(op, "index array length %d is not a multiple of 3", len(m.Indices))
	}
	for i, idx := range m.Indices {
		if int(idx) >= nv {
			return geom.NewGeometryError(op, "index %d of triangle %d is out of range (%d vertices)", idx, i/3, nv)
		}
	}
	return nil
}

// Faces returns the triangles of the mesh, in order, with their face index.
// The sequence is lazy and can be ranged over any number of times. Callers
// are expected to Validate first; malformed buffers stop the sequence at
// the first bad triangle instead of panicking.
func (m *Mesh) Faces() iter.Seq2[int, geom.Triangle] {
	return func(yield func(int, geom.Triangle) bool) {
		if m == nil {
			return
		}
		nv := m.VertexCount()
		n := m.TriangleCount()
		for f := 0; f < n; f++ {
			a, b, c := 3*f, 3*f+1, 3*f+2
			if m.Indices != nil {
				a, b, c = int(m.Indices[a]), int(m.Indices[b]), int(m.Indices[c])
			}
			if a >= nv || b >= nv || c >= nv {
				return
			}
			if !yield(f, geom.Triangle{V0: m.Vertex(a), V1: m.Vertex(b), V2: m.Vertex(c)}) {
				return
			}
		}
	}
}

// Clone returns a deep copy of m.
func (m *Mesh) Clone() *Mesh {
	if m == nil {
		return nil
	}
	c := &Mesh{Name: m.Name, SourceSize: m.SourceSize}
	c.Vertices = append([]float32(nil), m.Vertices...)
	if m.Indices != nil {
		c.Indices = append([]uint32{}, m.Indices...)
	}
	return c
}

// ByteSize is the in-memory size of the vertex and index buffers. Sessions
// compare it against the large-model threshold.
func (m *Mesh) ByteSize() int64 {
	return int64(len(m.Vertices))*4 + int64(len(m.Indices))*4
}
