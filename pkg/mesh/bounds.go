package mesh

import (
	"github.com/chazu/orienteer/pkg/geom"
)

// ComputeAABB transforms every vertex by o and folds the result into a
// world-space bounding box. Cost is O(vertex count). An empty mesh yields
// an empty box.
func ComputeAABB(m *Mesh, o geom.Orientation) geom.AABB {
	box := geom.EmptyAABB()
	if m == nil {
		return box
	}
	for i, n := 0, m.VertexCount(); i < n; i++ {
		box = box.Extend(o.Apply(m.Vertex(i)))
	}
	return box
}

// MinHeight returns the lowest world Y coordinate of the mesh under o, and
// false for an empty mesh.
func MinHeight(m *Mesh, o geom.Orientation) (float64, bool) {
	box := ComputeAABB(m, o)
	if box.IsEmpty() {
		return 0, false
	}
	return box.Min[1], true
}
