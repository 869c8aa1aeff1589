package mesh

// Weld merges bit-identical vertices and returns an indexed mesh. STL files
// store every triangle's corners separately, so welding shrinks the vertex
// buffer the engine transforms on every bounds check by roughly 6x.
func Weld(m *Mesh) *Mesh {
	if m == nil {
		return nil
	}
	out := &Mesh{Name: m.Name, SourceSize: m.SourceSize, Indices: make([]uint32, 0, m.TriangleCount()*3)}
	seen := make(map[[3]float32]uint32, m.VertexCount())

	add := func(i int) uint32 {
		key := [3]float32{m.Vertices[3*i], m.Vertices[3*i+1], m.Vertices[3*i+2]}
		if idx, ok := seen[key]; ok {
			return idx
		}
		idx := uint32(len(out.Vertices) / 3)
		out.Vertices = append(out.Vertices, key[0], key[1], key[2])
		seen[key] = idx
		return idx
	}

	nv := m.VertexCount()
	for f, n := 0, m.TriangleCount(); f < n; f++ {
		a, b, c := 3*f, 3*f+1, 3*f+2
		if m.Indices != nil {
			a, b, c = int(m.Indices[a]), int(m.Indices[b]), int(m.Indices[c])
		}
		if a >= nv || b >= nv || c >= nv {
			break
		}
		out.Indices = append(out.Indices, add(a), add(b), add(c))
	}
	return out
}
