package meshio

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/hschendel/stl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/orienteer/pkg/geom"
	"github.com/chazu/orienteer/pkg/mesh"
)

// tetraSolid is a tetrahedron in Z-up file coordinates, 10mm tall along Z.
func tetraSolid() *stl.Solid {
	a := stl.Vec3{0, 0, 0}
	b := stl.Vec3{10, 0, 0}
	c := stl.Vec3{0, 10, 0}
	d := stl.Vec3{0, 0, 10}
	return &stl.Solid{
		Name: "tetra",
		Triangles: []stl.Triangle{
			{Vertices: [3]stl.Vec3{a, c, b}},
			{Vertices: [3]stl.Vec3{a, b, d}},
			{Vertices: [3]stl.Vec3{a, d, c}},
			{Vertices: [3]stl.Vec3{b, c, d}},
		},
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"part.stl", FormatSTL},
		{"PART.STL", FormatSTL},
		{"dir/model.3mf", Format3MF},
		{"model.obj", FormatUnknown},
		{"noext", FormatUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFormat(tt.path))
		})
	}
}

func TestLoadSTL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tetra.stl")
	require.NoError(t, tetraSolid().WriteFile(path))

	t.Run("welded and converted to Y-up", func(t *testing.T) {
		m, err := Load(path, DefaultOptions())
		require.NoError(t, err)
		require.NoError(t, m.Validate())

		assert.Equal(t, "tetra", m.Name)
		assert.Equal(t, 4, m.TriangleCount())
		assert.Equal(t, 4, m.VertexCount(), "shared corners should be welded")
		assert.Greater(t, m.SourceSize, int64(0))

		box := mesh.ComputeAABB(m, geom.Identity())
		assert.InDelta(t, 10, box.Max[1], 1e-6, "file Z becomes engine Y")
		assert.InDelta(t, -10, box.Min[2], 1e-6, "file Y becomes engine -Z")
	})

	t.Run("raw axes, unwelded", func(t *testing.T) {
		m, err := LoadSTL(path, Options{KeepAxes: true})
		require.NoError(t, err)
		assert.False(t, m.Indexed())
		assert.Equal(t, 12, m.VertexCount())

		box := mesh.ComputeAABB(m, geom.Identity())
		assert.InDelta(t, 10, box.Max[2], 1e-6)
	})
}

func TestReadSTLFromReader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, tetraSolid().WriteAll(&buf))

	m, err := ReadSTL(bytes.NewReader(buf.Bytes()), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 4, m.TriangleCount())
	assert.Equal(t, 4, m.VertexCount(), "welded")
}

func TestLoadErrors(t *testing.T) {
	_, err := Load("model.obj", DefaultOptions())
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.stl"), DefaultOptions())
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.3mf"), DefaultOptions())
	assert.Error(t, err)
}

const (
	contentTypes = `<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="model" ContentType="application/vnd.ms-package.3dmanufacturing-3dmodel+xml"/>
</Types>`
	rootRels = `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Target="/3D/3dmodel.model" Id="rel0" Type="http://schemas.microsoft.com/3dmanufacturing/2013/01/3dmodel"/>
</Relationships>`
	modelXML = `<?xml version="1.0" encoding="UTF-8"?>
<model unit="millimeter" xml:lang="en-US" xmlns="http://schemas.microsoft.com/3dmanufacturing/core/2015/02">
  <resources>
    <object id="1" type="model">
      <mesh>
        <vertices>
          <vertex x="0" y="0" z="0"/>
          <vertex x="10" y="0" z="0"/>
          <vertex x="0" y="10" z="0"/>
          <vertex x="0" y="0" z="10"/>
        </vertices>
        <triangles>
          <triangle v1="0" v2="2" v3="1"/>
          <triangle v1="0" v2="1" v3="3"/>
          <triangle v1="0" v2="3" v3="2"/>
          <triangle v1="1" v2="2" v3="3"/>
        </triangles>
      </mesh>
    </object>
  </resources>
  <build>
    <item objectid="1"/>
  </build>
</model>`
)

func write3MF(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, body := range map[string]string{
		"[Content_Types].xml": contentTypes,
		"_rels/.rels":         rootRels,
		"3D/3dmodel.model":    modelXML,
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func TestLoad3MF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tetra.3mf")
	write3MF(t, path)

	m, err := Load(path, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	assert.Equal(t, "tetra", m.Name)
	assert.Equal(t, 4, m.TriangleCount())
	assert.Equal(t, 4, m.VertexCount())

	box := mesh.ComputeAABB(m, geom.Identity())
	assert.InDelta(t, 10, box.Max[1], 1e-6)
}
