// Package meshio loads STL and 3MF files into engine meshes.
//
// Both formats are conventionally Z-up while the engine is Y-up, so by
// default loaders rotate file coordinates -90° about X: (x, y, z) becomes
// (x, z, -y).
package meshio

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpinc/go3mf"
	"github.com/hschendel/stl"
	"github.com/pkg/errors"

	"github.com/chazu/orienteer/pkg/mesh"
)

// Format identifies a supported mesh file format.
type Format int

const (
	FormatUnknown Format = iota
	FormatSTL
	Format3MF
)

func (f Format) String() string {
	switch f {
	case FormatSTL:
		return "stl"
	case Format3MF:
		return "3mf"
	default:
		return "unknown"
	}
}

// DetectFormat guesses the format from the file extension.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".stl":
		return FormatSTL
	case ".3mf":
		return Format3MF
	default:
		return FormatUnknown
	}
}

// Options controls how file coordinates map into the engine frame.
type Options struct {
	// KeepAxes disables the Z-up to Y-up conversion.
	KeepAxes bool
	// Weld merges duplicate vertices into an indexed mesh.
	Weld bool
}

// DefaultOptions converts axes and welds.
func DefaultOptions() Options {
	return Options{Weld: true}
}

// Load reads an STL or 3MF file, chosen by extension.
func Load(path string, opts Options) (*mesh.Mesh, error) {
	switch DetectFormat(path) {
	case FormatSTL:
		return LoadSTL(path, opts)
	case Format3MF:
		return Load3MF(path, opts)
	default:
		return nil, errors.Errorf("unsupported mesh file %q", path)
	}
}

// LoadSTL reads a binary or ASCII STL file.
func LoadSTL(path string, opts Options) (*mesh.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open stl")
	}
	defer f.Close()

	m, err := ReadSTL(f, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	m.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if fi, err := f.Stat(); err == nil {
		m.SourceSize = fi.Size()
	}
	return m, nil
}

// ReadSTL decodes STL data from r. The reader must seek: the decoder peeks
// at the header to tell ASCII from binary.
func ReadSTL(r io.ReadSeeker, opts Options) (*mesh.Mesh, error) {
	solid, err := stl.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "decode stl")
	}

	m := &mesh.Mesh{
		Name:     solid.Name,
		Vertices: make([]float32, 0, len(solid.Triangles)*9),
	}
	for _, tri := range solid.Triangles {
		for _, v := range tri.Vertices {
			x, y, z := convert(v[0], v[1], v[2], opts)
			m.Vertices = append(m.Vertices, x, y, z)
		}
	}
	return finish(m, opts), nil
}

// Load3MF reads every mesh object of a 3MF package into a single mesh.
// Components and build-item transforms are not applied; each object is
// taken in its own coordinates.
func Load3MF(path string, opts Options) (*mesh.Mesh, error) {
	r, err := go3mf.OpenReader(path)
	if err != nil {
		return nil, errors.Wrap(err, "open 3mf")
	}
	defer r.Close()

	var model go3mf.Model
	if err := r.Decode(&model); err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}

	m := &mesh.Mesh{
		Name:    strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Indices: []uint32{},
	}
	for _, obj := range model.Resources.Objects {
		if obj.Mesh == nil {
			continue
		}
		offset := uint32(m.VertexCount())
		for _, v := range obj.Mesh.Vertices.Vertex {
			x, y, z := convert(v[0], v[1], v[2], opts)
			m.Vertices = append(m.Vertices, x, y, z)
		}
		for _, t := range obj.Mesh.Triangles.Triangle {
			m.Indices = append(m.Indices, offset+t.V1, offset+t.V2, offset+t.V3)
		}
	}
	if len(m.Indices) == 0 {
		return nil, errors.Errorf("%s contains no mesh objects", path)
	}
	if fi, err := os.Stat(path); err == nil {
		m.SourceSize = fi.Size()
	}
	return finish(m, opts), nil
}

func convert(x, y, z float32, opts Options) (float32, float32, float32) {
	if opts.KeepAxes {
		return x, y, z
	}
	return x, z, -y
}

func finish(m *mesh.Mesh, opts Options) *mesh.Mesh {
	if !opts.Weld {
		return m
	}
	w := mesh.Weld(m)
	w.Name = m.Name
	return w
}
