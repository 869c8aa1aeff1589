package worker

import (
	"github.com/tinylib/msgp/msgp"

	"github.com/chazu/orienteer/pkg/geom"
	"github.com/chazu/orienteer/pkg/mesh"
)

var (
	_ msgp.Marshaler   = (*MeshBuffer)(nil)
	_ msgp.Unmarshaler = (*MeshBuffer)(nil)
	_ msgp.Sizer       = (*MeshBuffer)(nil)
	_ msgp.Marshaler   = (*Request)(nil)
	_ msgp.Unmarshaler = (*Request)(nil)
	_ msgp.Sizer       = (*Request)(nil)
	_ msgp.Marshaler   = (*Response)(nil)
	_ msgp.Unmarshaler = (*Response)(nil)
	_ msgp.Sizer       = (*Response)(nil)
)

// MeshBuffer is the transferable form of a mesh: plain position and index
// arrays with no references back into the session.
type MeshBuffer struct {
	Name       string
	SourceSize int64
	Vertices   []float32
	Indices    []uint32 // nil for sequential triangles
}

// NewMeshBuffer copies m into a buffer.
func NewMeshBuffer(m *mesh.Mesh) *MeshBuffer {
	c := m.Clone()
	if c == nil {
		return &MeshBuffer{}
	}
	return &MeshBuffer{
		Name:       c.Name,
		SourceSize: c.SourceSize,
		Vertices:   c.Vertices,
		Indices:    c.Indices,
	}
}

// Mesh returns the buffer as a mesh. The mesh shares the buffer's arrays.
func (z *MeshBuffer) Mesh() *mesh.Mesh {
	return &mesh.Mesh{
		Name:       z.Name,
		SourceSize: z.SourceSize,
		Vertices:   z.Vertices,
		Indices:    z.Indices,
	}
}

// Encode serializes m once so it can be attached to many requests.
func Encode(m *mesh.Mesh) ([]byte, error) {
	return NewMeshBuffer(m).MarshalMsg(nil)
}

// MarshalMsg implements msgp.Marshaler
func (z *MeshBuffer) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, z.Msgsize())
	o = msgp.AppendMapHeader(o, 4)
	o = msgp.AppendString(o, "name")
	o = msgp.AppendString(o, z.Name)
	o = msgp.AppendString(o, "size")
	o = msgp.AppendInt64(o, z.SourceSize)
	o = msgp.AppendString(o, "vertices")
	o = msgp.AppendArrayHeader(o, uint32(len(z.Vertices)))
	for _, v := range z.Vertices {
		o = msgp.AppendFloat32(o, v)
	}
	o = msgp.AppendString(o, "indices")
	if z.Indices == nil {
		o = msgp.AppendNil(o)
	} else {
		o = msgp.AppendArrayHeader(o, uint32(len(z.Indices)))
		for _, v := range z.Indices {
			o = msgp.AppendUint32(o, v)
		}
	}
	return
}

// UnmarshalMsg implements msgp.Unmarshaler
func (z *MeshBuffer) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var field []byte
	var zb0001 uint32
	zb0001, bts, err = msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		err = msgp.WrapError(err)
		return
	}
	for zb0001 > 0 {
		zb0001--
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			err = msgp.WrapError(err)
			return
		}
		switch msgp.UnsafeString(field) {
		case "name":
			z.Name, bts, err = msgp.ReadStringBytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Name")
				return
			}
		case "size":
			z.SourceSize, bts, err = msgp.ReadInt64Bytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "SourceSize")
				return
			}
		case "vertices":
			var n uint32
			n, bts, err = msgp.ReadArrayHeaderBytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Vertices")
				return
			}
			z.Vertices = make([]float32, n)
			for i := range z.Vertices {
				z.Vertices[i], bts, err = msgp.ReadFloat32Bytes(bts)
				if err != nil {
					err = msgp.WrapError(err, "Vertices", i)
					return
				}
			}
		case "indices":
			if msgp.IsNil(bts) {
				bts, err = msgp.ReadNilBytes(bts)
				if err != nil {
					return
				}
				z.Indices = nil
				continue
			}
			var n uint32
			n, bts, err = msgp.ReadArrayHeaderBytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Indices")
				return
			}
			z.Indices = make([]uint32, n)
			for i := range z.Indices {
				z.Indices[i], bts, err = msgp.ReadUint32Bytes(bts)
				if err != nil {
					err = msgp.WrapError(err, "Indices", i)
					return
				}
			}
		default:
			bts, err = msgp.Skip(bts)
			if err != nil {
				err = msgp.WrapError(err)
				return
			}
		}
	}
	o = bts
	return
}

// Msgsize returns an upper bound estimate of the number of bytes occupied by the serialized message
func (z *MeshBuffer) Msgsize() (s int) {
	s = 1 + 5 + msgp.StringPrefixSize + len(z.Name) +
		5 + msgp.Int64Size +
		9 + msgp.ArrayHeaderSize + len(z.Vertices)*msgp.Float32Size +
		8 + msgp.ArrayHeaderSize + len(z.Indices)*msgp.Uint32Size
	return
}

// Request asks the worker to classify overhangs for one orientation.
type Request struct {
	Seq uint64
	// Mesh is an encoded MeshBuffer, copied into every request.
	Mesh []byte

	Rotation        [4]float64 // x, y, z, w
	Translation     [3]float64
	Up              [3]float64
	ThresholdDeg    float64
	Density         float64
	GroundTolerance float64
}

// Orientation returns the requested pose.
func (z *Request) Orientation() geom.Orientation {
	return geom.Orientation{
		Rotation:    geom.QuatFromTuple(z.Rotation),
		Translation: z.Translation,
	}
}

// MarshalMsg implements msgp.Marshaler
func (z *Request) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, z.Msgsize())
	o = msgp.AppendMapHeader(o, 8)
	o = msgp.AppendString(o, "seq")
	o = msgp.AppendUint64(o, z.Seq)
	o = msgp.AppendString(o, "mesh")
	o = msgp.AppendBytes(o, z.Mesh)
	o = msgp.AppendString(o, "rot")
	o = appendFloats(o, z.Rotation[:])
	o = msgp.AppendString(o, "pos")
	o = appendFloats(o, z.Translation[:])
	o = msgp.AppendString(o, "up")
	o = appendFloats(o, z.Up[:])
	o = msgp.AppendString(o, "threshold")
	o = msgp.AppendFloat64(o, z.ThresholdDeg)
	o = msgp.AppendString(o, "density")
	o = msgp.AppendFloat64(o, z.Density)
	o = msgp.AppendString(o, "tolerance")
	o = msgp.AppendFloat64(o, z.GroundTolerance)
	return
}

// UnmarshalMsg implements msgp.Unmarshaler
func (z *Request) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var field []byte
	var zb0001 uint32
	zb0001, bts, err = msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		err = msgp.WrapError(err)
		return
	}
	for zb0001 > 0 {
		zb0001--
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			err = msgp.WrapError(err)
			return
		}
		switch msgp.UnsafeString(field) {
		case "seq":
			z.Seq, bts, err = msgp.ReadUint64Bytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Seq")
				return
			}
		case "mesh":
			z.Mesh, bts, err = msgp.ReadBytesBytes(bts, z.Mesh[:0])
			if err != nil {
				err = msgp.WrapError(err, "Mesh")
				return
			}
		case "rot":
			bts, err = readFloats(bts, z.Rotation[:], "Rotation")
			if err != nil {
				return
			}
		case "pos":
			bts, err = readFloats(bts, z.Translation[:], "Translation")
			if err != nil {
				return
			}
		case "up":
			bts, err = readFloats(bts, z.Up[:], "Up")
			if err != nil {
				return
			}
		case "threshold":
			z.ThresholdDeg, bts, err = msgp.ReadFloat64Bytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "ThresholdDeg")
				return
			}
		case "density":
			z.Density, bts, err = msgp.ReadFloat64Bytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Density")
				return
			}
		case "tolerance":
			z.GroundTolerance, bts, err = msgp.ReadFloat64Bytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "GroundTolerance")
				return
			}
		default:
			bts, err = msgp.Skip(bts)
			if err != nil {
				err = msgp.WrapError(err)
				return
			}
		}
	}
	o = bts
	return
}

// Msgsize returns an upper bound estimate of the number of bytes occupied by the serialized message
func (z *Request) Msgsize() (s int) {
	s = 1 + 4 + msgp.Uint64Size +
		5 + msgp.BytesPrefixSize + len(z.Mesh) +
		4 + msgp.ArrayHeaderSize + 4*msgp.Float64Size +
		4 + msgp.ArrayHeaderSize + 3*msgp.Float64Size +
		3 + msgp.ArrayHeaderSize + 3*msgp.Float64Size +
		10 + msgp.Float64Size +
		8 + msgp.Float64Size +
		10 + msgp.Float64Size
	return
}

// Response carries the worker's answer to one Request.
type Response struct {
	Seq           uint64
	FaceIndices   []int
	ProjectedArea float64
	SupportVolume float64
	SupportWeight float64

	// Error is set when the worker could not analyze the mesh.
	Error string
	// Geometry marks Error as a geometry failure rather than a worker fault.
	Geometry bool
}

// MarshalMsg implements msgp.Marshaler
func (z *Response) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, z.Msgsize())
	o = msgp.AppendMapHeader(o, 7)
	o = msgp.AppendString(o, "seq")
	o = msgp.AppendUint64(o, z.Seq)
	o = msgp.AppendString(o, "faces")
	o = msgp.AppendArrayHeader(o, uint32(len(z.FaceIndices)))
	for _, f := range z.FaceIndices {
		o = msgp.AppendInt(o, f)
	}
	o = msgp.AppendString(o, "area")
	o = msgp.AppendFloat64(o, z.ProjectedArea)
	o = msgp.AppendString(o, "volume")
	o = msgp.AppendFloat64(o, z.SupportVolume)
	o = msgp.AppendString(o, "weight")
	o = msgp.AppendFloat64(o, z.SupportWeight)
	o = msgp.AppendString(o, "error")
	o = msgp.AppendString(o, z.Error)
	o = msgp.AppendString(o, "geometry")
	o = msgp.AppendBool(o, z.Geometry)
	return
}

// UnmarshalMsg implements msgp.Unmarshaler
func (z *Response) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var field []byte
	var zb0001 uint32
	zb0001, bts, err = msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		err = msgp.WrapError(err)
		return
	}
	for zb0001 > 0 {
		zb0001--
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			err = msgp.WrapError(err)
			return
		}
		switch msgp.UnsafeString(field) {
		case "seq":
			z.Seq, bts, err = msgp.ReadUint64Bytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Seq")
				return
			}
		case "faces":
			var n uint32
			n, bts, err = msgp.ReadArrayHeaderBytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "FaceIndices")
				return
			}
			z.FaceIndices = make([]int, n)
			for i := range z.FaceIndices {
				z.FaceIndices[i], bts, err = msgp.ReadIntBytes(bts)
				if err != nil {
					err = msgp.WrapError(err, "FaceIndices", i)
					return
				}
			}
		case "area":
			z.ProjectedArea, bts, err = msgp.ReadFloat64Bytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "ProjectedArea")
				return
			}
		case "volume":
			z.SupportVolume, bts, err = msgp.ReadFloat64Bytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "SupportVolume")
				return
			}
		case "weight":
			z.SupportWeight, bts, err = msgp.ReadFloat64Bytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "SupportWeight")
				return
			}
		case "error":
			z.Error, bts, err = msgp.ReadStringBytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Error")
				return
			}
		case "geometry":
			z.Geometry, bts, err = msgp.ReadBoolBytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Geometry")
				return
			}
		default:
			bts, err = msgp.Skip(bts)
			if err != nil {
				err = msgp.WrapError(err)
				return
			}
		}
	}
	o = bts
	return
}

// Msgsize returns an upper bound estimate of the number of bytes occupied by the serialized message
func (z *Response) Msgsize() (s int) {
	s = 1 + 4 + msgp.Uint64Size +
		6 + msgp.ArrayHeaderSize + len(z.FaceIndices)*msgp.IntSize +
		5 + msgp.Float64Size +
		7 + msgp.Float64Size +
		7 + msgp.Float64Size +
		6 + msgp.StringPrefixSize + len(z.Error) +
		9 + msgp.BoolSize
	return
}

func appendFloats(o []byte, fs []float64) []byte {
	o = msgp.AppendArrayHeader(o, uint32(len(fs)))
	for _, f := range fs {
		o = msgp.AppendFloat64(o, f)
	}
	return o
}

func readFloats(bts []byte, dst []float64, name string) ([]byte, error) {
	n, bts, err := msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return bts, msgp.WrapError(err, name)
	}
	if int(n) != len(dst) {
		return bts, msgp.WrapError(msgp.ArrayError{Wanted: uint32(len(dst)), Got: n}, name)
	}
	for i := range dst {
		dst[i], bts, err = msgp.ReadFloat64Bytes(bts)
		if err != nil {
			return bts, msgp.WrapError(err, name, i)
		}
	}
	return bts, nil
}
