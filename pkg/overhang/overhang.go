// Package overhang finds faces that need support material when a mesh is
// printed in a given orientation, and estimates how much support they need.
//
// A face overhangs when the angle between its outward normal and the
// gravity direction is less than 90° minus the threshold. With the default
// 45° threshold, anything tilted more than 45° from vertical towards the
// plate needs support. Faces resting on the plate never do.
package overhang

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"

	"github.com/chazu/orienteer/pkg/geom"
	"github.com/chazu/orienteer/pkg/mesh"
)

// Defaults.
const (
	DefaultThresholdDeg    = 45.0
	DefaultDensity         = 0.00124 // g/mm³, PLA
	DefaultGroundTolerance = 0.05    // mm
)

// Options configures detection.
type Options struct {
	// ThresholdDeg is the steepest printable overhang, measured from
	// vertical. Values outside [0, 90] are clamped.
	ThresholdDeg float64 `yaml:"threshold_deg" json:"thresholdDeg"`
	// Up is the build direction; gravity is -Up. Zero means geom.Up.
	Up mgl64.Vec3 `yaml:"up" json:"up"`
	// Density converts support volume to weight, in g/mm³.
	Density float64 `yaml:"density" json:"density"`
	// GroundTolerance is how close to the object's lowest level all three
	// corners of a face must be for it to count as resting on the plate.
	GroundTolerance float64 `yaml:"ground_tolerance" json:"groundTolerance"`
}

// DefaultOptions returns a 45° threshold, +Y up, PLA density.
func DefaultOptions() Options {
	return Options{
		ThresholdDeg:    DefaultThresholdDeg,
		Up:              geom.Up,
		Density:         DefaultDensity,
		GroundTolerance: DefaultGroundTolerance,
	}
}

func (o Options) normalized() Options {
	o.ThresholdDeg = lo.Clamp(o.ThresholdDeg, 0, 90)
	if math.IsNaN(o.ThresholdDeg) {
		o.ThresholdDeg = DefaultThresholdDeg
	}
	if geom.IsDegenerate(o.Up) {
		o.Up = geom.Up
	}
	o.Up = o.Up.Normalize()
	if o.Density < 0 {
		o.Density = 0
	}
	if o.GroundTolerance < 0 {
		o.GroundTolerance = 0
	}
	return o
}

// Result is the outcome of a detection pass.
type Result struct {
	// FaceIndices lists overhanging faces in ascending order.
	FaceIndices []int `json:"faceIndices"`
	// ProjectedArea is the overhang area seen from below, in mm².
	ProjectedArea float64 `json:"projectedArea"`
	// SupportVolume estimates support material in mm³: for each overhang
	// face, its projected area times the height of its centroid above the
	// plate (zero below it). This ignores support-on-model and infill density; it is good
	// for ranking orientations, not for slicing.
	SupportVolume float64 `json:"supportVolume"`
	// SupportWeight is SupportVolume times density, in grams.
	SupportWeight float64 `json:"supportWeight"`
}

// Count returns the number of overhanging faces.
func (r Result) Count() int {
	return len(r.FaceIndices)
}

// face is one classified overhang.
type face struct {
	index  int
	area   float64 // projected onto the plate
	height float64 // centroid above the plate
}

// Detect classifies every face of m placed by o. The mesh must be valid;
// malformed or empty meshes return a *geom.GeometryError and no partial
// result.
func Detect(m *mesh.Mesh, o geom.Orientation, opts Options) (Result, error) {
	var r Result
	err := walk(m, o, opts, func(f face) {
		r.FaceIndices = append(r.FaceIndices, f.index)
		r.ProjectedArea += f.area
		r.SupportVolume += f.area * f.height
	})
	if err != nil {
		return Result{}, err
	}
	if r.FaceIndices == nil {
		r.FaceIndices = []int{}
	}
	r.SupportWeight = r.SupportVolume * opts.normalized().Density
	return r, nil
}

// Cost returns the projected overhang area of m under o. It skips the
// bookkeeping Detect does and is what the orientation solver minimizes.
func Cost(m *mesh.Mesh, o geom.Orientation, opts Options) (float64, error) {
	var area float64
	err := walk(m, o, opts, func(f face) {
		area += f.area
	})
	if err != nil {
		return 0, err
	}
	return area, nil
}

func walk(m *mesh.Mesh, o geom.Orientation, opts Options, visit func(face)) error {
	if err := m.Validate(); err != nil {
		return err
	}
	opts = opts.normalized()
	up := opts.Up
	down := up.Mul(-1)
	limit := math.Sin(mgl64.DegToRad(opts.ThresholdDeg))

	base := math.Inf(1)
	for i, n := 0, m.VertexCount(); i < n; i++ {
		base = math.Min(base, o.Apply(m.Vertex(i)).Dot(up))
	}
	ground := base + opts.GroundTolerance

	for idx, tri := range m.Faces() {
		w := geom.Triangle{V0: o.Apply(tri.V0), V1: o.Apply(tri.V1), V2: o.Apply(tri.V2)}
		n := w.Normal()
		if geom.IsDegenerate(n) {
			continue
		}
		area := n.Len() / 2
		n = n.Normalize()

		facing := n.Dot(down)
		if facing <= limit {
			continue
		}
		if w.V0.Dot(up) <= ground && w.V1.Dot(up) <= ground && w.V2.Dot(up) <= ground {
			continue
		}
		visit(face{
			index:  idx,
			area:   area * facing,
			height: math.Max(w.Centroid().Dot(up), 0),
		})
	}
	return nil
}
