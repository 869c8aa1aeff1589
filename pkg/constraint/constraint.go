// Package constraint keeps an oriented object on the build plate. Every
// operation here changes only the translation of an orientation, never its
// rotation, and every operation is idempotent.
package constraint

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/orienteer/pkg/buildvolume"
	"github.com/chazu/orienteer/pkg/geom"
	"github.com/chazu/orienteer/pkg/mesh"
)

// epsilon below which a correction is skipped, so that re-applying a
// constraint returns its input exactly.
const epsilon = 1e-9

// DefaultMinHeight is the vertical extent at or below which a model is
// considered flat.
const DefaultMinHeight = 0.2

// Mode is the kind of interaction that triggered a constraint pass.
type Mode string

const (
	// ModeRotate re-grounds but leaves the user's X/Z placement alone.
	ModeRotate Mode = "rotate"
	// ModeTranslate re-grounds and pulls the object back onto the plate.
	ModeTranslate Mode = "translate"
)

// GroundAndSeat translates o vertically so the object's lowest point sits
// at Y=0. An empty mesh, or one already on the plate, is returned as is.
func GroundAndSeat(m *mesh.Mesh, o geom.Orientation) geom.Orientation {
	box := mesh.ComputeAABB(m, o)
	if box.IsEmpty() {
		return o
	}
	if math.Abs(box.Min[1]) <= epsilon {
		return o
	}
	return o.Translate(mgl64.Vec3{0, -box.Min[1], 0})
}

// ClampToBuildVolume moves o horizontally by the smallest amount that puts
// the object's footprint inside the plate. On an axis where the object is
// larger than the plate it cannot fit, so it is centered instead. The
// vertical position is untouched.
func ClampToBuildVolume(m *mesh.Mesh, o geom.Orientation, vol buildvolume.Volume) geom.Orientation {
	box := mesh.ComputeAABB(m, o)
	if box.IsEmpty() {
		return o
	}
	shift := mgl64.Vec3{
		axisShift(box.Min[0], box.Max[0], vol.HalfWidth()),
		0,
		axisShift(box.Min[2], box.Max[2], vol.HalfDepth()),
	}
	if shift == (mgl64.Vec3{}) {
		return o
	}
	return o.Translate(shift)
}

func axisShift(min, max, half float64) float64 {
	var d float64
	switch {
	case max-min > 2*half:
		d = -(min + max) / 2
	case max > half:
		d = half - max
	case min < -half:
		d = -half - min
	}
	if math.Abs(d) <= epsilon {
		return 0
	}
	return d
}

// ApplyAll runs the constraints for an interaction mode: always ground,
// and clamp only for translate-style interactions.
func ApplyAll(m *mesh.Mesh, o geom.Orientation, vol buildvolume.Volume, mode Mode) geom.Orientation {
	o = GroundAndSeat(m, o)
	if mode == ModeTranslate {
		o = ClampToBuildVolume(m, o, vol)
	}
	return o
}

// Flatness returns the object's vertical extent under o.
func Flatness(m *mesh.Mesh, o geom.Orientation) float64 {
	return mesh.ComputeAABB(m, o).Height()
}

// IsFlat reports whether the object is too thin for interactive transforms
// to be meaningful. What to do about it is up to the caller. A
// non-positive minHeight means DefaultMinHeight.
func IsFlat(m *mesh.Mesh, o geom.Orientation, minHeight float64) bool {
	if minHeight <= 0 {
		minHeight = DefaultMinHeight
	}
	return Flatness(m, o) <= minHeight
}

// Object is a mesh together with its live orientation.
type Object struct {
	Mesh        *mesh.Mesh
	Orientation geom.Orientation
}

// Ground applies GroundAndSeat in place.
func (obj *Object) Ground() {
	obj.Orientation = GroundAndSeat(obj.Mesh, obj.Orientation)
}

// Clamp applies ClampToBuildVolume in place.
func (obj *Object) Clamp(vol buildvolume.Volume) {
	obj.Orientation = ClampToBuildVolume(obj.Mesh, obj.Orientation, vol)
}

// Apply applies ApplyAll in place.
func (obj *Object) Apply(vol buildvolume.Volume, mode Mode) {
	obj.Orientation = ApplyAll(obj.Mesh, obj.Orientation, vol, mode)
}

// Bounds returns the world bounding box of the object.
func (obj *Object) Bounds() geom.AABB {
	return mesh.ComputeAABB(obj.Mesh, obj.Orientation)
}
