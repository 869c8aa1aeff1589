// Package geom holds the small set of geometric primitives shared by the
// orientation engine: object orientations, triangles, face normals and
// axis-aligned bounding boxes. Vector and quaternion math comes from mgl64.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Up is the default gravity-opposing axis. Persisted orientations assume it.
var Up = mgl64.Vec3{0, 1, 0}

// degenerateEpsilon is the squared length below which a face normal is
// treated as zero.
const degenerateEpsilon = 1e-18

// Triangle is one face of a mesh, as three vertex positions.
type Triangle struct {
	V0, V1, V2 mgl64.Vec3
}

// Normal returns the unnormalized face normal of t.
func (t Triangle) Normal() mgl64.Vec3 {
	return FaceNormal(t.V0, t.V1, t.V2)
}

// Centroid returns the mean of the three vertices.
func (t Triangle) Centroid() mgl64.Vec3 {
	return t.V0.Add(t.V1).Add(t.V2).Mul(1.0 / 3.0)
}

// FaceNormal returns the cross product of the triangle's edge vectors.
// The result is not normalized; its length is twice the face area.
// Zero-area faces yield a zero vector.
func FaceNormal(v0, v1, v2 mgl64.Vec3) mgl64.Vec3 {
	return v1.Sub(v0).Cross(v2.Sub(v0))
}

// IsDegenerate reports whether n is too short to define a direction.
func IsDegenerate(n mgl64.Vec3) bool {
	return n.LenSqr() < degenerateEpsilon
}

// Orientation places an object in the world: a unit quaternion rotation
// followed by a translation.
type Orientation struct {
	Rotation    mgl64.Quat `json:"rotation"`
	Translation mgl64.Vec3 `json:"translation"`
}

// Identity returns the orientation that leaves the object untouched.
func Identity() Orientation {
	return Orientation{Rotation: mgl64.QuatIdent()}
}

// NewOrientation builds an orientation, normalizing the rotation.
func NewOrientation(rotation mgl64.Quat, translation mgl64.Vec3) Orientation {
	return Orientation{Rotation: NormalizeQuat(rotation), Translation: translation}
}

// Apply maps an object-space point to world space.
func (o Orientation) Apply(p mgl64.Vec3) mgl64.Vec3 {
	return o.Rotation.Rotate(p).Add(o.Translation)
}

// RotateVector maps an object-space direction to world space.
func (o Orientation) RotateVector(v mgl64.Vec3) mgl64.Vec3 {
	return o.Rotation.Rotate(v)
}

// WithRotation returns a copy of o with a new (normalized) rotation.
func (o Orientation) WithRotation(q mgl64.Quat) Orientation {
	o.Rotation = NormalizeQuat(q)
	return o
}

// WithTranslation returns a copy of o with a new translation.
func (o Orientation) WithTranslation(t mgl64.Vec3) Orientation {
	o.Translation = t
	return o
}

// Translate returns a copy of o moved by d.
func (o Orientation) Translate(d mgl64.Vec3) Orientation {
	o.Translation = o.Translation.Add(d)
	return o
}

// NormalizeQuat returns q as a unit quaternion. Zero and non-finite
// quaternions collapse to identity so that Rotation is always usable.
func NormalizeQuat(q mgl64.Quat) mgl64.Quat {
	if !isFinite(q.W) || !isFinite(q.V[0]) || !isFinite(q.V[1]) || !isFinite(q.V[2]) {
		return mgl64.QuatIdent()
	}
	l := q.Len()
	if l == 0 {
		return mgl64.QuatIdent()
	}
	return mgl64.Quat{W: q.W / l, V: q.V.Mul(1 / l)}
}

// QuatFromTuple builds a normalized quaternion from an (x, y, z, w) tuple,
// the layout browsers and most file formats use.
func QuatFromTuple(t [4]float64) mgl64.Quat {
	return NormalizeQuat(mgl64.Quat{W: t[3], V: mgl64.Vec3{t[0], t[1], t[2]}})
}

// QuatTuple flattens q into (x, y, z, w).
func QuatTuple(q mgl64.Quat) [4]float64 {
	return [4]float64{q.V[0], q.V[1], q.V[2], q.W}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
