package orient

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/orienteer/pkg/geom"
)

// AlignToFace returns a rotation that lays the picked face flat on the
// plate. pickedNormal is in the object's own frame, as a raycast against
// the untransformed mesh reports it; it is carried through current, and
// the shortest arc from there to -up is applied on top of current. Picks
// therefore accumulate relative to the live pose. A zero normal returns
// current unchanged.
func AlignToFace(pickedNormal mgl64.Vec3, current mgl64.Quat, up mgl64.Vec3) mgl64.Quat {
	current = geom.NormalizeQuat(current)
	if geom.IsDegenerate(pickedNormal) {
		return current
	}
	return AlignWorldNormal(current.Rotate(pickedNormal), current, up)
}

// AlignWorldNormal is AlignToFace for a normal already in world space.
func AlignWorldNormal(worldNormal mgl64.Vec3, current mgl64.Quat, up mgl64.Vec3) mgl64.Quat {
	current = geom.NormalizeQuat(current)
	if geom.IsDegenerate(worldNormal) {
		return current
	}
	if geom.IsDegenerate(up) {
		up = geom.Up
	}
	delta := mgl64.QuatBetweenVectors(worldNormal.Normalize(), up.Normalize().Mul(-1))
	return geom.NormalizeQuat(delta.Mul(current))
}
