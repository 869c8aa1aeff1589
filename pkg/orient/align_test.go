package orient

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"

	"github.com/chazu/orienteer/pkg/geom"
)

var basis = []mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

func sameRotation(t *testing.T, want, got mgl64.Quat) {
	t.Helper()
	for _, v := range basis {
		assert.InDelta(t, 0, want.Rotate(v).Sub(got.Rotate(v)).Len(), 1e-9,
			"rotating %v: want %v, got %v", v, want.Rotate(v), got.Rotate(v))
	}
}

func TestAlignToFaceLaysFaceDown(t *testing.T) {
	down := geom.Up.Mul(-1)
	tests := []struct {
		name   string
		normal mgl64.Vec3
	}{
		{"side", mgl64.Vec3{1, 0, 0}},
		{"top", mgl64.Vec3{0, 1, 0}},
		{"already down", mgl64.Vec3{0, -1, 0}},
		{"oblique", mgl64.Vec3{1, 2, -3}},
		{"unnormalized", mgl64.Vec3{0, 0, 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := AlignToFace(tt.normal, mgl64.QuatIdent(), geom.Up)
			assert.InDelta(t, 1, q.Len(), 1e-9)
			got := q.Rotate(tt.normal.Normalize())
			assert.InDelta(t, 0, got.Sub(down).Len(), 1e-9, "normal ends up at %v", got)
		})
	}
}

func TestAlignToFaceUsesCurrentPose(t *testing.T) {
	current := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})
	picked := mgl64.Vec3{1, 0, 0} // object frame

	q := AlignToFace(picked, current, geom.Up)
	got := q.Rotate(picked)
	assert.InDelta(t, 0, got.Sub(mgl64.Vec3{0, -1, 0}).Len(), 1e-9, "got %v", got)
}

func TestAlignToFaceZeroNormalIsNoop(t *testing.T) {
	current := mgl64.QuatRotate(0.3, mgl64.Vec3{1, 1, 0}.Normalize())
	assert.Equal(t, geom.NormalizeQuat(current), AlignToFace(mgl64.Vec3{}, current, geom.Up))
	assert.Equal(t, geom.NormalizeQuat(current), AlignWorldNormal(mgl64.Vec3{}, current, geom.Up))
}

func TestAlignToFaceComposes(t *testing.T) {
	start := mgl64.QuatRotate(mgl64.DegToRad(20), mgl64.Vec3{1, 1, 0}.Normalize())
	n1 := mgl64.Vec3{1, 0, 0}
	n2 := mgl64.Vec3{0, 0, 1}
	down := geom.Up.Mul(-1)

	first := AlignToFace(n1, start, geom.Up)
	second := AlignToFace(n2, first, geom.Up)

	delta1 := mgl64.QuatBetweenVectors(start.Rotate(n1), down)
	delta2 := mgl64.QuatBetweenVectors(first.Rotate(n2), down)
	sameRotation(t, delta2.Mul(delta1).Mul(start), second)

	fresh := AlignToFace(n2, start, geom.Up)
	assert.Greater(t, second.Rotate(n1).Sub(fresh.Rotate(n1)).Len(), 1e-6,
		"second pick must build on the first, not restart from the original pose")
}

func TestAlignWorldNormalCustomUp(t *testing.T) {
	up := mgl64.Vec3{0, 0, 1}
	q := AlignWorldNormal(mgl64.Vec3{1, 0, 0}, mgl64.QuatIdent(), up)
	got := q.Rotate(mgl64.Vec3{1, 0, 0})
	assert.InDelta(t, 0, got.Sub(mgl64.Vec3{0, 0, -1}).Len(), 1e-9, "got %v", got)
}
