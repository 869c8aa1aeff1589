package geom

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

func TestFaceNormal(t *testing.T) {
	tests := []struct {
		name       string
		v0, v1, v2 mgl64.Vec3
		want       mgl64.Vec3
	}{
		{"unit right triangle in XZ", mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 0, 1}, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, 0}},
		{"scaled", mgl64.Vec3{0, 0, 0}, mgl64.Vec3{2, 0, 0}, mgl64.Vec3{0, 2, 0}, mgl64.Vec3{0, 0, 4}},
		{"degenerate", mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1}, mgl64.Vec3{2, 2, 2}, mgl64.Vec3{0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FaceNormal(tt.v0, tt.v1, tt.v2)
			if !got.ApproxEqual(tt.want) {
				t.Errorf("FaceNormal = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsDegenerate(t *testing.T) {
	if !IsDegenerate(mgl64.Vec3{}) {
		t.Error("zero vector should be degenerate")
	}
	if IsDegenerate(mgl64.Vec3{0, 1e-3, 0}) {
		t.Error("short but real normal should not be degenerate")
	}
}

func TestNormalizeQuat(t *testing.T) {
	tests := []struct {
		name string
		in   mgl64.Quat
		want mgl64.Quat
	}{
		{"identity", mgl64.QuatIdent(), mgl64.QuatIdent()},
		{"zero", mgl64.Quat{}, mgl64.QuatIdent()},
		{"scaled", mgl64.Quat{W: 2}, mgl64.QuatIdent()},
		{"nan", mgl64.Quat{W: math.NaN()}, mgl64.QuatIdent()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeQuat(tt.in)
			if !got.ApproxEqual(tt.want) {
				t.Errorf("NormalizeQuat(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	q := NormalizeQuat(mgl64.Quat{W: 1, V: mgl64.Vec3{1, 2, 3}})
	if math.Abs(q.Len()-1) > 1e-12 {
		t.Errorf("expected unit length, got %f", q.Len())
	}
}

func TestOrientationApply(t *testing.T) {
	o := NewOrientation(mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1}), mgl64.Vec3{10, 0, 0})
	got := o.Apply(mgl64.Vec3{1, 0, 0})
	if got.Sub(mgl64.Vec3{10, 1, 0}).Len() > 1e-9 {
		t.Errorf("Apply = %v, want (10,1,0)", got)
	}
}

func TestQuatTupleRoundTrip(t *testing.T) {
	q := NormalizeQuat(mgl64.Quat{W: 0.5, V: mgl64.Vec3{0.1, -0.7, 0.2}})
	back := QuatFromTuple(QuatTuple(q))
	if !back.ApproxEqual(q) {
		t.Errorf("round trip = %v, want %v", back, q)
	}
}

func TestAABB(t *testing.T) {
	b := EmptyAABB()
	if !b.IsEmpty() {
		t.Fatal("EmptyAABB should be empty")
	}
	if b.Size() != (mgl64.Vec3{}) {
		t.Errorf("empty box size = %v", b.Size())
	}

	b = b.Extend(mgl64.Vec3{1, 2, 3}).Extend(mgl64.Vec3{-1, 0, 5})
	if b.IsEmpty() {
		t.Fatal("box with points should not be empty")
	}
	if b.Size() != (mgl64.Vec3{2, 2, 2}) {
		t.Errorf("Size = %v", b.Size())
	}
	if b.Center() != (mgl64.Vec3{0, 1, 4}) {
		t.Errorf("Center = %v", b.Center())
	}
	if b.Height() != 2 {
		t.Errorf("Height = %v", b.Height())
	}
	moved := b.Translate(mgl64.Vec3{0, 10, 0})
	if moved.Min[1] != 10 {
		t.Errorf("Translate min.y = %v", moved.Min[1])
	}
}

func TestGeometryError(t *testing.T) {
	err := NewGeometryError("detect", "mesh has %d faces", 0)
	if err.Error() != "geometry: detect: mesh has 0 faces" {
		t.Errorf("unexpected message %q", err.Error())
	}
	wrapped := errors.Wrap(err, "auto-orient")
	if !IsGeometryError(wrapped) {
		t.Error("wrapped GeometryError not recognized")
	}
	if IsGeometryError(errors.New("other")) {
		t.Error("plain error recognized as GeometryError")
	}
}
