package orient

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
)

var goldenAngle = math.Pi * (3 - math.Sqrt(5))

// Candidates returns n deterministic unit directions. The six principal
// axes come first, starting with up itself, so axis-aligned parts resolve
// within the first few samples; the rest follow a Fibonacci lattice over
// the sphere.
func Candidates(n int, up mgl64.Vec3) []mgl64.Vec3 {
	if n <= 0 {
		return nil
	}
	axes := principalAxes(up)
	if n <= len(axes) {
		return axes[:n]
	}
	rest := n - len(axes)
	lattice := lo.Times(rest, func(k int) mgl64.Vec3 {
		y := 1 - 2*(float64(k)+0.5)/float64(rest)
		r := math.Sqrt(1 - y*y)
		phi := goldenAngle * float64(k)
		return mgl64.Vec3{r * math.Cos(phi), y, r * math.Sin(phi)}
	})
	return append(axes, lattice...)
}

// principalAxes returns ±up followed by the remaining world axes, both
// signs each.
func principalAxes(up mgl64.Vec3) []mgl64.Vec3 {
	out := []mgl64.Vec3{up, up.Mul(-1)}
	for _, a := range []mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}} {
		if math.Abs(a.Dot(up)) > 0.999 {
			continue
		}
		out = append(out, a, a.Mul(-1))
		if len(out) == 6 {
			break
		}
	}
	return out
}
