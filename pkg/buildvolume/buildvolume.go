// Package buildvolume checks an object's world bounding box against the
// printer's build volume. Violations are data, not errors: the caller
// decides whether to lock interaction on them.
package buildvolume

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/chazu/orienteer/pkg/geom"
)

// tolerance absorbs float noise from grounding and clamping.
const tolerance = 1e-6

// Volume is the printable region: a Width (X) by Depth (Z) plate centered
// at the origin, and a maximum Height (Y) above it. All values in mm.
type Volume struct {
	Width  float64 `yaml:"width" json:"width"`
	Depth  float64 `yaml:"depth" json:"depth"`
	Height float64 `yaml:"height" json:"height"`
}

// Default returns a 220x220x250mm volume.
func Default() Volume {
	return Volume{Width: 220, Depth: 220, Height: 250}
}

// Validate rejects non-positive dimensions.
func (v Volume) Validate() error {
	if v.Width <= 0 || v.Depth <= 0 || v.Height <= 0 {
		return errors.Errorf("build volume %gx%gx%g must have positive dimensions", v.Width, v.Depth, v.Height)
	}
	return nil
}

// HalfWidth returns half the plate extent along X.
func (v Volume) HalfWidth() float64 { return v.Width / 2 }

// HalfDepth returns half the plate extent along Z.
func (v Volume) HalfDepth() float64 { return v.Depth / 2 }

// Status is the result of a bounds check.
type Status struct {
	InBounds   bool     `json:"inBounds"`
	Violations []string `json:"violations"`
}

// Check evaluates containment of a world-space box. An empty box means
// there is no geometry, which is not a bounds failure: Check returns nil.
func (v Volume) Check(box geom.AABB) *Status {
	if box.IsEmpty() {
		return nil
	}

	var violations []string
	violations = append(violations, checkFootprint("x", "width", box.Min[0], box.Max[0], v.HalfWidth())...)
	violations = append(violations, checkFootprint("z", "depth", box.Min[2], box.Max[2], v.HalfDepth())...)
	violations = append(violations, v.checkHeight(box)...)

	return &Status{
		InBounds:   len(violations) == 0,
		Violations: violations,
	}
}

// ComputeBoundsStatus checks box against the default build volume.
func ComputeBoundsStatus(box geom.AABB) *Status {
	return Default().Check(box)
}

// checkFootprint checks one horizontal axis of the plate.
func checkFootprint(axis, dimension string, min, max, half float64) []string {
	extent := max - min
	if extent > 2*half+tolerance {
		return []string{fmt.Sprintf("%s-axis: exceeds plate %s by %.2fmm", axis, dimension, extent-2*half)}
	}

	over := 0.0
	if max > half+tolerance {
		over = max - half
	}
	if min < -half-tolerance {
		over = -half - min
	}
	if over > 0 {
		return []string{fmt.Sprintf("%s-axis: extends %.2fmm past the plate edge", axis, over)}
	}
	return nil
}

// checkHeight checks the vertical axis. The object is expected to be
// grounded, so min.y is ~0 and the extent is the printed height.
func (v Volume) checkHeight(box geom.AABB) []string {
	var out []string
	extent := box.Max[1] - box.Min[1]
	if extent > v.Height+tolerance {
		out = append(out, fmt.Sprintf("y-axis: exceeds build height by %.2fmm", extent-v.Height))
	}
	if box.Min[1] < -tolerance {
		out = append(out, fmt.Sprintf("y-axis: sinks %.2fmm below the plate", -box.Min[1]))
	}
	return out
}
