// Package orient searches for print orientations. AutoOrient samples a
// fixed set of up directions and keeps the one with the least overhang;
// AlignToFace lays a picked face flat on the plate.
package orient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/chazu/orienteer/pkg/geom"
	"github.com/chazu/orienteer/pkg/mesh"
	"github.com/chazu/orienteer/pkg/overhang"
)

// Mode selects the optimization target.
type Mode string

// ModeUpright minimizes overhang while the object stays grounded.
const ModeUpright Mode = "upright"

const (
	DefaultSamples      = 16
	DefaultLargeSamples = 32
	DefaultMaxDuration  = 5 * time.Second

	// costThresholdDeg is the overhang angle candidates are scored at.
	costThresholdDeg = 45.0
)

// Clock returns the current wall-clock time.
type Clock func() time.Time

// Options configures AutoOrient.
type Options struct {
	Mode Mode `yaml:"mode" json:"mode"`
	// DirectionSamples is the number of candidate up directions.
	DirectionSamples int `yaml:"direction_samples" json:"directionSamples"`
	// MaxDuration bounds the search. It is checked between samples, so
	// the first sample always runs.
	MaxDuration time.Duration `yaml:"max_duration" json:"maxDuration"`
	// Up is the build direction. Zero means geom.Up.
	Up mgl64.Vec3 `yaml:"up" json:"up"`
	// Clock defaults to time.Now.
	Clock Clock `yaml:"-" json:"-"`
}

// DefaultOptions returns the upright mode with sample count picked by
// model size.
func DefaultOptions(large bool) Options {
	return Options{
		Mode:             ModeUpright,
		DirectionSamples: SamplesFor(large),
		MaxDuration:      DefaultMaxDuration,
		Up:               geom.Up,
	}
}

// SamplesFor returns the default sample count for a model.
func SamplesFor(large bool) int {
	if large {
		return DefaultLargeSamples
	}
	return DefaultSamples
}

// TimeoutWarning reports a search that ran out of time. The result is
// still usable, just possibly not the best available.
type TimeoutWarning struct {
	Evaluated int
	Total     int
	Budget    time.Duration
}

func (w *TimeoutWarning) String() string {
	return fmt.Sprintf("auto-orient stopped after %d of %d directions (budget %s); result may not be optimal",
		w.Evaluated, w.Total, w.Budget)
}

// Result is the outcome of AutoOrient.
type Result struct {
	Rotation  mgl64.Quat
	TimedOut  bool
	Evaluated int
	// Cost is the projected overhang area of the winning candidate, mm².
	Cost    float64
	Warning *TimeoutWarning
}

// AutoOrient returns the rotation, among the sampled candidates, that
// minimizes projected overhang area. The search is greedy and bounded by
// MaxDuration; ties go to the earliest candidate. A mesh without geometry
// fails with a *geom.GeometryError. A cancelled ctx stops the search like
// an exhausted budget but also returns ctx.Err().
func AutoOrient(ctx context.Context, m *mesh.Mesh, opts Options) (Result, error) {
	if opts.Mode == "" {
		opts.Mode = ModeUpright
	}
	if opts.Mode != ModeUpright {
		return Result{}, errors.Errorf("unknown orientation mode %q", opts.Mode)
	}
	if err := m.Validate(); err != nil {
		return Result{}, errors.Wrap(err, "auto-orient")
	}
	if opts.DirectionSamples <= 0 {
		opts.DirectionSamples = DefaultSamples
	}
	if opts.MaxDuration < 0 {
		opts.MaxDuration = 0
	}
	if geom.IsDegenerate(opts.Up) {
		opts.Up = geom.Up
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	up := opts.Up.Normalize()
	costOpts := overhang.DefaultOptions()
	costOpts.ThresholdDeg = costThresholdDeg
	costOpts.Up = up

	candidates := Candidates(opts.DirectionSamples, up)
	start := clock()

	best := Result{Rotation: mgl64.QuatIdent()}
	for i, dir := range candidates {
		q := geom.NormalizeQuat(mgl64.QuatBetweenVectors(up, dir))
		cost, err := overhang.Cost(m, geom.Identity().WithRotation(q), costOpts)
		if err != nil {
			return Result{}, errors.Wrap(err, "auto-orient")
		}
		best.Evaluated = i + 1
		if i == 0 || cost < best.Cost {
			best.Rotation = q
			best.Cost = cost
		}

		if i == len(candidates)-1 {
			break
		}
		if err := ctx.Err(); err != nil {
			return best, err
		}
		if clock().Sub(start) >= opts.MaxDuration {
			best.TimedOut = true
			best.Warning = &TimeoutWarning{
				Evaluated: best.Evaluated,
				Total:     len(candidates),
				Budget:    opts.MaxDuration,
			}
			break
		}
	}
	return best, nil
}
