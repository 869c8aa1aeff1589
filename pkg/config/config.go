// Package config handles engine configuration loading and management.
package config

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/chazu/orienteer/pkg/buildvolume"
	"github.com/chazu/orienteer/pkg/constraint"
	"github.com/chazu/orienteer/pkg/logger"
	"github.com/chazu/orienteer/pkg/orient"
	"github.com/chazu/orienteer/pkg/overhang"
)

// Config holds all engine settings.
type Config struct {
	BuildVolume buildvolume.Volume `yaml:"build_volume"`
	Analysis    AnalysisConfig     `yaml:"analysis"`
	AutoOrient  AutoOrientConfig   `yaml:"auto_orient"`
	Constraints ConstraintsConfig  `yaml:"constraints"`
	Worker      WorkerConfig       `yaml:"worker"`
	Store       StoreConfig        `yaml:"store"`
	Logging     logger.Config      `yaml:"logging"`
}

// AnalysisConfig holds overhang detection settings.
type AnalysisConfig struct {
	ThresholdDeg    float64    `yaml:"threshold_deg"`
	Density         float64    `yaml:"density"`          // g/mm³
	GroundTolerance float64    `yaml:"ground_tolerance"` // mm
	Up              [3]float64 `yaml:"up"`
}

// AutoOrientConfig holds solver settings.
type AutoOrientConfig struct {
	DirectionSamples      int           `yaml:"direction_samples"`
	LargeDirectionSamples int           `yaml:"large_direction_samples"`
	MaxDuration           time.Duration `yaml:"max_duration"`
}

// ConstraintsConfig holds plate constraint settings.
type ConstraintsConfig struct {
	MinHeight float64 `yaml:"min_height"` // flatness threshold, mm
}

// WorkerConfig holds analysis offload settings.
type WorkerConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Debounce     time.Duration `yaml:"debounce"`
	LargeModelMB int           `yaml:"large_model_mb"`
}

// StoreConfig holds orientation persistence settings.
type StoreConfig struct {
	Path string `yaml:"path"` // empty keeps orientations in memory only
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		BuildVolume: buildvolume.Default(),
		Analysis: AnalysisConfig{
			ThresholdDeg:    overhang.DefaultThresholdDeg,
			Density:         overhang.DefaultDensity,
			GroundTolerance: overhang.DefaultGroundTolerance,
			Up:              [3]float64{0, 1, 0},
		},
		AutoOrient: AutoOrientConfig{
			DirectionSamples:      orient.DefaultSamples,
			LargeDirectionSamples: orient.DefaultLargeSamples,
			MaxDuration:           orient.DefaultMaxDuration,
		},
		Constraints: ConstraintsConfig{
			MinHeight: constraint.DefaultMinHeight,
		},
		Worker: WorkerConfig{
			Enabled:      true,
			Debounce:     300 * time.Millisecond,
			LargeModelMB: 50,
		},
		Logging: logger.Config{
			Level:   "info",
			Console: true,
		},
	}
}

// Validate reports settings the engine cannot run with.
func (c *Config) Validate() error {
	if err := c.BuildVolume.Validate(); err != nil {
		return err
	}
	if c.Analysis.ThresholdDeg < 0 || c.Analysis.ThresholdDeg > 90 {
		return errors.Errorf("analysis.threshold_deg %g is outside [0, 90]", c.Analysis.ThresholdDeg)
	}
	if c.Analysis.Density < 0 {
		return errors.Errorf("analysis.density %g is negative", c.Analysis.Density)
	}
	if mgl64.Vec3(c.Analysis.Up).Len() == 0 {
		return errors.New("analysis.up must be a non-zero vector")
	}
	if c.AutoOrient.DirectionSamples <= 0 || c.AutoOrient.LargeDirectionSamples <= 0 {
		return errors.New("auto_orient direction samples must be positive")
	}
	if c.AutoOrient.MaxDuration < 0 {
		return errors.Errorf("auto_orient.max_duration %s is negative", c.AutoOrient.MaxDuration)
	}
	if c.Worker.Debounce < 0 {
		return errors.Errorf("worker.debounce %s is negative", c.Worker.Debounce)
	}
	return nil
}

// OverhangOptions returns the detector options for this config.
func (c *Config) OverhangOptions() overhang.Options {
	return overhang.Options{
		ThresholdDeg:    c.Analysis.ThresholdDeg,
		Up:              c.Analysis.Up,
		Density:         c.Analysis.Density,
		GroundTolerance: c.Analysis.GroundTolerance,
	}
}

// OrientOptions returns the solver options for a model.
func (c *Config) OrientOptions(large bool) orient.Options {
	samples := c.AutoOrient.DirectionSamples
	if large {
		samples = c.AutoOrient.LargeDirectionSamples
	}
	return orient.Options{
		Mode:             orient.ModeUpright,
		DirectionSamples: samples,
		MaxDuration:      c.AutoOrient.MaxDuration,
		Up:               c.Analysis.Up,
	}
}

// LargeModelBytes is the source size at which analysis stays on the
// caller's goroutine.
func (c *Config) LargeModelBytes() int64 {
	return int64(c.Worker.LargeModelMB) << 20
}
