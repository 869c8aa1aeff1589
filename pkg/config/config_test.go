package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// resetFlags restores flag defaults between cases.
func resetFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		*flagConfig = ""
		*flagDebug = false
		*flagLogFile = ""
		*flagThreshold = 0
		*flagSamples = 0
		*flagMaxDuration = 0
		*flagNoWorker = false
		*flagStore = ""
	})
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.BuildVolume.Width != 220 || cfg.BuildVolume.Depth != 220 || cfg.BuildVolume.Height != 250 {
		t.Errorf("expected 220x220x250 build volume, got %+v", cfg.BuildVolume)
	}
	if cfg.Analysis.ThresholdDeg != 45 {
		t.Errorf("expected threshold 45, got %f", cfg.Analysis.ThresholdDeg)
	}
	if cfg.Analysis.Up != [3]float64{0, 1, 0} {
		t.Errorf("expected +Y up, got %v", cfg.Analysis.Up)
	}
	if cfg.AutoOrient.DirectionSamples != 16 || cfg.AutoOrient.LargeDirectionSamples != 32 {
		t.Errorf("expected 16/32 samples, got %d/%d", cfg.AutoOrient.DirectionSamples, cfg.AutoOrient.LargeDirectionSamples)
	}
	if cfg.AutoOrient.MaxDuration != 5*time.Second {
		t.Errorf("expected 5s budget, got %v", cfg.AutoOrient.MaxDuration)
	}
	if cfg.Worker.Debounce != 300*time.Millisecond {
		t.Errorf("expected 300ms debounce, got %v", cfg.Worker.Debounce)
	}
	if cfg.LargeModelBytes() != 50<<20 {
		t.Errorf("expected 50MB large model threshold, got %d", cfg.LargeModelBytes())
	}
	if cfg.Constraints.MinHeight != 0.2 {
		t.Errorf("expected 0.2mm flatness threshold, got %f", cfg.Constraints.MinHeight)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
build_volume:
  width: 180
  depth: 180
  height: 180

analysis:
  threshold_deg: 55
  density: 0.00104

auto_orient:
  direction_samples: 24
  max_duration: 1500ms

worker:
  enabled: false
  debounce: 100ms

store:
  path: "orientations.yaml"

logging:
  level: "debug"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.BuildVolume.Width != 180 || cfg.BuildVolume.Height != 180 {
		t.Errorf("expected 180mm volume, got %+v", cfg.BuildVolume)
	}
	if cfg.Analysis.ThresholdDeg != 55 {
		t.Errorf("expected threshold 55, got %f", cfg.Analysis.ThresholdDeg)
	}
	if cfg.Analysis.GroundTolerance != 0.05 {
		t.Errorf("expected unset ground tolerance to keep its default, got %f", cfg.Analysis.GroundTolerance)
	}
	if cfg.AutoOrient.DirectionSamples != 24 {
		t.Errorf("expected 24 samples, got %d", cfg.AutoOrient.DirectionSamples)
	}
	if cfg.AutoOrient.LargeDirectionSamples != 32 {
		t.Errorf("expected large samples to keep default 32, got %d", cfg.AutoOrient.LargeDirectionSamples)
	}
	if cfg.AutoOrient.MaxDuration != 1500*time.Millisecond {
		t.Errorf("expected 1.5s budget, got %v", cfg.AutoOrient.MaxDuration)
	}
	if cfg.Worker.Enabled {
		t.Error("expected worker disabled")
	}
	if cfg.Worker.Debounce != 100*time.Millisecond {
		t.Errorf("expected 100ms debounce, got %v", cfg.Worker.Debounce)
	}
	if cfg.Store.Path != "orientations.yaml" {
		t.Errorf("expected store path, got %q", cfg.Store.Path)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.yaml")
	invalidYAML := `
build_volume:
  width: not a number
  invalid syntax here
`
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if err := loadFromFile(Default(), configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if err := loadFromFile(Default(), "/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestLoadPrecedence(t *testing.T) {
	resetFlags(t)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := `
analysis:
  threshold_deg: 50
auto_orient:
  direction_samples: 8
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagSamples = 12
	*flagNoWorker = true

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Analysis.ThresholdDeg != 50 {
		t.Errorf("file should override default threshold, got %f", cfg.Analysis.ThresholdDeg)
	}
	if cfg.AutoOrient.DirectionSamples != 12 {
		t.Errorf("flag should override file samples, got %d", cfg.AutoOrient.DirectionSamples)
	}
	if cfg.Worker.Enabled {
		t.Error("flag should disable the worker")
	}
	if cfg.AutoOrient.MaxDuration != 5*time.Second {
		t.Errorf("untouched budget should keep its default, got %v", cfg.AutoOrient.MaxDuration)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	resetFlags(t)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("build_volume:\n  width: 0\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	*flagConfig = configPath

	if _, err := Load(); err == nil {
		t.Error("expected error for zero-width build volume")
	}
}

func TestLoadFromEnv(t *testing.T) {
	resetFlags(t)

	configPath := filepath.Join(t.TempDir(), "env.yaml")
	if err := os.WriteFile(configPath, []byte("analysis:\n  threshold_deg: 35\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv(EnvConfig, configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Analysis.ThresholdDeg != 35 {
		t.Errorf("expected threshold 35 from $%s, got %f", EnvConfig, cfg.Analysis.ThresholdDeg)
	}

	*flagConfig = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := Load(); err == nil {
		t.Error("--config should win over the environment and report the missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"threshold too large", func(c *Config) { c.Analysis.ThresholdDeg = 91 }},
		{"negative density", func(c *Config) { c.Analysis.Density = -1 }},
		{"zero up", func(c *Config) { c.Analysis.Up = [3]float64{} }},
		{"no samples", func(c *Config) { c.AutoOrient.DirectionSamples = 0 }},
		{"negative budget", func(c *Config) { c.AutoOrient.MaxDuration = -time.Second }},
		{"negative debounce", func(c *Config) { c.Worker.Debounce = -time.Millisecond }},
		{"flat volume", func(c *Config) { c.BuildVolume.Height = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestOptions(t *testing.T) {
	cfg := Default()
	cfg.AutoOrient.DirectionSamples = 10
	cfg.AutoOrient.LargeDirectionSamples = 40

	if got := cfg.OrientOptions(false).DirectionSamples; got != 10 {
		t.Errorf("expected 10 samples for small models, got %d", got)
	}
	if got := cfg.OrientOptions(true).DirectionSamples; got != 40 {
		t.Errorf("expected 40 samples for large models, got %d", got)
	}

	oh := cfg.OverhangOptions()
	if oh.ThresholdDeg != 45 || oh.Up[1] != 1 {
		t.Errorf("unexpected overhang options %+v", oh)
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Analysis.ThresholdDeg = 60
	cfg.Worker.Debounce = 250 * time.Millisecond

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded.Analysis.ThresholdDeg != 60 {
		t.Errorf("expected threshold 60 after reload, got %f", loaded.Analysis.ThresholdDeg)
	}
	if loaded.Worker.Debounce != 250*time.Millisecond {
		t.Errorf("expected 250ms debounce after reload, got %v", loaded.Worker.Debounce)
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}
